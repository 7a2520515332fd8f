// Package maps holds the process-wide configuration of the mapping SDK and
// the launch step that supplies its API key.
package maps

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"

	"arc-framework/launchpad/internal/health"
	"arc-framework/launchpad/internal/launch"
)

// StepName identifies the configure step in launch reports.
const StepName = "maps.configure"

const probeName = "maps-sdk"

// Services is the mapping SDK's global configuration surface. The zero value
// is unconfigured and ready to use.
type Services struct {
	mu     sync.RWMutex
	apiKey string
}

// ProvideAPIKey installs key as the SDK credential. It returns false and
// leaves the SDK unconfigured when key is empty. A later call replaces the key.
func (s *Services) ProvideAPIKey(key string) bool {
	if key == "" {
		slog.Error("maps SDK: empty API key, map features disabled")
		return false
	}
	s.mu.Lock()
	s.apiKey = key
	s.mu.Unlock()
	slog.Info("maps SDK configured", "key_fingerprint", Fingerprint(key))
	return true
}

// APIKey returns the configured credential, or "" before configuration.
func (s *Services) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.apiKey
}

// Configured reports whether a key has been provided.
func (s *Services) Configured() bool {
	return s.APIKey() != ""
}

// Probe reports the SDK as healthy once a key has been provided. No network
// call is made.
func (s *Services) Probe(_ context.Context) health.ProbeResult {
	if !s.Configured() {
		return health.ProbeResult{Name: probeName, OK: false, Error: "api key not provided"}
	}
	return health.ProbeResult{Name: probeName, OK: true}
}

// ConfigureStep returns the launch step that hands key to svc. The result of
// ProvideAPIKey is not inspected.
func ConfigureStep(svc *Services, key string) launch.Step {
	return launch.NamedStep(StepName, func(context.Context, launch.Options) {
		svc.ProvideAPIKey(key)
	})
}

// Fingerprint returns a short, non-reversible tag for key suitable for logs.
func Fingerprint(key string) string {
	if key == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:4])
}

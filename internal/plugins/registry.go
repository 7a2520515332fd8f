// Package plugins implements the process extension registry and the launch
// step that attaches plugin capabilities to it.
//
// A Plugin registers one or more named capabilities. Registration must not
// perform I/O: capabilities connect lazily when first probed or used.
package plugins

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"arc-framework/launchpad/internal/health"
	"arc-framework/launchpad/internal/launch"
)

// StepName identifies the registration step in launch reports.
const StepName = "plugins.register"

var (
	// ErrCapabilityNotFound is returned by Lookup for unknown names.
	ErrCapabilityNotFound = errors.New("capability not found")

	// ErrUnknownPlugin is returned by Build for plugin names it cannot map.
	ErrUnknownPlugin = errors.New("unknown plugin")
)

// Plugin is an independently packaged extension that attaches itself to the
// registry.
type Plugin interface {
	Name() string
	Register(r *Registry)
}

// Announcer is implemented by capabilities that publish the outcome of a
// launch somewhere outside the process.
type Announcer interface {
	Announce(ctx context.Context, report *launch.Report) error
}

// Registry is the process's extension registry.
type Registry struct {
	mu    sync.RWMutex
	order []string
	caps  map[string]any
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{caps: make(map[string]any)}
}

// Provide registers capability under name. Providing an existing name
// replaces the capability but keeps its original position.
func (r *Registry) Provide(name string, capability any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.caps[name]; !exists {
		r.order = append(r.order, name)
	} else {
		slog.Warn("capability replaced", "capability", name)
	}
	r.caps[name] = capability
}

// Lookup returns the capability registered under name.
func (r *Registry) Lookup(name string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caps[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCapabilityNotFound, name)
	}
	return c, nil
}

// Names returns capability names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Probers returns the capabilities that can report their health, keyed by
// capability name.
func (r *Registry) Probers() map[string]health.Prober {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]health.Prober, len(r.caps))
	for name, c := range r.caps {
		if p, ok := c.(health.Prober); ok {
			out[name] = p
		}
	}
	return out
}

// Announce hands report to every Announcer capability in registration order.
// Failures are logged and joined; one failing announcer does not stop the rest.
func (r *Registry) Announce(ctx context.Context, report *launch.Report) error {
	var errs []error
	for _, name := range r.Names() {
		c, err := r.Lookup(name)
		if err != nil {
			continue
		}
		a, ok := c.(Announcer)
		if !ok {
			continue
		}
		if err := a.Announce(ctx, report); err != nil {
			slog.WarnContext(ctx, "launch announcement failed", "capability", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		slog.DebugContext(ctx, "launch announced", "capability", name)
	}
	return errors.Join(errs...)
}

// RegisterAll registers each plugin with r in the given order.
func RegisterAll(r *Registry, plugins ...Plugin) {
	for _, p := range plugins {
		p.Register(r)
		slog.Info("plugin registered", "plugin", p.Name())
	}
}

// RegisterStep returns the launch step that registers plugins with r. The
// plugin list is fixed when the step is built.
func RegisterStep(r *Registry, plugins []Plugin) launch.Step {
	list := append([]Plugin(nil), plugins...)
	return launch.NamedStep(StepName, func(context.Context, launch.Options) {
		RegisterAll(r, list...)
	})
}

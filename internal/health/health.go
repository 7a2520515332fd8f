// Package health aggregates readiness probes across launch-time collaborators.
package health

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ProbeResult is the outcome of probing one dependency.
type ProbeResult struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// Prober is implemented by anything that can report its own health.
type Prober interface {
	Probe(ctx context.Context) ProbeResult
}

// Check probes every entry concurrently and returns results keyed by the
// same names. A failing probe never cancels its siblings.
func Check(ctx context.Context, probers map[string]Prober) map[string]ProbeResult {
	results := make(map[string]ProbeResult, len(probers))
	var mu sync.Mutex

	// Plain group: a failed probe must not cancel the context of the others.
	var g errgroup.Group
	for name, p := range probers {
		name, p := name, p
		g.Go(func() error {
			probe := p.Probe(ctx)
			mu.Lock()
			results[name] = probe
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// AllOK reports whether every result is healthy. An empty set is healthy.
func AllOK(results map[string]ProbeResult) bool {
	for _, r := range results {
		if !r.OK {
			return false
		}
	}
	return true
}

package api

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"arc-framework/launchpad/internal/config"
	"arc-framework/launchpad/internal/health"
	"arc-framework/launchpad/internal/launch"
	"arc-framework/launchpad/internal/maps"
	"arc-framework/launchpad/internal/plugins"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCapability immediately returns a successful probe.
type stubCapability struct{ name string }

func (s *stubCapability) Probe(_ context.Context) health.ProbeResult {
	return health.ProbeResult{Name: s.name, OK: true, LatencyMs: 1}
}

// stubPlugin provides a stubCapability under its own name.
type stubPlugin struct{ name string }

func (p *stubPlugin) Name() string { return p.name }
func (p *stubPlugin) Register(r *plugins.Registry) {
	r.Provide(p.name, &stubCapability{name: p.name})
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second}
}

// --- Server as launch handler ---

func TestServer_OnLaunchBindsAndServes(t *testing.T) {
	t.Parallel()

	srv := NewServer("127.0.0.1:0", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), testServerConfig())

	require.True(t, srv.OnLaunch(context.Background(), launch.NewOptions(nil)))
	defer srv.Shutdown(context.Background()) //nolint:errcheck

	resp, err := http.Get("http://" + srv.Addr() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}

func TestServer_OnLaunchReturnsFalseWhenAddressInUse(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := NewServer(ln.Addr().String(), http.NotFoundHandler(), testServerConfig())
	assert.False(t, srv.OnLaunch(context.Background(), launch.NewOptions(nil)))
	assert.Equal(t, ln.Addr().String(), srv.Addr())
}

func TestServer_ServeFailureReportedOnErr(t *testing.T) {
	t.Parallel()

	srv := NewServer("127.0.0.1:0", http.NotFoundHandler(), testServerConfig())
	require.True(t, srv.OnLaunch(context.Background(), launch.NewOptions(nil)))
	defer srv.Shutdown(context.Background()) //nolint:errcheck

	// Closing the listener under the running server makes Serve fail.
	require.NoError(t, srv.ln.Close())

	select {
	case err := <-srv.Err():
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server error")
	case <-time.After(3 * time.Second):
		t.Fatal("expected a serve error on Err()")
	}
}

func TestServer_ShutdownIsNotReportedOnErr(t *testing.T) {
	t.Parallel()

	srv := NewServer("127.0.0.1:0", http.NotFoundHandler(), testServerConfig())
	require.True(t, srv.OnLaunch(context.Background(), launch.NewOptions(nil)))
	require.NoError(t, srv.Shutdown(context.Background()))

	select {
	case err := <-srv.Err():
		t.Fatalf("unexpected error after shutdown: %v", err)
	case <-time.After(200 * time.Millisecond):
	}
}

// --- Integration test ---

// TestLaunchFlow_ServerBaseThenReady verifies the full launch happy-path:
//  1. the sequencer configures maps and registers plugins, then brings up the server
//  2. GET /ready returns 200 once the launch report is recorded
//  3. GET /api/v1/launch and /api/v1/plugins reflect what ran
func TestLaunchFlow_ServerBaseThenReady(t *testing.T) {
	t.Parallel()

	svc := &maps.Services{}
	registry := plugins.NewRegistry()
	pluginList := []plugins.Plugin{&stubPlugin{name: "kv"}, &stubPlugin{name: "events"}}

	// The router reads launch state from the sequencer, which is built after
	// the server it wraps. seqRef closes that loop.
	seqRef := &sequencerRef{}
	router := NewRouter(Deps{
		Launch:      seqRef,
		Registry:    registry,
		Maps:        svc,
		ServiceName: "arc-launchpad-test",
	})
	srv := NewServer("127.0.0.1:0", router.Handler(), testServerConfig())
	defer srv.Shutdown(context.Background()) //nolint:errcheck

	seq := launch.New(srv, []launch.Step{
		maps.ConfigureStep(svc, "test-key"),
		plugins.RegisterStep(registry, pluginList),
	})
	seqRef.seq = seq

	require.True(t, seq.OnLaunch(context.Background(), launch.NewOptions(nil)))

	base := "http://" + srv.Addr()
	client := &http.Client{Timeout: 2 * time.Second}

	// Step 2: GET /ready → 200
	resp, err := client.Get(base + "/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "GET /ready should return 200 after launch")

	// Step 3: the report lists both steps in order.
	resp, err = client.Get(base + "/api/v1/launch")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report launch.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	require.Len(t, report.Steps, 2)
	assert.Equal(t, maps.StepName, report.Steps[0].Name)
	assert.Equal(t, plugins.StepName, report.Steps[1].Name)
	assert.True(t, report.Result)

	resp2, err := client.Get(base + "/api/v1/plugins")
	require.NoError(t, err)
	defer resp2.Body.Close()

	var body struct {
		Capabilities []string `json:"capabilities"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&body))
	assert.Equal(t, []string{"kv", "events"}, body.Capabilities)

	resp3, err := client.Get(base + "/health/deep")
	require.NoError(t, err)
	resp3.Body.Close()
	assert.Equal(t, http.StatusOK, resp3.StatusCode)
}

func TestLaunchFlow_BindFailureRefusesLaunch(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	svc := &maps.Services{}
	registry := plugins.NewRegistry()
	srv := NewServer(ln.Addr().String(), http.NotFoundHandler(), testServerConfig())

	seq := launch.New(srv, []launch.Step{
		maps.ConfigureStep(svc, "test-key"),
		plugins.RegisterStep(registry, []plugins.Plugin{&stubPlugin{name: "store"}}),
	})

	assert.False(t, seq.OnLaunch(context.Background(), launch.NewOptions(nil)))
	// Steps still ran before the base refused.
	assert.True(t, svc.Configured())
	assert.Equal(t, []string{"store"}, registry.Names())
	assert.False(t, seq.Launched())
}

// sequencerRef defers to a sequencer assigned after router construction.
type sequencerRef struct {
	seq *launch.Sequencer
}

func (r *sequencerRef) LastReport() *launch.Report {
	if r.seq == nil {
		return nil
	}
	return r.seq.LastReport()
}

func (r *sequencerRef) Launched() bool {
	return r.seq != nil && r.seq.Launched()
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"arc-framework/launchpad/internal/config"
	"arc-framework/launchpad/internal/launch"
	"arc-framework/launchpad/internal/maps"
	"arc-framework/launchpad/internal/metrics"
	"arc-framework/launchpad/internal/plugins"
	"arc-framework/launchpad/internal/telemetry"
)

// AppContext holds all constructed application dependencies shared across
// subcommands. It is built once in PersistentPreRunE.
type AppContext struct {
	cfg          *config.Config
	otelProvider *telemetry.Provider
	maps         *maps.Services
	registry     *plugins.Registry
	plugins      []plugins.Plugin
	metrics      http.Handler
	observer     *metrics.LaunchMetrics
}

// buildAppContext constructs all application dependencies from cfg:
//  1. Initialises the OTEL provider (best-effort, non-fatal)
//  2. Builds the enabled plugins in configured order
//  3. Creates the empty capability registry and maps SDK surface
//  4. Creates the Prometheus registry and launch metrics
func buildAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	app := &AppContext{cfg: cfg}

	// When OTLPEndpoint is empty, telemetry is disabled entirely so the SDK's
	// periodic reader does not log export failures with no collector running.
	if cfg.Telemetry.OTLPEndpoint == "" {
		slog.Info("OTEL telemetry disabled (no endpoint configured)")
	} else {
		tp, err := telemetry.InitProvider(ctx, cfg.Telemetry)
		if err != nil {
			slog.Warn("OTEL provider init failed, telemetry disabled", "err", err)
		} else {
			app.otelProvider = tp
		}
	}

	pl, err := plugins.Build(cfg.Plugins)
	if err != nil {
		return nil, fmt.Errorf("building plugins: %w", err)
	}
	app.plugins = pl
	app.registry = plugins.NewRegistry()
	app.maps = &maps.Services{}

	reg := metrics.NewRegistry()
	app.observer = metrics.NewLaunchMetrics(reg)
	app.metrics = metrics.Handler(reg)

	return app, nil
}

// sequencer returns the launch sequence delegating to base: configure the
// maps SDK, then register plugins.
func (a *AppContext) sequencer(base launch.Handler) *launch.Sequencer {
	return launch.New(base, []launch.Step{
		maps.ConfigureStep(a.maps, a.cfg.Maps.APIKey),
		plugins.RegisterStep(a.registry, a.plugins),
	}, launch.WithObserver(a.observer))
}

// announce hands the launch report to every registered capability. Failures
// are logged and never change the launch result.
func (a *AppContext) announce(ctx context.Context, report *launch.Report) {
	if report == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Launch.AnnounceTimeout)
	defer cancel()

	if err := a.registry.Announce(ctx, report); err != nil {
		slog.WarnContext(ctx, "launch announcement incomplete", "launch_id", report.ID.String(), "err", err)
	}
}

// shutdown flushes telemetry. It is safe to call when OTEL is disabled.
func (a *AppContext) shutdown() {
	if a.otelProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.otelProvider.Shutdown(ctx); err != nil {
		slog.Warn("OTEL shutdown error", "err", err)
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"arc-framework/launchpad/internal/api"
	"arc-framework/launchpad/internal/launch"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the launch sequence with the HTTP API as base handler",
	Long: `Start Launchpad as a long-running host. The launch sequence runs first;
its base handler binds the HTTP API on the configured port (default :8082).

The command exits non-zero if the launch is refused, for example when the
port cannot be bound. It shuts down cleanly on SIGTERM or SIGINT.`,
	RunE: runServer,
}

func runServer(cmd *cobra.Command, args []string) error {
	defer app.shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The router reads launch state from the sequencer, and the sequencer's
	// base is the server hosting that router.
	var srv *api.Server
	seq := app.sequencer(launch.HandlerFunc(func(ctx context.Context, opts launch.Options) bool {
		return srv.OnLaunch(ctx, opts)
	}))

	router := api.NewRouter(api.Deps{
		Launch:      seq,
		Registry:    app.registry,
		Maps:        app.maps,
		Metrics:     app.metrics,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	srv = api.NewServer(fmt.Sprintf(":%d", cfg.Server.Port), router.Handler(), cfg.Server)

	if !seq.OnLaunch(ctx, launch.NewOptions(cfg.LaunchOptions())) {
		return errLaunchRefused
	}
	app.announce(ctx, seq.LastReport())

	select {
	case err := <-srv.Err():
		return err
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutCtx); err != nil {
		return err
	}

	slog.Info("server stopped cleanly")
	return nil
}

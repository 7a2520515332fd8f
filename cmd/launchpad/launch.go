package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"arc-framework/launchpad/internal/launch"

	"github.com/spf13/cobra"
)

// errLaunchRefused is returned when the base handler refuses the launch.
var errLaunchRefused = errors.New("launch refused")

var launchOptions map[string]string

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Run the launch sequence once and exit",
	Long: `Launch configures the mapping SDK and registers the enabled plugins,
then hands the launch event to a base handler that always proceeds.

The command prints the JSON launch report to stdout and exits 0 when the
launch proceeded, non-zero otherwise.`,
	RunE: runLaunch,
}

func init() {
	launchCmd.Flags().StringToStringVar(&launchOptions, "option", nil,
		"launch option as key=value (repeatable; overrides launch.options)")
}

func runLaunch(cmd *cobra.Command, args []string) error {
	defer app.shutdown()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	opts := buildOptions(cfg.LaunchOptions(), launchOptions)
	seq := app.sequencer(launch.Proceed)

	slog.InfoContext(ctx, "starting launch", "steps", seq.StepNames())

	ok := seq.OnLaunch(ctx, opts)
	report := seq.LastReport()
	app.announce(ctx, report)

	printReport(cmd.OutOrStdout(), report)
	if !ok {
		return errLaunchRefused
	}
	return nil
}

// buildOptions overlays flag values on the configured options. Flag keys are
// lower-cased to match keys loaded from config.
func buildOptions(configured map[string]any, flags map[string]string) launch.Options {
	merged := make(map[string]any, len(configured)+len(flags))
	for k, v := range configured {
		merged[k] = v
	}
	for k, v := range flags {
		merged[strings.ToLower(k)] = v
	}
	return launch.NewOptions(merged)
}

func printReport(w io.Writer, report *launch.Report) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		// Fallback to a minimal document if encoding somehow fails.
		fmt.Fprintf(w, `{"result":%t}`+"\n", report != nil && report.Result)
	}
}

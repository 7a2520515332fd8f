package main

import (
	"encoding/json"
	"io"

	"arc-framework/launchpad/internal/plugins"

	"github.com/spf13/cobra"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List the configured plugins in registration order",
	RunE: func(cmd *cobra.Command, args []string) error {
		defer app.shutdown()
		return printPlugins(cmd.OutOrStdout(), app.plugins)
	},
}

func printPlugins(w io.Writer, pl []plugins.Plugin) error {
	names := make([]string, 0, len(pl))
	for _, p := range pl {
		names = append(names, p.Name())
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string][]string{"plugins": names})
}

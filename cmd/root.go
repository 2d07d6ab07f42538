package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Channel-isolated 1C/MCP command bridge",
	Long: `bridge multiplexes MCP tool calls across isolated channels and hands
them off to long-polling 1C business clients, correlating each command with
its eventual result.`,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command, exiting non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

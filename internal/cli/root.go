// Package cli implements scenectl, the offline tool for checking scene files and
// replaying command-model replies against them.
package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "scenectl",
	Short: "Validate and edit Home Designer scene files",
	Long: `scenectl validates scene documents written as JSON or YAML and applies
operation batches to them without a running server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// SetVersion sets the version printed by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

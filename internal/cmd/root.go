package cmd

import (
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

// NewRootCommand creates and returns the root cobra command for drivescan
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drivescan",
		Short: "Resumable text search across all mounted drives",
		Long: `Drivescan searches every mounted drive for a literal text pattern,
reporting live progress against estimated file counts.

A scan can be paused and resumed at any point, including across process
restarts: progress is checkpointed to a snapshot so an interrupted scan
picks up where it left off instead of starting over. Matches are stored
durably as they are found.`,
		Version: Version,
		// Silence usage on errors to avoid duplicate help text
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "Path to config file (default: .drivescan/config.yaml)")
	cmd.PersistentFlags().String("state-dir", "", "Directory for snapshots, caches and the match database")

	// Add subcommands
	cmd.AddCommand(NewScanCommand())
	cmd.AddCommand(NewResumeCommand())
	cmd.AddCommand(NewStatusCommand())
	cmd.AddCommand(NewReportCommand())
	cmd.AddCommand(NewWatchCommand())

	return cmd
}

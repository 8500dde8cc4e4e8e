package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/harrison/drivescan/internal/progress"
	"github.com/harrison/drivescan/internal/snapshot"
)

// NewStatusCommand creates the status command
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the current or last saved scan",
		Long: `Show the saved state of the current scan session.

Reads the snapshot in the state directory and prints the session
pattern, overall progress, and a per-drive breakdown of processed
against estimated file counts.`,
		Args: cobra.NoArgs,
		RunE: statusCommand,
	}
}

// statusCommand implements the status command logic
func statusCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)

	store := snapshot.NewStore(cfg.SnapshotPath(), log)
	doc := store.Load()
	if doc == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "No scan in progress (no snapshot in %s).\n", cfg.StateDir)
		return nil
	}

	out := cmd.OutOrStdout()
	states := docDriveStates(doc)
	report := progress.Aggregate(states)

	fmt.Fprintf(out, "Session:  %s\n", doc.Session.ID)
	fmt.Fprintf(out, "Pattern:  %q\n", doc.Session.Pattern)
	fmt.Fprintf(out, "Status:   %s\n", doc.Session.Status)
	fmt.Fprintf(out, "Started:  %s\n", humanize.Time(doc.Session.CreatedAt))
	if !doc.Session.LastSavedAt.IsZero() {
		fmt.Fprintf(out, "Saved:    %s\n", humanize.Time(doc.Session.LastSavedAt))
	}
	fmt.Fprintf(out, "Progress: %.1f%%\n\n", report.OverallPercent)

	fmt.Fprintf(out, "Drives:\n")
	for _, d := range report.Drives {
		fmt.Fprintf(out, "  %-30s %-10s %s / %s files (%.1f%%)\n",
			d.ID, d.Status,
			humanize.Comma(d.Processed), humanize.Comma(d.Estimate),
			d.Fraction*100)
	}
	return nil
}

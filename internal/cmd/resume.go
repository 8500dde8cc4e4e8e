package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/drivescan/internal/snapshot"
)

// NewResumeCommand creates the resume command
func NewResumeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Continue an interrupted scan from its snapshot",
		Long: `Continue a previously paused or interrupted scan.

The scan resumes from the last saved snapshot: drives already finished
stay finished, and partially scanned drives skip the files they already
covered. Matches found before the interruption are not re-reported.

Drives unmounted since the snapshot are excluded; newly mounted drives
join the scan from the beginning.`,
		Args: cobra.NoArgs,
		RunE: resumeCommand,
	}

	cmd.Flags().Int("max-concurrency", 0, "Maximum concurrent drive walkers (0 = use config)")
	cmd.Flags().Bool("verbose", false, "Show detailed progress information")

	return cmd
}

// resumeCommand implements the resume command logic
func resumeCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)

	// Check for a snapshot up front for a friendlier error than the
	// controller's pattern-or-snapshot message.
	store := snapshot.NewStore(cfg.SnapshotPath(), log)
	doc := store.Load()
	if doc == nil {
		return fmt.Errorf("no interrupted scan to resume (no snapshot in %s)", cfg.StateDir)
	}

	ctrl, cleanup, err := buildController(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Fprintf(cmd.OutOrStdout(), "Resuming search for %q...\n", doc.Session.Pattern)
	if err := ctrl.Start(context.Background()); err != nil {
		return err
	}
	return followScan(cmd, ctrl)
}

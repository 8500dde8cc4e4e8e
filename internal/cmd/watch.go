package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/harrison/drivescan/internal/models"
)

// defaultWatchSchedule re-runs the scan every ten minutes, matching the
// cadence drives typically change at.
const defaultWatchSchedule = "*/10 * * * *"

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <pattern>",
		Short: "Periodically re-scan all drives for a pattern",
		Long: `Repeatedly scan all mounted drives for a pattern on a schedule.

Each cycle runs a full scan to completion. An interrupted cycle resumes
from its snapshot on the next run instead of starting over. Newly
mounted drives join the next cycle automatically.

The schedule is a standard five-field cron expression.

Examples:
  drivescan watch "ERROR"                        # Every 10 minutes
  drivescan watch --schedule "0 * * * *" "foo"   # Hourly
  drivescan watch --schedule "*/5 * * * *" "foo" # Every 5 minutes`,
		Args: cobra.ExactArgs(1),
		RunE: watchCommand,
	}

	cmd.Flags().String("schedule", defaultWatchSchedule, "Cron expression for scan cycles")
	cmd.Flags().Bool("case-sensitive", false, "Match pattern case exactly")
	cmd.Flags().Bool("include-hidden", false, "Include hidden files and directories")
	cmd.Flags().Int("max-concurrency", 0, "Maximum concurrent drive walkers (0 = use config)")
	cmd.Flags().Bool("verbose", false, "Show detailed progress information")

	return cmd
}

// watchCommand implements the watch command logic
func watchCommand(cmd *cobra.Command, args []string) error {
	scheduleExpr, _ := cmd.Flags().GetString("schedule")
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(scheduleExpr)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", scheduleExpr, err)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)
	out := cmd.OutOrStdout()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	fmt.Fprintf(out, "Watching for %q (schedule %q). Press Ctrl-C to stop.\n", args[0], scheduleExpr)

	// First cycle runs immediately; later cycles follow the schedule.
	for {
		if err := watchCycle(cmd, args[0], cfg.CaseSensitive); err != nil {
			log.LogError(fmt.Sprintf("scan cycle failed: %v", err))
		}

		next := schedule.Next(time.Now())
		fmt.Fprintf(out, "Next scan at %s.\n", next.Format("15:04:05"))

		select {
		case <-time.After(time.Until(next)):
		case <-sigCh:
			fmt.Fprintf(out, "\nWatch stopped.\n")
			return nil
		}
	}
}

// watchCycle runs one full scan. Interrupts during the cycle pause the
// scan (saving a snapshot) so the next cycle resumes it.
func watchCycle(cmd *cobra.Command, pattern string, caseSensitive bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)

	ctrl, cleanup, err := buildController(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := ctrl.SetPattern(pattern, models.SearchOptions{CaseSensitive: caseSensitive}); err != nil {
		return err
	}
	if err := ctrl.Start(context.Background()); err != nil {
		return err
	}
	return followScan(cmd, ctrl)
}

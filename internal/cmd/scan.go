package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harrison/drivescan/internal/logger"
	"github.com/harrison/drivescan/internal/models"
	"github.com/harrison/drivescan/internal/scan"
)

// NewScanCommand creates the scan command
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <pattern>",
		Short: "Search all mounted drives for a text pattern",
		Long: `Search every mounted drive for a literal text pattern.

Drives are discovered from the system mount table; system and virtual
filesystems are excluded. Each drive is counted and searched concurrently,
with live progress against estimated file counts that sharpen as real
counts complete.

Press Ctrl-C to pause: progress is saved to a snapshot and the scan can
be continued later with 'drivescan resume'. Starting a scan with a
different pattern supersedes any pending snapshot.

Examples:
  drivescan scan "TODO"                      # Case-insensitive search
  drivescan scan --case-sensitive "Foo"      # Exact case
  drivescan scan --include-hidden "secret"   # Include dot-files
  drivescan scan --max-concurrency 8 "foo"   # More parallel walkers`,
		Args: cobra.ExactArgs(1),
		RunE: scanCommand,
	}

	cmd.Flags().Bool("case-sensitive", false, "Match pattern case exactly")
	cmd.Flags().Bool("include-hidden", false, "Include hidden files and directories")
	cmd.Flags().Int("max-concurrency", 0, "Maximum concurrent drive walkers (0 = use config)")
	cmd.Flags().Bool("verbose", false, "Show detailed progress information")

	return cmd
}

// scanCommand implements the scan command logic
func scanCommand(cmd *cobra.Command, args []string) error {
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

	if err := ctrl.SetPattern(args[0], models.SearchOptions{CaseSensitive: cfg.CaseSensitive}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Searching for %q across all drives...\n", args[0])
	if err := ctrl.Start(context.Background()); err != nil {
		return err
	}
	return followScan(cmd, ctrl)
}

// followScan consumes controller events until the scan reaches a terminal
// state or the user interrupts it. The first interrupt pauses the scan and
// saves a snapshot; the scan is then continued with 'drivescan resume'.
func followScan(cmd *cobra.Command, ctrl *scan.Controller) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	out := cmd.OutOrStdout()
	live := stdoutIsTerminal()
	bar := logger.NewProgressBar(40, live)
	lastWhole := -1
	matchCount := 0

	for {
		select {
		case e, ok := <-ctrl.Events():
			if !ok {
				if live {
					fmt.Fprintln(out)
				}
				return summarizeScan(out, ctrl, matchCount)
			}
			switch ev := e.(type) {
			case scan.ProgressEvent:
				bar.Update(ev.Report.OverallPercent)
				if live {
					fmt.Fprintf(out, "\r\033[K%s", bar.Render())
				} else if whole := int(ev.Report.OverallPercent); whole != lastWhole {
					lastWhole = whole
					fmt.Fprintf(out, "Progress: %d%%\n", whole)
				}
			case scan.MatchEvent:
				matchCount++
				if live {
					fmt.Fprintf(out, "\r\033[K")
				}
				fmt.Fprintf(out, "Match: %s (offset %d)\n", ev.Match.Path, ev.Match.Offset)
				if ev.Match.Snippet != "" {
					fmt.Fprintf(out, "  %s\n", ev.Match.Snippet)
				}
				if live {
					fmt.Fprintf(out, "%s", bar.Render())
				}
			case scan.StatusEvent:
				if ev.Err != nil {
					if live {
						fmt.Fprintf(out, "\r\033[K")
					}
					fmt.Fprintf(cmd.OutOrStderr(), "Warning: %v\n", ev.Err)
				}
			}

		case <-sigCh:
			fmt.Fprintf(out, "\nPausing scan, saving progress...\n")
			if err := ctrl.Pause(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Scan paused. Run 'drivescan resume' to continue.\n")
			return nil
		}
	}
}

// summarizeScan prints the terminal-state summary and maps it to the
// process exit status.
func summarizeScan(out io.Writer, ctrl *scan.Controller, matchCount int) error {
	session := ctrl.Session()
	if session == nil {
		return nil
	}

	switch session.Status() {
	case models.SessionCompleted:
		fmt.Fprintf(out, "\nScan complete: %d match(es) found.\n", matchCount)
		for _, ds := range session.DriveStates() {
			fmt.Fprintf(out, "  %s: %d files processed (%s)\n",
				ds.Drive.ID, ds.Progress.FilesProcessed, ds.Drive.Status)
		}
		return nil
	case models.SessionCancelled:
		fmt.Fprintf(out, "\nScan cancelled.\n")
		return nil
	default:
		return fmt.Errorf("scan ended in state %s", session.Status())
	}
}

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrison/drivescan/internal/matchdb"
	"github.com/harrison/drivescan/internal/report"
	"github.com/harrison/drivescan/internal/snapshot"
)

// NewReportCommand creates the report command
func NewReportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render the session's matches as a markdown or HTML report",
		Long: `Render a report of the current session's results.

Combines the saved snapshot with the durable match database into a
markdown document: per-drive coverage summary plus every match with
its path, byte offset and snippet. With --html the markdown is
converted to HTML.

Examples:
  drivescan report                       # Markdown to stdout
  drivescan report -o results.md         # Markdown to file
  drivescan report --html -o report.html # HTML to file`,
		Args: cobra.NoArgs,
		RunE: reportCommand,
	}

	cmd.Flags().Bool("html", false, "Render HTML instead of markdown")
	cmd.Flags().StringP("output", "o", "", "Write the report to a file instead of stdout")

	return cmd
}

// reportCommand implements the report command logic
func reportCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)

	store := snapshot.NewStore(cfg.SnapshotPath(), log)
	doc := store.Load()
	if doc == nil {
		return fmt.Errorf("no scan session to report on (no snapshot in %s)", cfg.StateDir)
	}

	matches, err := matchdb.NewStore(cfg.MatchDBPath())
	if err != nil {
		return fmt.Errorf("failed to open match database: %w", err)
	}
	defer matches.Close()

	hits, err := matches.Matches(doc.Session.ID)
	if err != nil {
		return fmt.Errorf("failed to load matches: %w", err)
	}

	in := report.Input{
		SessionID:   doc.Session.ID,
		Pattern:     doc.Session.Pattern,
		GeneratedAt: time.Now(),
		Drives:      docDriveStates(doc),
		Matches:     hits,
	}

	var rendered string
	if html, _ := cmd.Flags().GetBool("html"); html {
		rendered, err = report.HTML(in)
		if err != nil {
			return err
		}
	} else {
		rendered = report.Markdown(in)
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		if err := os.WriteFile(output, []byte(rendered), 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", output)
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}

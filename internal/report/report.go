// Package report renders a session's results as markdown, with optional
// HTML conversion for sharing outside the terminal.
package report

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/harrison/drivescan/internal/models"
	"github.com/harrison/drivescan/internal/progress"
)

// Input bundles everything a report needs: the session's drive states and
// the durable matches grouped however the caller fetched them.
type Input struct {
	SessionID   string
	Pattern     string
	GeneratedAt time.Time
	Drives      []models.DriveState
	Matches     []models.Match
}

// Markdown renders the report document.
func Markdown(in Input) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Drive Search Report\n\n")
	fmt.Fprintf(&sb, "- **Pattern:** `%s`\n", in.Pattern)
	fmt.Fprintf(&sb, "- **Session:** %s\n", in.SessionID)
	fmt.Fprintf(&sb, "- **Generated:** %s\n", in.GeneratedAt.Format(time.RFC1123))
	fmt.Fprintf(&sb, "- **Overall progress:** %.1f%%\n\n", progress.Aggregate(in.Drives).OverallPercent)

	matchesByDrive := make(map[string][]models.Match)
	for _, m := range in.Matches {
		matchesByDrive[m.DriveID] = append(matchesByDrive[m.DriveID], m)
	}

	sb.WriteString("## Drives\n\n")
	sb.WriteString("| Drive | Status | Size | Processed | Estimated | Skipped | Matches |\n")
	sb.WriteString("|-------|--------|------|-----------|-----------|---------|--------|\n")
	for _, ds := range in.Drives {
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %s | %s (%s) | %s | %d |\n",
			ds.Drive.ID,
			ds.Drive.Status,
			humanize.Bytes(ds.Drive.TotalBytes),
			humanize.Comma(ds.Progress.FilesProcessed),
			humanize.Comma(ds.Estimate.Files),
			estimateLabel(ds.Estimate.Source),
			humanize.Comma(ds.Progress.SkippedFiles),
			len(matchesByDrive[ds.Drive.ID]),
		)
	}
	sb.WriteString("\n")

	if dirs := topDirectories(in.Matches); len(dirs) > 0 {
		sb.WriteString("## Directories with matches\n\n")
		for _, dir := range dirs {
			fmt.Fprintf(&sb, "- `%s`\n", dir)
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "## Matches (%d)\n\n", len(in.Matches))
	if len(in.Matches) == 0 {
		sb.WriteString("No matches found.\n")
		return sb.String()
	}

	for _, ds := range in.Drives {
		hits := matchesByDrive[ds.Drive.ID]
		if len(hits) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "### %s\n\n", ds.Drive.ID)
		for _, m := range hits {
			fmt.Fprintf(&sb, "- `%s` at byte %d\n", m.Path, m.Offset)
			if m.Snippet != "" {
				fmt.Fprintf(&sb, "  > %s\n", m.Snippet)
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// topDirectories lists the distinct parent directories of all matches,
// sorted, so clustered results are visible at a glance.
func topDirectories(matches []models.Match) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, m := range matches {
		dir := filepath.Dir(m.Path)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs
}

// estimateLabel maps estimate provenance to the label shown in reports.
func estimateLabel(source models.EstimateSource) string {
	switch source {
	case models.SourceCachedActual:
		return "counted"
	case models.SourceProportional:
		return "proportional"
	default:
		return "placeholder"
	}
}

// HTML converts the markdown report to a standalone HTML fragment. Tables
// need the GFM extension; plain goldmark would drop them.
func HTML(in Input) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert([]byte(Markdown(in)), &buf); err != nil {
		return "", fmt.Errorf("failed to render report HTML: %w", err)
	}
	return buf.String(), nil
}

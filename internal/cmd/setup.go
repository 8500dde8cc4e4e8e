package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/harrison/drivescan/internal/config"
	"github.com/harrison/drivescan/internal/drive"
	"github.com/harrison/drivescan/internal/estimate"
	"github.com/harrison/drivescan/internal/logger"
	"github.com/harrison/drivescan/internal/matchdb"
	"github.com/harrison/drivescan/internal/models"
	"github.com/harrison/drivescan/internal/scan"
	"github.com/harrison/drivescan/internal/snapshot"
)

// loadConfig resolves configuration from --config (explicit path) or the
// default location inside the state directory, then applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	stateDir, _ := cmd.Flags().GetString("state-dir")

	if configPath == "" {
		dir := stateDir
		if dir == "" {
			dir = config.DefaultConfig().StateDir
		}
		configPath = filepath.Join(dir, "config.yaml")
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// CLI flags override configuration file settings.
	if stateDir != "" {
		cfg.StateDir = stateDir
	}
	if cmd.Flags().Lookup("max-concurrency") != nil && cmd.Flags().Changed("max-concurrency") {
		cfg.MaxConcurrency, _ = cmd.Flags().GetInt("max-concurrency")
	}
	if cmd.Flags().Lookup("include-hidden") != nil && cmd.Flags().Changed("include-hidden") {
		cfg.IncludeHidden, _ = cmd.Flags().GetBool("include-hidden")
	}
	if cmd.Flags().Lookup("case-sensitive") != nil && cmd.Flags().Changed("case-sensitive") {
		cfg.CaseSensitive, _ = cmd.Flags().GetBool("case-sensitive")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the console logger, honoring --verbose when present.
func newLogger(cmd *cobra.Command, cfg *config.Config) logger.Logger {
	level := cfg.LogLevel
	if cmd.Flags().Lookup("verbose") != nil {
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = "debug"
		}
	}
	return logger.NewConsoleLogger(os.Stderr, level)
}

// buildController assembles a controller over the real drive enumerator and
// the on-disk state directory. The returned cleanup closes the match store.
func buildController(cfg *config.Config, log logger.Logger) (*scan.Controller, func(), error) {
	if err := os.MkdirAll(cfg.StateDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create state directory %s: %w", cfg.StateDir, err)
	}

	matches, err := matchdb.NewStore(cfg.MatchDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open match database: %w", err)
	}

	enum := drive.NewEnumerator(log)
	provider := estimate.NewProvider(cfg.EstimateCachePath(), log)
	store := snapshot.NewStore(cfg.SnapshotPath(), log)

	ctrl := scan.NewController(cfg, enum, provider, store, matches, log, nil)
	cleanup := func() { matches.Close() }
	return ctrl, cleanup, nil
}

// stdoutIsTerminal reports whether stdout supports live progress redraw.
func stdoutIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// docDriveStates converts snapshot drive records into drive states, the
// shape the progress and report packages consume.
func docDriveStates(doc *snapshot.Document) []models.DriveState {
	out := make([]models.DriveState, 0, len(doc.Drives))
	for _, dr := range doc.Drives {
		out = append(out, models.DriveState{
			Drive: models.Drive{
				ID:         dr.ID,
				TotalBytes: dr.TotalBytes,
				UsedBytes:  dr.UsedBytes,
				Status:     dr.Status,
			},
			Estimate: models.DriveEstimate{
				DriveID: dr.ID,
				Files:   dr.Estimate,
				Source:  dr.EstimateSource,
			},
			Progress: models.DriveProgress{
				DriveID:        dr.ID,
				FilesProcessed: dr.FilesProcessed,
				StartCount:     dr.StartCount,
				SkippedFiles:   dr.SkippedFiles,
				MaxFiles:       dr.Estimate,
			},
		})
	}
	return out
}

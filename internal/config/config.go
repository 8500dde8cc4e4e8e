package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents drivescan configuration options
type Config struct {
	// MaxConcurrency bounds the number of concurrent walk workers per pool.
	// This limits outstanding disk operations, not CPU usage.
	MaxConcurrency int `yaml:"max_concurrency"`

	// SnapshotBatch triggers a snapshot every N processed files
	SnapshotBatch int64 `yaml:"snapshot_batch"`

	// SnapshotInterval triggers a snapshot every T elapsed, whichever of
	// batch/interval fires first
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`

	// MinFileSize is the smallest file (in bytes) evaluated against the pattern
	MinFileSize int64 `yaml:"min_file_size"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// StateDir is where snapshots, the estimate cache, the match database
	// and the process lock live
	StateDir string `yaml:"state_dir"`

	// ExcludeDirs are path prefixes excluded from every walk (system dirs)
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// IncludeHidden includes dot-directories and dot-files in walks
	IncludeHidden bool `yaml:"include_hidden"`

	// CaseSensitive is the default case sensitivity for pattern matching
	CaseSensitive bool `yaml:"case_sensitive"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		MaxConcurrency:   4,
		SnapshotBatch:    100,
		SnapshotInterval: 30 * time.Second,
		MinFileSize:      256,
		LogLevel:         "info",
		StateDir:         ".drivescan",
		ExcludeDirs: []string{
			"/proc", "/sys", "/dev", "/run",
			"/var/run", "/var/lock", "lost+found",
		},
		IncludeHidden: false,
		CaseSensitive: false,
	}
}

// SnapshotPath returns the path of the session snapshot file.
func (c *Config) SnapshotPath() string {
	return filepath.Join(c.StateDir, "snapshot.json")
}

// EstimateCachePath returns the path of the cached actual-count file.
func (c *Config) EstimateCachePath() string {
	return filepath.Join(c.StateDir, "estimates.json")
}

// MatchDBPath returns the path of the sqlite match database.
func (c *Config) MatchDBPath() string {
	return filepath.Join(c.StateDir, "matches.db")
}

// LockPath returns the path of the state directory lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.StateDir, "state.lock")
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Temporary struct so durations can be written as strings ("30s", "2m")
	type yamlConfig struct {
		MaxConcurrency   int      `yaml:"max_concurrency"`
		SnapshotBatch    int64    `yaml:"snapshot_batch"`
		SnapshotInterval string   `yaml:"snapshot_interval"`
		MinFileSize      int64    `yaml:"min_file_size"`
		LogLevel         string   `yaml:"log_level"`
		StateDir         string   `yaml:"state_dir"`
		ExcludeDirs      []string `yaml:"exclude_dirs"`
		IncludeHidden    bool     `yaml:"include_hidden"`
		CaseSensitive    bool     `yaml:"case_sensitive"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply non-zero values from file, merging with defaults
	if yamlCfg.MaxConcurrency != 0 {
		cfg.MaxConcurrency = yamlCfg.MaxConcurrency
	}
	if yamlCfg.SnapshotBatch != 0 {
		cfg.SnapshotBatch = yamlCfg.SnapshotBatch
	}
	if yamlCfg.SnapshotInterval != "" {
		interval, err := time.ParseDuration(yamlCfg.SnapshotInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid snapshot_interval format %q: %w", yamlCfg.SnapshotInterval, err)
		}
		cfg.SnapshotInterval = interval
	}
	if yamlCfg.MinFileSize != 0 {
		cfg.MinFileSize = yamlCfg.MinFileSize
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.StateDir != "" {
		cfg.StateDir = yamlCfg.StateDir
	}
	if len(yamlCfg.ExcludeDirs) > 0 {
		cfg.ExcludeDirs = yamlCfg.ExcludeDirs
	}
	if yamlCfg.IncludeHidden {
		cfg.IncludeHidden = yamlCfg.IncludeHidden
	}
	if yamlCfg.CaseSensitive {
		cfg.CaseSensitive = yamlCfg.CaseSensitive
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks configuration values for consistency.
func (c *Config) Validate() error {
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", c.MaxConcurrency)
	}
	if c.SnapshotBatch < 1 {
		return fmt.Errorf("snapshot_batch must be at least 1, got %d", c.SnapshotBatch)
	}
	if c.SnapshotInterval <= 0 {
		return fmt.Errorf("snapshot_interval must be positive, got %s", c.SnapshotInterval)
	}
	if c.MinFileSize < 0 {
		return fmt.Errorf("min_file_size must not be negative, got %d", c.MinFileSize)
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxConcurrency != 4 {
		t.Errorf("expected MaxConcurrency=4, got %d", cfg.MaxConcurrency)
	}
	if cfg.SnapshotBatch != 100 {
		t.Errorf("expected SnapshotBatch=100, got %d", cfg.SnapshotBatch)
	}
	if cfg.SnapshotInterval != 30*time.Second {
		t.Errorf("expected SnapshotInterval=30s, got %s", cfg.SnapshotInterval)
	}
	if cfg.MinFileSize != 256 {
		t.Errorf("expected MinFileSize=256, got %d", cfg.MinFileSize)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected LogLevel=info, got %s", cfg.LogLevel)
	}
	if cfg.IncludeHidden {
		t.Error("expected IncludeHidden=false by default")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("missing config file should not be an error: %v", err)
	}
	if cfg.MaxConcurrency != DefaultConfig().MaxConcurrency {
		t.Error("missing file should yield defaults")
	}
}

func TestLoadConfigMergesWithDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
max_concurrency: 8
snapshot_interval: 10s
state_dir: /var/lib/drivescan
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.MaxConcurrency != 8 {
		t.Errorf("expected MaxConcurrency=8, got %d", cfg.MaxConcurrency)
	}
	if cfg.SnapshotInterval != 10*time.Second {
		t.Errorf("expected SnapshotInterval=10s, got %s", cfg.SnapshotInterval)
	}
	if cfg.StateDir != "/var/lib/drivescan" {
		t.Errorf("expected custom state dir, got %s", cfg.StateDir)
	}
	// Untouched keys keep their defaults
	if cfg.SnapshotBatch != 100 {
		t.Errorf("expected default SnapshotBatch, got %d", cfg.SnapshotBatch)
	}
	if cfg.MinFileSize != 256 {
		t.Errorf("expected default MinFileSize, got %d", cfg.MinFileSize)
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("max_concurrency: [not a number"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadConfigInvalidInterval(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("snapshot_interval: soon"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := LoadConfig(path); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConcurrency = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for zero concurrency")
	}

	cfg = DefaultConfig()
	cfg.SnapshotBatch = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error for negative batch")
	}
}

func TestStatePaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StateDir = "/tmp/ds"

	if cfg.SnapshotPath() != "/tmp/ds/snapshot.json" {
		t.Errorf("unexpected snapshot path: %s", cfg.SnapshotPath())
	}
	if cfg.MatchDBPath() != "/tmp/ds/matches.db" {
		t.Errorf("unexpected match db path: %s", cfg.MatchDBPath())
	}
	if cfg.EstimateCachePath() != "/tmp/ds/estimates.json" {
		t.Errorf("unexpected estimate cache path: %s", cfg.EstimateCachePath())
	}
}

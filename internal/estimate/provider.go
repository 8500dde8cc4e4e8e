// Package estimate produces O(1) per-drive file-count estimates tagged with
// their provenance. An estimate is one of: a cached actual count from a
// completed counting pass, a proportional guess anchored on the system
// drive's used space, or a constant placeholder.
package estimate

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/harrison/drivescan/internal/filelock"
	"github.com/harrison/drivescan/internal/logger"
	"github.com/harrison/drivescan/internal/models"
)

const (
	// BaseDriveFallbackCount is the placeholder estimate used when nothing
	// is known about a drive.
	BaseDriveFallbackCount = 50_000

	// ReferenceDriveFallbackCount is the assumed file count of the reference
	// (system) drive, the anchor for proportional estimates.
	ReferenceDriveFallbackCount = 300_000
)

// Provider answers estimate queries without ever walking a directory.
// Completed counts are cached to disk so later sessions start with
// cached_actual provenance.
type Provider struct {
	mu            sync.Mutex
	cachePath     string
	actuals       map[string]int64
	referenceUsed uint64
	logger        logger.Logger
}

// NewProvider creates a provider backed by the cache file at cachePath.
// A missing or corrupt cache file yields an empty cache, never an error.
func NewProvider(cachePath string, log logger.Logger) *Provider {
	p := &Provider{
		cachePath: cachePath,
		actuals:   make(map[string]int64),
		logger:    log,
	}
	p.loadCache()
	return p
}

func (p *Provider) loadCache() {
	data, err := os.ReadFile(p.cachePath)
	if err != nil {
		if !os.IsNotExist(err) {
			p.logger.LogWarn(fmt.Sprintf("estimate cache unreadable, starting empty: %v", err))
		}
		return
	}
	var cached map[string]int64
	if err := json.Unmarshal(data, &cached); err != nil {
		p.logger.LogWarn(fmt.Sprintf("estimate cache corrupt, starting empty: %v", err))
		return
	}
	p.actuals = cached
}

// SetReferenceUsed records the used bytes of the reference drive for the
// proportional fallback. Zero disables proportional estimates.
func (p *Provider) SetReferenceUsed(bytes uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.referenceUsed = bytes
}

// Estimate returns the best O(1) estimate for a drive, in preference order:
// cached actual count, proportional to used space, constant placeholder.
func (p *Provider) Estimate(d models.Drive) models.DriveEstimate {
	p.mu.Lock()
	defer p.mu.Unlock()

	est := models.DriveEstimate{
		DriveID:   d.ID,
		UpdatedAt: time.Now(),
	}

	if actual, ok := p.actuals[d.ID]; ok {
		est.Files = actual
		est.Source = models.SourceCachedActual
		return est
	}

	if p.referenceUsed > 0 && d.UsedBytes > 0 {
		est.Files = int64(float64(d.UsedBytes) / float64(p.referenceUsed) * ReferenceDriveFallbackCount)
		if est.Files < 1 {
			est.Files = 1
		}
		est.Source = models.SourceProportional
		return est
	}

	est.Files = BaseDriveFallbackCount
	est.Source = models.SourcePlaceholder
	return est
}

// UpdateActual records a completed count for a drive and persists the cache
// immediately, so an expensive walk's result is never lost to a crash.
func (p *Provider) UpdateActual(driveID string, count int64) error {
	p.mu.Lock()
	p.actuals[driveID] = count
	data, err := json.MarshalIndent(p.actuals, "", "  ")
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal estimate cache: %w", err)
	}
	if err := filelock.AtomicWrite(p.cachePath, data); err != nil {
		return fmt.Errorf("failed to persist estimate cache: %w", err)
	}
	return nil
}

// Seed primes the in-memory cache from a restored snapshot. Only
// cached_actual entries are trusted; partial or guessed values are
// recomputed instead.
func (p *Provider) Seed(driveID string, files int64, source models.EstimateSource) {
	if source != models.SourceCachedActual {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.actuals[driveID]; !exists {
		p.actuals[driveID] = files
	}
}

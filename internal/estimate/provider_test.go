package estimate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/drivescan/internal/logger"
	"github.com/harrison/drivescan/internal/models"
)

func newTestProvider(t *testing.T) (*Provider, string) {
	t.Helper()
	cachePath := filepath.Join(t.TempDir(), "estimates.json")
	return NewProvider(cachePath, logger.NewNoOpLogger()), cachePath
}

func TestEstimatePlaceholder(t *testing.T) {
	p, _ := newTestProvider(t)

	est := p.Estimate(models.Drive{ID: "/mnt/a"})

	assert.Equal(t, models.SourcePlaceholder, est.Source)
	assert.Equal(t, int64(BaseDriveFallbackCount), est.Files)
	assert.Equal(t, "/mnt/a", est.DriveID)
}

func TestEstimateProportional(t *testing.T) {
	p, _ := newTestProvider(t)
	p.SetReferenceUsed(1000)

	est := p.Estimate(models.Drive{ID: "/mnt/a", UsedBytes: 500})

	assert.Equal(t, models.SourceProportional, est.Source)
	// half the reference drive's used space -> half its assumed file count
	assert.Equal(t, int64(ReferenceDriveFallbackCount/2), est.Files)
}

func TestEstimateProportionalNeverZero(t *testing.T) {
	p, _ := newTestProvider(t)
	p.SetReferenceUsed(1 << 40)

	est := p.Estimate(models.Drive{ID: "/mnt/tiny", UsedBytes: 1})

	assert.Equal(t, models.SourceProportional, est.Source)
	assert.GreaterOrEqual(t, est.Files, int64(1))
}

func TestEstimateUnknownUsedSpaceFallsBackToPlaceholder(t *testing.T) {
	p, _ := newTestProvider(t)
	p.SetReferenceUsed(1000)

	est := p.Estimate(models.Drive{ID: "/mnt/a", UsedBytes: 0})

	assert.Equal(t, models.SourcePlaceholder, est.Source)
}

func TestUpdateActualUpgradesAndPersists(t *testing.T) {
	p, cachePath := newTestProvider(t)
	p.SetReferenceUsed(1000)

	require.NoError(t, p.UpdateActual("/mnt/a", 1234))

	est := p.Estimate(models.Drive{ID: "/mnt/a", UsedBytes: 500})
	assert.Equal(t, models.SourceCachedActual, est.Source)
	assert.Equal(t, int64(1234), est.Files)

	// Persisted immediately, visible to a fresh provider.
	fresh := NewProvider(cachePath, logger.NewNoOpLogger())
	est = fresh.Estimate(models.Drive{ID: "/mnt/a"})
	assert.Equal(t, models.SourceCachedActual, est.Source)
	assert.Equal(t, int64(1234), est.Files)
}

func TestCorruptCacheStartsEmpty(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "estimates.json")
	require.NoError(t, os.WriteFile(cachePath, []byte("{not json"), 0644))

	p := NewProvider(cachePath, logger.NewNoOpLogger())
	est := p.Estimate(models.Drive{ID: "/mnt/a"})

	assert.Equal(t, models.SourcePlaceholder, est.Source)
}

func TestSeedOnlyTrustsCachedActual(t *testing.T) {
	p, _ := newTestProvider(t)

	p.Seed("/mnt/a", 99, models.SourceProportional)
	est := p.Estimate(models.Drive{ID: "/mnt/a"})
	assert.Equal(t, models.SourcePlaceholder, est.Source)

	p.Seed("/mnt/a", 99, models.SourceCachedActual)
	est = p.Estimate(models.Drive{ID: "/mnt/a"})
	assert.Equal(t, models.SourceCachedActual, est.Source)
	assert.Equal(t, int64(99), est.Files)
}

package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/harrison/drivescan/internal/models"
)

func driveState(id string, processed, maxFiles int64, source models.EstimateSource, status models.DriveStatus) models.DriveState {
	return models.DriveState{
		Drive:    models.Drive{ID: id, Status: status},
		Estimate: models.DriveEstimate{DriveID: id, Files: maxFiles, Source: source},
		Progress: models.DriveProgress{DriveID: id, FilesProcessed: processed, MaxFiles: maxFiles},
	}
}

func TestFractionClamps(t *testing.T) {
	assert.Equal(t, 0.5, Fraction(5, 10))
	assert.Equal(t, 1.0, Fraction(15, 10), "processed beyond estimate clamps to 1")
	assert.Equal(t, 0.0, Fraction(0, 10))
	assert.Equal(t, 1.0, Fraction(1, 0), "zero estimate treated as 1, never divides by zero")
}

func TestAggregateWeightedMean(t *testing.T) {
	states := []models.DriveState{
		driveState("/a", 50, 100, models.SourceCachedActual, models.DriveSearching),
		driveState("/b", 0, 300, models.SourceProportional, models.DriveSearching),
	}

	report := Aggregate(states)

	// (0.5*100 + 0*300) / 400 = 12.5%
	assert.InDelta(t, 12.5, report.OverallPercent, 0.001)
	assert.Len(t, report.Drives, 2)
	assert.Equal(t, 0.5, report.Drives[0].Fraction)
}

func TestAggregateEstimateUpgradeMovesPercent(t *testing.T) {
	// Placeholder estimate of 50000 for a drive with 10 real files: the
	// count completing must recompute the fraction from 10, not 50000.
	before := Aggregate([]models.DriveState{
		driveState("/c", 10, 50000, models.SourcePlaceholder, models.DriveSearching),
	})
	assert.InDelta(t, 0.02, before.OverallPercent, 0.001)

	after := Aggregate([]models.DriveState{
		driveState("/c", 10, 10, models.SourceCachedActual, models.DriveSearching),
	})
	assert.InDelta(t, 100.0, after.OverallPercent, 0.001)
	assert.Equal(t, int64(10), after.Drives[0].Estimate)
	assert.Equal(t, models.SourceCachedActual, after.Drives[0].Source)
}

func TestAggregateErroredDrivesCarryNoWeight(t *testing.T) {
	states := []models.DriveState{
		driveState("/ok", 10, 10, models.SourceCachedActual, models.DriveDone),
		driveState("/bad", 0, 50000, models.SourcePlaceholder, models.DriveError),
	}

	report := Aggregate(states)

	assert.InDelta(t, 100.0, report.OverallPercent, 0.001)
	assert.Len(t, report.Drives, 2, "errored drives still appear in the breakdown")
}

func TestAggregateDoneDriveFullyCovered(t *testing.T) {
	// Estimate drifted above the processed count but the drive finished its
	// final pass; it reports as fully covered.
	states := []models.DriveState{
		driveState("/a", 95, 100, models.SourceCachedActual, models.DriveDone),
	}
	report := Aggregate(states)
	assert.Equal(t, 1.0, report.Drives[0].Fraction)
}

func TestAggregateEmpty(t *testing.T) {
	report := Aggregate(nil)
	assert.Equal(t, 0.0, report.OverallPercent)
	assert.Empty(t, report.Drives)
}

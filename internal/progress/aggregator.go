// Package progress combines per-drive processed/estimate pairs into an
// overall percentage and a per-drive breakdown. It only reads counters; it
// never mutates drive state, so it is safe to call from any goroutine
// against a consistent copy of the session.
package progress

import "github.com/harrison/drivescan/internal/models"

// DriveBreakdown is the per-drive slice of a progress report.
type DriveBreakdown struct {
	ID        string                `json:"id"`
	Processed int64                 `json:"processed"`
	Estimate  int64                 `json:"estimate"`
	Source    models.EstimateSource `json:"source"`
	Status    models.DriveStatus    `json:"status"`
	Fraction  float64               `json:"fraction"`
}

// Report is the aggregated view handed to the presentation layer.
type Report struct {
	OverallPercent float64          `json:"overall_percent"`
	Drives         []DriveBreakdown `json:"per_drive"`
}

// Fraction computes a drive's progress fraction, clamped to [0,1]. The
// processed count may transiently exceed the estimate (files created after
// a count, estimate still a guess); that clamps rather than fails.
func Fraction(processed, maxFiles int64) float64 {
	if maxFiles < 1 {
		maxFiles = 1
	}
	f := float64(processed) / float64(maxFiles)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// Aggregate computes the overall percentage as a weighted mean across
// drives, weighting each drive by its current estimate so larger drives
// contribute proportionally more. An estimate upgrade can move the overall
// percentage backward or forward; both are expected.
//
// Drives that failed enumeration carry no weight. A drive marked done
// counts as fully covered regardless of estimate drift.
func Aggregate(states []models.DriveState) Report {
	report := Report{Drives: make([]DriveBreakdown, 0, len(states))}

	var weighted float64
	var totalWeight float64

	for _, ds := range states {
		frac := Fraction(ds.Progress.FilesProcessed, ds.Progress.MaxFiles)
		if ds.Drive.Status == models.DriveDone {
			frac = 1
		}

		report.Drives = append(report.Drives, DriveBreakdown{
			ID:        ds.Drive.ID,
			Processed: ds.Progress.FilesProcessed,
			Estimate:  ds.Progress.MaxFiles,
			Source:    ds.Estimate.Source,
			Status:    ds.Drive.Status,
			Fraction:  frac,
		})

		if ds.Drive.Status == models.DriveError {
			continue
		}
		weight := float64(ds.Progress.MaxFiles)
		if weight < 1 {
			weight = 1
		}
		weighted += frac * weight
		totalWeight += weight
	}

	if totalWeight > 0 {
		report.OverallPercent = weighted / totalWeight * 100
	}
	return report
}

package scan

import (
	"context"
	"fmt"
	"io/fs"

	"github.com/harrison/drivescan/internal/estimate"
	"github.com/harrison/drivescan/internal/logger"
	"github.com/harrison/drivescan/internal/models"
)

// CountWorker walks one drive to produce an authoritative file count,
// upgrading the drive's estimate to cached_actual on completion. Partial
// counts are discarded on cancellation so a partial count can never
// masquerade as a real one.
type CountWorker struct {
	DriveID   string
	Session   *models.ScanSession
	Estimates *estimate.Provider
	Walk      WalkOptions
	Logger    logger.Logger

	// OnUpgrade fires after a completed count lands, so the controller can
	// recompute progress and persist immediately.
	OnUpgrade func(driveID string)
}

// Run counts every regular file under the drive root. Returns ctx.Err()
// when cancelled; the estimate source is left unchanged in that case.
func (w *CountWorker) Run(ctx context.Context) error {
	var count int64

	skipped, err := walkFiles(ctx, w.DriveID, w.Walk, func(path string, d fs.DirEntry) error {
		count++
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			w.Logger.LogDebug(fmt.Sprintf("count of %s cancelled at %d files", w.DriveID, count))
			return ctx.Err()
		}
		return fmt.Errorf("count walk of %s failed: %w", w.DriveID, err)
	}
	if skipped > 0 {
		w.Logger.LogDebug(fmt.Sprintf("count of %s skipped %d unreadable entries", w.DriveID, skipped))
	}

	if err := w.Estimates.UpdateActual(w.DriveID, count); err != nil {
		// The count is still good in memory even if the cache write failed.
		w.Logger.LogWarn(fmt.Sprintf("drive %s: failed to persist actual count: %v", w.DriveID, err))
	}
	w.Session.SetEstimate(w.DriveID, w.Estimates.Estimate(models.Drive{ID: w.DriveID}))
	w.Logger.LogInfo(fmt.Sprintf("drive %s: counted %d files", w.DriveID, count))

	if w.OnUpgrade != nil {
		w.OnUpgrade(w.DriveID)
	}
	return nil
}

package scan

import (
	"context"
	"fmt"
	"io/fs"
	"os"

	"github.com/harrison/drivescan/internal/logger"
	"github.com/harrison/drivescan/internal/models"
)

// SearchWorker walks one drive in deterministic lexical order, tests each
// eligible file against the pattern, and advances the drive's processed
// counter. The deterministic order is what makes "skip the first K files"
// a meaningful resume offset.
type SearchWorker struct {
	DriveID     string
	Session     *models.ScanSession
	Matcher     *Matcher
	Walk        WalkOptions
	MinFileSize int64
	Logger      logger.Logger

	// OnMatch receives each hit. The bool reports whether the match is new;
	// replays from the resume overlap window arrive with false.
	OnMatch func(m models.Match) bool

	// OnProcessed fires after each processed file with the cumulative count.
	OnProcessed func(driveID string, total int64)
}

// Run walks the drive. Files before the resume offset are skipped without
// being read; every file from the offset on is processed exactly once in
// this pass. File-level read errors are logged, counted as processed, and
// never abort the worker. Returns ctx.Err() on cancellation.
func (w *SearchWorker) Run(ctx context.Context) error {
	state, ok := w.Session.DriveState(w.DriveID)
	if !ok {
		return fmt.Errorf("drive %s not in session", w.DriveID)
	}
	skip := state.Progress.StartCount
	var index int64

	skipped, err := walkFiles(ctx, w.DriveID, w.Walk, func(path string, d fs.DirEntry) error {
		if index < skip {
			index++
			return nil
		}
		index++

		w.processFile(path, d)
		total := w.Session.AddProcessed(w.DriveID, 1)
		if w.OnProcessed != nil {
			w.OnProcessed(w.DriveID, total)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			w.Logger.LogDebug(fmt.Sprintf("search of %s paused at %d files", w.DriveID, index))
			return ctx.Err()
		}
		return fmt.Errorf("search walk of %s failed: %w", w.DriveID, err)
	}
	if skipped > 0 {
		w.Session.AddSkipped(w.DriveID, skipped)
	}

	w.finish(index)
	return nil
}

// processFile evaluates one file. Misses, undersized files, binary files
// and unreadable files all count as processed so the counter tracks walk
// coverage, not match density.
func (w *SearchWorker) processFile(path string, d fs.DirEntry) {
	info, err := d.Info()
	if err != nil {
		w.Session.AddSkipped(w.DriveID, 1)
		w.Logger.LogDebug(fmt.Sprintf("skipping %s: %v", path, err))
		return
	}
	if info.Size() < w.MinFileSize {
		return
	}
	if !isTextFile(path) {
		return
	}

	f, err := os.Open(path)
	if err != nil {
		// Locked or permission-denied file: skip, never abort the worker.
		w.Session.AddSkipped(w.DriveID, 1)
		w.Logger.LogDebug(fmt.Sprintf("skipping %s: %v", path, err))
		return
	}
	defer f.Close()

	offset, snippet, found, err := w.Matcher.FindIn(f)
	if err != nil {
		w.Session.AddSkipped(w.DriveID, 1)
		w.Logger.LogDebug(fmt.Sprintf("read error on %s: %v", path, err))
		return
	}
	if found && w.OnMatch != nil {
		w.OnMatch(models.Match{
			DriveID: w.DriveID,
			Path:    path,
			Offset:  offset,
			Snippet: snippet,
		})
	}
}

// finish marks the drive done after a completed final pass. When a real
// count exists, drift between processed and counted files is logged but
// does not block completion: files created or removed since the count are
// expected.
func (w *SearchWorker) finish(walked int64) {
	state, ok := w.Session.DriveState(w.DriveID)
	if !ok {
		return
	}
	if state.Estimate.Source == models.SourceCachedActual && state.Progress.FilesProcessed != state.Estimate.Files {
		w.Logger.LogDebug(fmt.Sprintf(
			"drive %s: processed %d vs counted %d (tree changed between passes)",
			w.DriveID, state.Progress.FilesProcessed, state.Estimate.Files))
	}
	w.Session.SetDriveStatus(w.DriveID, models.DriveDone)
	w.Logger.LogInfo(fmt.Sprintf("drive %s: search complete, %d files this pass", w.DriveID, walked))
}

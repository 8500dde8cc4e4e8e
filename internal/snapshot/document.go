// Package snapshot persists the full scan session as a versioned document
// so an interrupted scan can resume after a process restart.
package snapshot

import (
	"time"

	"github.com/harrison/drivescan/internal/models"
)

// Version is the current snapshot document version.
const Version = 1

// Document is the persisted form of a scan session with all per-drive state.
type Document struct {
	Version int           `json:"version"`
	Session SessionRecord `json:"session"`
	Drives  []DriveRecord `json:"drives"`
}

// SessionRecord holds the session-level fields of a snapshot.
type SessionRecord struct {
	ID          string               `json:"id"`
	Pattern     string               `json:"pattern"`
	Options     models.SearchOptions `json:"options"`
	CreatedAt   time.Time            `json:"created_at"`
	LastSavedAt time.Time            `json:"last_saved_at"`
	Status      models.SessionStatus `json:"status"`
}

// DriveRecord holds the per-drive slice of a snapshot.
type DriveRecord struct {
	ID             string                `json:"id"`
	Status         models.DriveStatus    `json:"status"`
	FilesProcessed int64                 `json:"files_processed"`
	StartCount     int64                 `json:"start_count"`
	SkippedFiles   int64                 `json:"skipped_files"`
	Estimate       int64                 `json:"estimate"`
	EstimateSource models.EstimateSource `json:"estimate_source"`
	TotalBytes     uint64                `json:"total_bytes"`
	UsedBytes      uint64                `json:"used_bytes"`
}

// Capture builds a consistent document from the session's current state.
func Capture(s *models.ScanSession) *Document {
	doc := &Document{
		Version: Version,
		Session: SessionRecord{
			ID:          s.ID,
			Pattern:     s.Pattern,
			Options:     s.Options,
			CreatedAt:   s.CreatedAt,
			LastSavedAt: s.LastSavedAt(),
			Status:      s.Status(),
		},
	}
	for _, ds := range s.DriveStates() {
		doc.Drives = append(doc.Drives, DriveRecord{
			ID:             ds.Drive.ID,
			Status:         ds.Drive.Status,
			FilesProcessed: ds.Progress.FilesProcessed,
			StartCount:     ds.Progress.StartCount,
			SkippedFiles:   ds.Progress.SkippedFiles,
			Estimate:       ds.Estimate.Files,
			EstimateSource: ds.Estimate.Source,
			TotalBytes:     ds.Drive.TotalBytes,
			UsedBytes:      ds.Drive.UsedBytes,
		})
	}
	return doc
}

// Restore rebuilds a session from a document. The resume offset of every
// drive becomes its persisted processed count, so the search worker skips
// exactly the files already covered. Drives that were mid-flight are reset
// to pending so the controller re-spawns their workers.
func Restore(doc *Document) *models.ScanSession {
	session := models.NewSession(doc.Session.Pattern, doc.Session.Options)
	session.ID = doc.Session.ID
	session.CreatedAt = doc.Session.CreatedAt
	session.SetStatus(models.SessionResuming)

	for _, dr := range doc.Drives {
		status := dr.Status
		switch status {
		case models.DriveCounting, models.DriveSearching, models.DrivePaused:
			status = models.DrivePending
		}
		session.AddDrive(
			models.Drive{
				ID:         dr.ID,
				TotalBytes: dr.TotalBytes,
				UsedBytes:  dr.UsedBytes,
				Status:     status,
			},
			models.DriveEstimate{
				DriveID: dr.ID,
				Files:   dr.Estimate,
				Source:  dr.EstimateSource,
			},
		)
		session.SetProgress(dr.ID, models.DriveProgress{
			DriveID:        dr.ID,
			FilesProcessed: dr.FilesProcessed,
			StartCount:     dr.FilesProcessed,
			SkippedFiles:   dr.SkippedFiles,
			MaxFiles:       dr.Estimate,
		})
	}
	return session
}

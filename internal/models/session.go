// Package models defines the core data types shared across the scan engine:
// drives, estimates, per-drive progress, matches, and the scan session that
// ties them together.
package models

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DriveStatus represents the lifecycle state of a single drive within a session.
type DriveStatus string

const (
	DrivePending   DriveStatus = "pending"
	DriveCounting  DriveStatus = "counting"
	DriveSearching DriveStatus = "searching"
	DrivePaused    DriveStatus = "paused"
	DriveDone      DriveStatus = "done"
	DriveError     DriveStatus = "error"
)

// SessionStatus represents the lifecycle state of the whole scan session.
type SessionStatus string

const (
	SessionIdle        SessionStatus = "idle"
	SessionEnumerating SessionStatus = "enumerating"
	SessionResuming    SessionStatus = "resuming"
	SessionRunning     SessionStatus = "running"
	SessionPaused      SessionStatus = "paused"
	SessionCompleted   SessionStatus = "completed"
	SessionCancelled   SessionStatus = "cancelled"
	SessionError       SessionStatus = "error"
)

// EstimateSource tags the provenance of a per-drive file-count estimate.
type EstimateSource string

const (
	// SourcePlaceholder is a constant fallback used when nothing better is known.
	SourcePlaceholder EstimateSource = "placeholder"
	// SourceProportional is derived from used-space relative to the system drive.
	SourceProportional EstimateSource = "computed_proportional"
	// SourceCachedActual is a real count from a completed counting pass.
	SourceCachedActual EstimateSource = "cached_actual"
)

// Drive describes an enumerated storage volume.
type Drive struct {
	// ID is the mount path, which doubles as the walk root.
	ID         string      `json:"id"`
	TotalBytes uint64      `json:"total_bytes"`
	UsedBytes  uint64      `json:"used_bytes"`
	Status     DriveStatus `json:"status"`
}

// DriveEstimate is a file-count estimate for one drive, tagged with provenance.
type DriveEstimate struct {
	DriveID   string         `json:"drive_id"`
	Files     int64          `json:"files"`
	Source    EstimateSource `json:"source"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// DriveProgress tracks how far the search pass has advanced on one drive.
//
// FilesProcessed is cumulative across resumes. StartCount is the resume
// offset: files before it in the deterministic walk order are skipped
// without being re-read. MaxFiles is the estimate snapshot at the last
// progress update and is what progress fractions are computed against.
type DriveProgress struct {
	DriveID        string `json:"drive_id"`
	FilesProcessed int64  `json:"files_processed"`
	StartCount     int64  `json:"start_count"`
	MaxFiles       int64  `json:"max_files"`
	SkippedFiles   int64  `json:"skipped_files"`
}

// Match is a single search hit: the first occurrence of the pattern in a file.
type Match struct {
	DriveID string `json:"drive_id"`
	Path    string `json:"path"`
	Offset  int64  `json:"offset"`
	Snippet string `json:"snippet"`
}

// SearchOptions configures how the pattern is evaluated against file content.
type SearchOptions struct {
	CaseSensitive bool `json:"case_sensitive" yaml:"case_sensitive"`
}

// DriveState bundles a drive with its estimate and progress. All fields are
// guarded by the owning session's lock; workers mutate them only through
// session methods.
type DriveState struct {
	Drive    Drive
	Estimate DriveEstimate
	Progress DriveProgress
}

// ScanSession is the explicit session object passed by reference into
// workers. Drives are inserted once at enumeration (or snapshot load) time;
// there is no implicit growth on first access.
type ScanSession struct {
	ID        string
	Pattern   string
	Options   SearchOptions
	CreatedAt time.Time

	mu          sync.RWMutex
	status      SessionStatus
	lastSavedAt time.Time
	drives      map[string]*DriveState
	order       []string
}

// NewSession creates an empty session in the idle state.
func NewSession(pattern string, opts SearchOptions) *ScanSession {
	return &ScanSession{
		ID:        uuid.NewString(),
		Pattern:   pattern,
		Options:   opts,
		CreatedAt: time.Now(),
		status:    SessionIdle,
		drives:    make(map[string]*DriveState),
	}
}

// AddDrive inserts a drive into the session table. Duplicate IDs are
// rejected so drive IDs stay unique per session.
func (s *ScanSession) AddDrive(d Drive, est DriveEstimate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.drives[d.ID]; exists {
		return false
	}
	s.drives[d.ID] = &DriveState{
		Drive:    d,
		Estimate: est,
		Progress: DriveProgress{DriveID: d.ID, MaxFiles: est.Files},
	}
	s.order = append(s.order, d.ID)
	return true
}

// DriveIDs returns drive IDs in insertion order.
func (s *ScanSession) DriveIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

// DriveState returns a copy of the state for one drive.
func (s *ScanSession) DriveState(id string) (DriveState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.drives[id]
	if !ok {
		return DriveState{}, false
	}
	return *ds, true
}

// DriveStates returns a consistent copy of all drive states in insertion order.
func (s *ScanSession) DriveStates() []DriveState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]DriveState, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.drives[id])
	}
	return out
}

// Status returns the session status.
func (s *ScanSession) Status() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// SetStatus updates the session status.
func (s *ScanSession) SetStatus(st SessionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
}

// LastSavedAt returns when the session was last persisted.
func (s *ScanSession) LastSavedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSavedAt
}

// MarkSaved records a successful persist.
func (s *ScanSession) MarkSaved(at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSavedAt = at
}

// SetDriveStatus updates the status of one drive.
func (s *ScanSession) SetDriveStatus(id string, st DriveStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ds, ok := s.drives[id]; ok {
		ds.Drive.Status = st
	}
}

// SetEstimate replaces a drive's estimate. MaxFiles follows the estimate so
// progress fractions are always computed against the best known total.
func (s *ScanSession) SetEstimate(id string, est DriveEstimate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.drives[id]
	if !ok {
		return
	}
	// Once a real count exists the estimate never shrinks below it.
	if ds.Estimate.Source == SourceCachedActual && est.Source == SourceCachedActual && est.Files < ds.Estimate.Files {
		est.Files = ds.Estimate.Files
	}
	ds.Estimate = est
	ds.Progress.MaxFiles = est.Files
}

// AddProcessed advances a drive's processed counter and returns the new
// cumulative value. Only the drive's owning search worker calls this.
func (s *ScanSession) AddProcessed(id string, n int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ds, ok := s.drives[id]
	if !ok {
		return 0
	}
	ds.Progress.FilesProcessed += n
	return ds.Progress.FilesProcessed
}

// AddSkipped records files that could not be read and were skipped.
func (s *ScanSession) AddSkipped(id string, n int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ds, ok := s.drives[id]; ok {
		ds.Progress.SkippedFiles += n
	}
}

// SetProgress overwrites a drive's progress record, used when restoring a
// session from a snapshot.
func (s *ScanSession) SetProgress(id string, p DriveProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ds, ok := s.drives[id]; ok {
		p.DriveID = id
		ds.Progress = p
	}
}

// ActiveDriveIDs returns drives that still take part in the scan, excluding
// drives that failed enumeration and drives already done.
func (s *ScanSession) ActiveDriveIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, id := range s.order {
		switch s.drives[id].Drive.Status {
		case DriveError, DriveDone:
		default:
			ids = append(ids, id)
		}
	}
	return ids
}

// PrepareResume rewinds every unfinished drive for a fresh worker pass:
// the resume offset becomes the cumulative processed count, so the next
// pass skips exactly the files already covered.
func (s *ScanSession) PrepareResume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ds := range s.drives {
		switch ds.Drive.Status {
		case DriveDone, DriveError:
			continue
		}
		ds.Progress.StartCount = ds.Progress.FilesProcessed
		ds.Drive.Status = DrivePending
	}
}

// AllDone reports whether every non-errored drive has finished searching.
func (s *ScanSession) AllDone() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ds := range s.drives {
		switch ds.Drive.Status {
		case DriveDone, DriveError:
		default:
			return false
		}
	}
	return len(s.drives) > 0
}

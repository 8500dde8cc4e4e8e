package scan

import (
	"github.com/harrison/drivescan/internal/models"
	"github.com/harrison/drivescan/internal/progress"
)

// Event is delivered asynchronously to the presentation layer. Workers
// never block on event delivery: progress events are lossy under
// backpressure, match and status events are not.
type Event interface {
	event()
}

// ProgressEvent carries the overall percentage and per-drive breakdown,
// recomputed on every counter change or estimate upgrade.
type ProgressEvent struct {
	Report progress.Report
}

// MatchEvent carries a single new search hit.
type MatchEvent struct {
	Match models.Match
}

// StatusEvent signals a session state transition. Err is set for the
// error state and for recoverable degradations worth surfacing.
type StatusEvent struct {
	Status models.SessionStatus
	Err    error
}

func (ProgressEvent) event() {}
func (MatchEvent) event()    {}
func (StatusEvent) event()   {}

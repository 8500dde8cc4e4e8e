package snapshot

import (
	"sync"
	"time"
)

// Clock abstracts wall-clock time so cadence behavior is testable with a
// virtual clock instead of sleeps.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// Trigger decides when a snapshot is due: after every batch of processed
// files or after an elapsed interval, whichever fires first.
type Trigger struct {
	batch    int64
	interval time.Duration
	clock    Clock

	mu        sync.Mutex
	processed int64
	lastDue   time.Time
}

// NewTrigger creates a trigger with the given cadence. A nil clock uses the
// system clock.
func NewTrigger(batch int64, interval time.Duration, clock Clock) *Trigger {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Trigger{
		batch:    batch,
		interval: interval,
		clock:    clock,
		lastDue:  clock.Now(),
	}
}

// Note records n newly processed files and reports whether a snapshot is
// due. When it returns true the counters reset, so each due event fires
// exactly once.
func (t *Trigger) Note(n int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.processed += n
	now := t.clock.Now()
	if t.processed >= t.batch || now.Sub(t.lastDue) >= t.interval {
		t.processed = 0
		t.lastDue = now
		return true
	}
	return false
}

// Reset clears the counters, used after an out-of-band save (pause,
// estimate upgrade) so the next cadence window starts from that save.
func (t *Trigger) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed = 0
	t.lastDue = t.clock.Now()
}

package snapshot

import (
	"testing"
	"time"
)

// fakeClock is a manually advanced Clock for cadence tests.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) advance(d time.Duration) { f.now = f.now.Add(d) }

func TestTriggerBatchThreshold(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tr := NewTrigger(100, time.Hour, clock)

	if tr.Note(99) {
		t.Error("99 of 100 files should not trigger")
	}
	if !tr.Note(1) {
		t.Error("100th file should trigger")
	}
	if tr.Note(1) {
		t.Error("counter should reset after firing")
	}
}

func TestTriggerTimeThreshold(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tr := NewTrigger(1000, 30*time.Second, clock)

	if tr.Note(1) {
		t.Error("no threshold crossed yet")
	}
	clock.advance(29 * time.Second)
	if tr.Note(1) {
		t.Error("29s elapsed should not trigger")
	}
	clock.advance(1 * time.Second)
	if !tr.Note(1) {
		t.Error("30s elapsed should trigger")
	}
}

func TestTriggerWhicheverFirst(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tr := NewTrigger(10, 30*time.Second, clock)

	// Batch fires first.
	if !tr.Note(10) {
		t.Error("batch threshold should fire before interval")
	}

	// Then the interval fires with a tiny batch.
	clock.advance(31 * time.Second)
	if !tr.Note(1) {
		t.Error("interval threshold should fire with batch unfilled")
	}
}

func TestTriggerReset(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	tr := NewTrigger(10, 30*time.Second, clock)

	tr.Note(9)
	clock.advance(29 * time.Second)
	tr.Reset() // out-of-band save: window restarts here

	if tr.Note(1) {
		t.Error("reset should clear both batch and interval progress")
	}
	clock.advance(29 * time.Second)
	if tr.Note(1) {
		t.Error("interval measured from reset, not from construction")
	}
	clock.advance(1 * time.Second)
	if !tr.Note(1) {
		t.Error("interval should fire 30s after reset")
	}
}

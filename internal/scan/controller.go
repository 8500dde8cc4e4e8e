package scan

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/harrison/drivescan/internal/config"
	"github.com/harrison/drivescan/internal/drive"
	"github.com/harrison/drivescan/internal/estimate"
	"github.com/harrison/drivescan/internal/filelock"
	"github.com/harrison/drivescan/internal/logger"
	"github.com/harrison/drivescan/internal/matchdb"
	"github.com/harrison/drivescan/internal/models"
	"github.com/harrison/drivescan/internal/progress"
	"github.com/harrison/drivescan/internal/snapshot"
)

// eventBuffer bounds the async event channel. Progress events beyond it are
// dropped; matches are already durable in the match database by the time
// their event is offered.
const eventBuffer = 1024

// Enumerator lists scannable volumes. Satisfied by drive.Enumerator;
// tests substitute fixed drive sets.
type Enumerator interface {
	Enumerate() ([]models.Drive, error)
}

// Controller owns the scan lifecycle state machine and the worker pools,
// wiring counting and searching to estimates, progress and persistence.
//
// All traversal work runs off the calling goroutine; results arrive as
// asynchronous events on Events().
type Controller struct {
	cfg       *config.Config
	logger    logger.Logger
	enum      Enumerator
	estimates *estimate.Provider
	store     *snapshot.Store
	matches   *matchdb.Store
	lock      *filelock.FileLock
	clock     snapshot.Clock

	events chan Event

	mu           sync.Mutex
	session      *models.ScanSession
	pattern      string
	options      models.SearchOptions
	trigger      *snapshot.Trigger
	saver        *snapshot.Saver
	saverCancel  context.CancelFunc
	workerCancel context.CancelFunc
	workers      sync.WaitGroup
	runDone      chan struct{}
	terminal     bool
}

// NewController wires a controller from its collaborators. A nil clock
// uses the system clock; tests inject a virtual one.
func NewController(cfg *config.Config, enum Enumerator, est *estimate.Provider, store *snapshot.Store, matches *matchdb.Store, log logger.Logger, clock snapshot.Clock) *Controller {
	if clock == nil {
		clock = snapshot.SystemClock{}
	}
	return &Controller{
		cfg:       cfg,
		logger:    log,
		enum:      enum,
		estimates: est,
		store:     store,
		matches:   matches,
		lock:      filelock.New(cfg.LockPath()),
		clock:     clock,
		events:    make(chan Event, eventBuffer),
	}
}

// Events returns the channel carrying progress, match and status events.
// It is closed when the session reaches a terminal state.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Session returns the current session, or nil before Start.
func (c *Controller) Session() *models.ScanSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// SetPattern sets the search pattern and options for the next Start. A
// pattern differing from a pending snapshot's supersedes that snapshot.
func (c *Controller) SetPattern(pattern string, opts models.SearchOptions) error {
	if _, err := NewMatcher(pattern, opts); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pattern = pattern
	c.options = opts
	return nil
}

// Start brings the session to Running: from a snapshot through Resuming
// when one exists, through fresh Enumerating otherwise. It spawns the
// worker pools and returns; callers follow progress on Events() and join
// with Wait().
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	acquired, err := c.lock.TryLock()
	if err != nil {
		return err
	}
	if !acquired {
		return fmt.Errorf("another scanner holds the state directory lock at %s", c.cfg.LockPath())
	}

	session, err := c.prepareSession()
	if err != nil {
		c.finishTerminalLocked(models.SessionError, err)
		return err
	}
	c.session = session
	c.trigger = snapshot.NewTrigger(c.cfg.SnapshotBatch, c.cfg.SnapshotInterval, c.clock)

	saverCtx, saverCancel := context.WithCancel(context.Background())
	c.saverCancel = saverCancel
	c.saver = snapshot.NewSaver(c.store, c.logger, func(err error) {
		c.emit(StatusEvent{Status: c.session.Status(), Err: err})
	})
	go c.saver.Run(saverCtx)

	c.spawnWorkersLocked(ctx)
	return nil
}

// prepareSession resolves the session for this run: restored from a
// snapshot, or built by fresh enumeration. Only total enumeration failure
// is fatal.
func (c *Controller) prepareSession() (*models.ScanSession, error) {
	doc := c.store.Load()
	if doc != nil && c.pattern != "" && doc.Session.Pattern != c.pattern {
		c.logger.LogInfo("search pattern changed, superseding previous session")
		if err := c.store.Archive(); err != nil {
			c.logger.LogWarn(fmt.Sprintf("failed to archive superseded snapshot: %v", err))
		}
		doc = nil
	}

	if doc == nil {
		if c.pattern == "" {
			return nil, fmt.Errorf("no search pattern set and no session to resume")
		}
		return c.enumerateSession()
	}
	return c.resumeSession(doc)
}

// enumerateSession performs fresh drive discovery.
func (c *Controller) enumerateSession() (*models.ScanSession, error) {
	session := models.NewSession(c.pattern, c.options)
	session.SetStatus(models.SessionEnumerating)

	drives, err := c.enum.Enumerate()
	if err != nil {
		return nil, fmt.Errorf("drive enumeration failed: %w", err)
	}
	c.estimates.SetReferenceUsed(drive.ReferenceUsedBytes(drives))

	for _, d := range drives {
		session.AddDrive(d, c.estimates.Estimate(d))
	}
	if len(drive.Active(drives)) == 0 {
		return nil, fmt.Errorf("no scannable drives available")
	}
	return session, nil
}

// resumeSession restores per-drive state from a snapshot and reconciles it
// with a fresh enumeration: drives missing from the snapshot start from
// zero, drives that disappeared are marked errored, missing estimates are
// recomputed rather than failing the load.
func (c *Controller) resumeSession(doc *snapshot.Document) (*models.ScanSession, error) {
	session := snapshot.Restore(doc)
	c.logger.LogInfo(fmt.Sprintf("resuming session %s (pattern %q)", session.ID, session.Pattern))

	drives, err := c.enum.Enumerate()
	if err != nil {
		return nil, fmt.Errorf("drive enumeration failed: %w", err)
	}
	c.estimates.SetReferenceUsed(drive.ReferenceUsedBytes(drives))

	mounted := make(map[string]models.Drive)
	for _, d := range drives {
		mounted[d.ID] = d
	}

	for _, ds := range session.DriveStates() {
		id := ds.Drive.ID
		if _, ok := mounted[id]; !ok {
			c.logger.LogWarn(fmt.Sprintf("drive %s from snapshot is no longer mounted, excluding", id))
			session.SetDriveStatus(id, models.DriveError)
			continue
		}
		// Trust completed counts from the snapshot for future sessions too.
		c.estimates.Seed(id, ds.Estimate.Files, ds.Estimate.Source)
		if ds.Estimate.Files <= 0 || ds.Estimate.Source == "" {
			session.SetEstimate(id, c.estimates.Estimate(mounted[id]))
		}
	}

	// Drives mounted now but absent from the snapshot are not-yet-started.
	for _, d := range drive.Active(drives) {
		if session.AddDrive(d, c.estimates.Estimate(d)) {
			c.logger.LogInfo(fmt.Sprintf("new drive %s joins the resumed session", d.ID))
		}
	}
	return session, nil
}

// spawnWorkersLocked launches the bounded count and search pools for every
// active drive. Search workers do not wait for counting; they run against
// the best current estimate, which improves in place as counts land.
func (c *Controller) spawnWorkersLocked(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	c.workerCancel = cancel
	c.runDone = make(chan struct{})
	c.session.SetStatus(models.SessionRunning)
	c.emit(StatusEvent{Status: models.SessionRunning})

	allDrives := c.session.DriveIDs()
	countSem := semaphore.NewWeighted(int64(c.cfg.MaxConcurrency))
	searchSem := semaphore.NewWeighted(int64(c.cfg.MaxConcurrency))

	matcher, err := NewMatcher(c.session.Pattern, c.session.Options)
	if err != nil {
		// SetPattern validated already; an empty restored pattern is the
		// only way here.
		c.finishTerminalLocked(models.SessionError, err)
		return
	}

	for _, id := range c.session.ActiveDriveIDs() {
		walkOpts := walkOptionsFor(id, allDrives, c.cfg.ExcludeDirs, c.cfg.IncludeHidden)
		c.session.SetDriveStatus(id, models.DriveSearching)

		count := &CountWorker{
			DriveID:   id,
			Session:   c.session,
			Estimates: c.estimates,
			Walk:      walkOpts,
			Logger:    c.logger,
			OnUpgrade: c.onEstimateUpgrade,
		}
		search := &SearchWorker{
			DriveID:     id,
			Session:     c.session,
			Matcher:     matcher,
			Walk:        walkOpts,
			MinFileSize: c.cfg.MinFileSize,
			Logger:      c.logger,
			OnMatch:     c.onMatch,
			OnProcessed: c.onProcessed,
		}

		c.workers.Add(2)
		go func() {
			defer c.workers.Done()
			if err := countSem.Acquire(workerCtx, 1); err != nil {
				return
			}
			defer countSem.Release(1)
			count.Run(workerCtx)
		}()
		go func() {
			defer c.workers.Done()
			if err := searchSem.Acquire(workerCtx, 1); err != nil {
				return
			}
			defer searchSem.Release(1)
			search.Run(workerCtx)
		}()
	}

	go c.awaitWorkers(workerCtx)
}

// awaitWorkers joins the pools and finalizes a completed run. Pause and
// Cancel cancel the worker context first and handle their own transitions.
func (c *Controller) awaitWorkers(ctx context.Context) {
	c.mu.Lock()
	done := c.runDone
	c.mu.Unlock()

	c.workers.Wait()
	defer close(done)

	if ctx.Err() != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminal {
		return
	}
	if !c.session.AllDone() {
		c.finishTerminalLocked(models.SessionError, fmt.Errorf("workers stopped before covering all drives"))
		return
	}

	c.session.SetStatus(models.SessionCompleted)
	doc := snapshot.Capture(c.session)
	if err := c.store.Save(doc); err != nil {
		c.logger.LogError(fmt.Sprintf("final snapshot failed: %v", err))
	}
	c.session.MarkSaved(c.clock.Now())
	if err := c.store.Archive(); err != nil {
		c.logger.LogWarn(fmt.Sprintf("failed to archive completed snapshot: %v", err))
	}
	c.emitProgress()
	c.finishTerminalLocked(models.SessionCompleted, nil)
}

// Pause signals cooperative cancellation, waits for workers to stop at
// their next safe checkpoint, and forces an immediate snapshot.
func (c *Controller) Pause() error {
	c.mu.Lock()
	if c.session == nil || c.session.Status() != models.SessionRunning {
		c.mu.Unlock()
		return fmt.Errorf("no running scan to pause")
	}
	cancel := c.workerCancel
	done := c.runDone
	c.mu.Unlock()

	cancel()
	c.workers.Wait()
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.terminal {
		// Workers finished on their own before the pause landed.
		return nil
	}
	for _, id := range c.session.ActiveDriveIDs() {
		c.session.SetDriveStatus(id, models.DrivePaused)
	}
	c.session.SetStatus(models.SessionPaused)

	if err := c.store.Save(snapshot.Capture(c.session)); err != nil {
		c.emit(StatusEvent{Status: models.SessionPaused, Err: err})
		return err
	}
	c.session.MarkSaved(c.clock.Now())
	c.trigger.Reset()
	c.emit(StatusEvent{Status: models.SessionPaused})
	c.logger.LogInfo("scan paused, snapshot saved")
	return nil
}

// Resume re-creates the worker pools seeded from the current per-drive
// offsets, so files already covered are skipped.
func (c *Controller) Resume(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.Status() != models.SessionPaused {
		return fmt.Errorf("no paused scan to resume")
	}

	c.session.SetStatus(models.SessionResuming)
	c.emit(StatusEvent{Status: models.SessionResuming})
	c.session.PrepareResume()
	c.spawnWorkersLocked(ctx)
	return nil
}

// Cancel stops all workers. With discard the snapshot and this session's
// matches are dropped; otherwise the snapshot is archived for inspection.
// Matches already emitted are preserved in either the database or the
// archive path the caller chose.
func (c *Controller) Cancel(discard bool) error {
	c.mu.Lock()
	if c.session == nil || c.terminal {
		c.mu.Unlock()
		return fmt.Errorf("no scan to cancel")
	}
	cancel := c.workerCancel
	done := c.runDone
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		c.workers.Wait()
		if done != nil {
			<-done
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if discard {
		if derr := c.store.Delete(); derr != nil {
			err = derr
		}
		if merr := c.matches.DeleteSession(c.session.ID); merr != nil && err == nil {
			err = merr
		}
	} else {
		c.session.SetStatus(models.SessionCancelled)
		if serr := c.store.Save(snapshot.Capture(c.session)); serr != nil {
			c.logger.LogWarn(fmt.Sprintf("failed to save final snapshot: %v", serr))
		}
		if aerr := c.store.Archive(); aerr != nil {
			err = aerr
		}
	}
	c.finishTerminalLocked(models.SessionCancelled, err)
	return err
}

// Wait blocks until the current run's workers have stopped. After a pause
// it returns once the pause completes; after completion it returns once
// the terminal state is reached.
func (c *Controller) Wait() {
	c.mu.Lock()
	done := c.runDone
	c.mu.Unlock()
	if done != nil {
		<-done
	}
}

// onProcessed recomputes progress on every counter change and requests a
// snapshot when the cadence says one is due.
func (c *Controller) onProcessed(driveID string, total int64) {
	c.emitProgress()
	if c.trigger.Note(1) {
		c.requestSnapshot()
	}
}

// onEstimateUpgrade persists immediately: an expensive completed count must
// never be lost to a crash.
func (c *Controller) onEstimateUpgrade(driveID string) {
	c.emitProgress()
	c.requestSnapshot()
	c.trigger.Reset()
}

// onMatch records the hit durably and reports whether it is new; replayed
// hits from the resume overlap window stay silent.
func (c *Controller) onMatch(m models.Match) bool {
	inserted, err := c.matches.Insert(c.session.ID, m)
	if err != nil {
		c.logger.LogWarn(fmt.Sprintf("failed to persist match %s: %v", m.Path, err))
		// Still surface it; durability degraded but the hit is real.
		c.emit(MatchEvent{Match: m})
		return true
	}
	if inserted {
		c.emit(MatchEvent{Match: m})
	}
	return inserted
}

func (c *Controller) requestSnapshot() {
	doc := snapshot.Capture(c.session)
	c.saver.Offer(doc)
	c.session.MarkSaved(c.clock.Now())
}

func (c *Controller) emitProgress() {
	report := progress.Aggregate(c.session.DriveStates())
	c.emit(ProgressEvent{Report: report})
}

// emit delivers an event without ever blocking a worker. When the buffer
// is full the event is dropped; matches are already durable by this point.
func (c *Controller) emit(e Event) {
	select {
	case c.events <- e:
	default:
	}
}

// finishTerminalLocked releases run resources and closes the event channel.
// Callers hold c.mu.
func (c *Controller) finishTerminalLocked(status models.SessionStatus, err error) {
	if c.terminal {
		return
	}
	c.terminal = true
	if c.session != nil {
		c.session.SetStatus(status)
	}
	if c.saverCancel != nil {
		c.saverCancel()
		c.saver.Wait()
	}
	c.emit(StatusEvent{Status: status, Err: err})
	close(c.events)
	c.lock.Unlock()
}

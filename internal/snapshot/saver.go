package snapshot

import (
	"context"
	"fmt"

	"github.com/harrison/drivescan/internal/logger"
)

// Saver is the single-writer save loop. Concurrent save requests coalesce:
// when requests arrive faster than writes complete, only the latest pending
// document is written, so every persisted snapshot is internally consistent
// and writes never interleave.
type Saver struct {
	store   *Store
	logger  logger.Logger
	pending chan *Document
	done    chan struct{}
	onError func(error)
}

// NewSaver creates a saver around a store. onError, if non-nil, receives
// write failures that survived the store's retry; these are recoverable,
// the scan continues with degraded persistence.
func NewSaver(store *Store, log logger.Logger, onError func(error)) *Saver {
	return &Saver{
		store:   store,
		logger:  log,
		pending: make(chan *Document, 1),
		done:    make(chan struct{}),
		onError: onError,
	}
}

// Offer submits a document for persistence without blocking the caller.
// If a document is already pending it is replaced by this newer one.
func (sv *Saver) Offer(doc *Document) {
	for {
		select {
		case sv.pending <- doc:
			return
		default:
		}
		// Full: displace the stale pending document and try again.
		select {
		case <-sv.pending:
		default:
		}
	}
}

// Run drains save requests until ctx is cancelled, then performs any final
// pending write before returning.
func (sv *Saver) Run(ctx context.Context) {
	defer close(sv.done)
	for {
		select {
		case doc := <-sv.pending:
			sv.save(doc)
		case <-ctx.Done():
			select {
			case doc := <-sv.pending:
				sv.save(doc)
			default:
			}
			return
		}
	}
}

// Wait blocks until the save loop has exited.
func (sv *Saver) Wait() {
	<-sv.done
}

func (sv *Saver) save(doc *Document) {
	if err := sv.store.Save(doc); err != nil {
		sv.logger.LogError(fmt.Sprintf("snapshot persistence degraded: %v", err))
		if sv.onError != nil {
			sv.onError(err)
		}
	}
}

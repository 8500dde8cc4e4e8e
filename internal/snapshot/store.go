package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/harrison/drivescan/internal/filelock"
	"github.com/harrison/drivescan/internal/logger"
)

// Store reads and writes session snapshots. Writes are serialized and go
// through a temp-file-then-rename so a crash mid-write cannot corrupt the
// previously good snapshot.
type Store struct {
	path   string
	logger logger.Logger
	mu     sync.Mutex
}

// NewStore creates a store persisting to the given snapshot path.
func NewStore(path string, log logger.Logger) *Store {
	return &Store{path: path, logger: log}
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}

// Save persists a document. A failed write is retried once immediately;
// a second failure is returned to the caller as a recoverable error: the
// scan keeps running in memory, only persistence degrades.
func (s *Store) Save(doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := filelock.AtomicWrite(s.path, data); err != nil {
		s.logger.LogWarn(fmt.Sprintf("snapshot write failed, retrying once: %v", err))
		if err := filelock.AtomicWrite(s.path, data); err != nil {
			return fmt.Errorf("snapshot write failed after retry: %w", err)
		}
	}
	return nil
}

// Load returns the last snapshot, or nil if none exists. A corrupt or
// unreadable snapshot is logged as a warning and treated as absent, never
// as a fatal error.
func (s *Store) Load() *Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.LogWarn(fmt.Sprintf("snapshot unreadable, starting fresh: %v", err))
		}
		return nil
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.LogWarn(fmt.Sprintf("snapshot corrupt, starting fresh: %v", err))
		return nil
	}
	if doc.Version != Version {
		s.logger.LogWarn(fmt.Sprintf("snapshot version %d unsupported, starting fresh", doc.Version))
		return nil
	}
	return &doc
}

// Archive renames the snapshot aside with a timestamp suffix, used on
// completion or when a cancelled session should be kept for inspection.
// A missing snapshot is not an error.
func (s *Store) Archive() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	archived := fmt.Sprintf("%s.%s.archived", s.path, time.Now().Format("20060102-150405"))
	if err := os.Rename(s.path, archived); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to archive snapshot: %w", err)
	}
	s.logger.LogDebug(fmt.Sprintf("snapshot archived to %s", archived))
	return nil
}

// Delete discards the snapshot. A missing snapshot is not an error.
func (s *Store) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

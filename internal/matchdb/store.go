// Package matchdb persists emitted matches in SQLite so that a crash, a
// pause, or a session ending in error never loses matches already found.
// The unique (session, drive, path) constraint also serves as the seen-set
// that keeps resumed workers from re-emitting matches in the overlap window.
package matchdb

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/drivescan/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// Store manages the SQLite match database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore opens (creating if needed) the match database at dbPath.
// Pass ":memory:" for an in-memory database in tests.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	return openAndInitStore(dbPath)
}

func openAndInitStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// busy_timeout first so the remaining pragmas wait on locks instead of
	// failing when another scanner process touches the same file.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := execWithRetry(db, schemaSQL, 5, 10*time.Millisecond); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// execWithRetry executes a SQL statement with backoff retry on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		lastErr = err
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		time.Sleep(baseDelay << attempt)
	}
	return lastErr
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert records a match. Returns true when the match is new; false when
// the (session, drive, path) was already recorded, which callers use to
// suppress duplicate match events after a resume.
func (s *Store) Insert(sessionID string, m models.Match) (bool, error) {
	res, err := s.db.Exec(
		`INSERT OR IGNORE INTO matches (session_id, drive_id, path, offset, snippet) VALUES (?, ?, ?, ?, ?)`,
		sessionID, m.DriveID, m.Path, m.Offset, m.Snippet,
	)
	if err != nil {
		return false, fmt.Errorf("insert match: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert match: %w", err)
	}
	return n > 0, nil
}

// Matches returns all matches of a session ordered by drive then path.
func (s *Store) Matches(sessionID string) ([]models.Match, error) {
	rows, err := s.db.Query(
		`SELECT drive_id, path, offset, snippet FROM matches WHERE session_id = ? ORDER BY drive_id, path`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	var out []models.Match
	for rows.Next() {
		var m models.Match
		if err := rows.Scan(&m.DriveID, &m.Path, &m.Offset, &m.Snippet); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountByDrive returns per-drive match counts for a session.
func (s *Store) CountByDrive(sessionID string) (map[string]int64, error) {
	rows, err := s.db.Query(
		`SELECT drive_id, COUNT(*) FROM matches WHERE session_id = ? GROUP BY drive_id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("count matches: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var drive string
		var n int64
		if err := rows.Scan(&drive, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[drive] = n
	}
	return counts, rows.Err()
}

// DeleteSession removes all matches of a session, used when a cancelled
// session is discarded rather than archived.
func (s *Store) DeleteSession(sessionID string) error {
	if _, err := s.db.Exec(`DELETE FROM matches WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session matches: %w", err)
	}
	return nil
}

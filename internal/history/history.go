// Package history archives check-cycle outcomes in SQLite so that source
// reliability can be inspected after the fact. The archive is derived data:
// losing it costs trend visibility, never correctness.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/abelbrown/feedwatch/internal/probe"
)

// Store handles SQLite persistence. Concrete type, not an interface.
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Check is one archived per-source result.
type Check struct {
	CheckedAt time.Time
	Source    string
	OK        bool
	Failure   string
	Detail    string
	Articles  int
	// NewestAge in seconds; negative when unknown.
	NewestAge int64
}

// Change is one archived swap or revert.
type Change struct {
	ChangedAt time.Time
	Source    string
	Kind      string // "swap" or "revert"
	OldURL    string
	NewURL    string
}

// Open creates the archive at dbPath, creating the parent directory and
// tables if needed. WAL mode for file-based databases.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	} else {
		db.SetMaxOpenConns(1)
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS checks (
		checked_at DATETIME NOT NULL,
		source TEXT NOT NULL,
		ok INTEGER NOT NULL,
		failure TEXT,
		detail TEXT,
		articles INTEGER DEFAULT 0,
		newest_age_secs INTEGER DEFAULT -1
	);

	CREATE INDEX IF NOT EXISTS idx_checks_source ON checks(source, checked_at DESC);
	CREATE INDEX IF NOT EXISTS idx_checks_at ON checks(checked_at DESC);

	CREATE TABLE IF NOT EXISTS changes (
		changed_at DATETIME NOT NULL,
		source TEXT NOT NULL,
		kind TEXT NOT NULL,
		old_url TEXT NOT NULL,
		new_url TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_changes_at ON changes(changed_at DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// RecordCycle archives one cycle's results and URL changes in a single
// transaction. Changes carry their own kind ("swap" or "revert").
func (s *Store) RecordCycle(at time.Time, results map[string]probe.Result, changes []Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO checks (checked_at, source, ok, failure, detail, articles, newest_age_secs)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for name, res := range results {
		age := int64(-1)
		if res.HasAge {
			age = int64(res.NewestAge.Seconds())
		}
		if _, err := stmt.Exec(at, name, res.OK, string(res.Failure), res.Detail, res.Articles, age); err != nil {
			return fmt.Errorf("insert check: %w", err)
		}
	}

	for _, ch := range changes {
		if _, err := tx.Exec(`
			INSERT INTO changes (changed_at, source, kind, old_url, new_url)
			VALUES (?, ?, ?, ?, ?)
		`, at, ch.Source, ch.Kind, ch.OldURL, ch.NewURL); err != nil {
			return fmt.Errorf("insert change: %w", err)
		}
	}

	return tx.Commit()
}

// RecentChecks returns the newest archived checks, optionally filtered by
// source name, newest first.
func (s *Store) RecentChecks(source string, limit int) ([]Check, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}

	query := `SELECT checked_at, source, ok, failure, detail, articles, newest_age_secs
		FROM checks`
	args := []any{}
	if source != "" {
		query += ` WHERE source = ?`
		args = append(args, source)
	}
	query += ` ORDER BY checked_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query checks: %w", err)
	}
	defer rows.Close()

	var checks []Check
	for rows.Next() {
		var c Check
		if err := rows.Scan(&c.CheckedAt, &c.Source, &c.OK, &c.Failure, &c.Detail, &c.Articles, &c.NewestAge); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		checks = append(checks, c)
	}
	return checks, rows.Err()
}

// RecentChanges returns the newest archived swaps and reverts, newest first.
func (s *Store) RecentChanges(limit int) ([]Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT changed_at, source, kind, old_url, new_url
		FROM changes ORDER BY changed_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query changes: %w", err)
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var c Change
		if err := rows.Scan(&c.ChangedAt, &c.Source, &c.Kind, &c.OldURL, &c.NewURL); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

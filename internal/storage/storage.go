// Package storage persists run history in a local SQLite database:
// which papers have been digested, the full reports, and the delivery
// rate limiter windows.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/delivery"
	"github.com/A-pricity/Daily-AI-Paper-Bot/internal/paper"
)

const schema = `
CREATE TABLE IF NOT EXISTS seen_papers (
	key        TEXT PRIMARY KEY,
	title      TEXT NOT NULL,
	url        TEXT NOT NULL DEFAULT '',
	source     TEXT NOT NULL DEFAULT '',
	first_seen INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS reports (
	run_id     TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	topic      TEXT NOT NULL DEFAULT '',
	body       TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rate_limits (
	channel      TEXT PRIMARY KEY,
	window_start INTEGER NOT NULL,
	count        INTEGER NOT NULL,
	last_request INTEGER NOT NULL
);
`

// Store wraps the SQLite handle.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and makes sure the schema
// exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open database: %w", err)
	}

	// WAL keeps readers from blocking the writer during a run.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: failed to set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: failed to initialize schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// AlreadySeen reports which of the given keys exist in the history.
func (s *Store) AlreadySeen(ctx context.Context, keys []string) (map[string]bool, error) {
	seen := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return seen, nil
	}

	placeholders := strings.Repeat("?,", len(keys)-1) + "?"
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT key FROM seen_papers WHERE key IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to query seen papers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("storage: failed to scan key: %w", err)
		}
		seen[key] = true
	}
	return seen, rows.Err()
}

// MarkSeen records every key of every paper so later runs skip them.
func (s *Store) MarkSeen(ctx context.Context, papers []paper.Paper) error {
	if len(papers) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO seen_papers (key, title, url, source, first_seen) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("storage: failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, p := range papers {
		for _, key := range paper.Keys(p) {
			if _, err := stmt.ExecContext(ctx, key, p.Title, p.URL, p.Source, now); err != nil {
				return fmt.Errorf("storage: failed to insert key %q: %w", key, err)
			}
		}
	}

	return tx.Commit()
}

// SaveReport stores the full markdown report for a run.
func (s *Store) SaveReport(ctx context.Context, runID, topic, body string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO reports (run_id, created_at, topic, body) VALUES (?, ?, ?, ?)",
		runID, time.Now().Unix(), topic, body)
	if err != nil {
		return fmt.Errorf("storage: failed to save report: %w", err)
	}
	return nil
}

// LatestReport returns the most recent stored report body, or ok=false
// when no run has completed yet.
func (s *Store) LatestReport(ctx context.Context) (string, bool, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		"SELECT body FROM reports ORDER BY created_at DESC LIMIT 1").Scan(&body)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("storage: failed to load report: %w", err)
	}
	return body, true, nil
}

// LoadRateState restores a channel's limiter window. Implements
// delivery.StateStore.
func (s *Store) LoadRateState(channel string) (delivery.State, bool, error) {
	var windowStart, count, lastRequest int64
	err := s.db.QueryRow(
		"SELECT window_start, count, last_request FROM rate_limits WHERE channel = ?",
		channel).Scan(&windowStart, &count, &lastRequest)
	if err == sql.ErrNoRows {
		return delivery.State{}, false, nil
	}
	if err != nil {
		return delivery.State{}, false, fmt.Errorf("storage: failed to load rate state: %w", err)
	}

	return delivery.State{
		WindowStart: time.Unix(windowStart, 0),
		Count:       int(count),
		LastRequest: time.Unix(lastRequest, 0),
	}, true, nil
}

// SaveRateState persists a channel's limiter window.
func (s *Store) SaveRateState(channel string, state delivery.State) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO rate_limits (channel, window_start, count, last_request) VALUES (?, ?, ?, ?)",
		channel, state.WindowStart.Unix(), state.Count, state.LastRequest.Unix())
	if err != nil {
		return fmt.Errorf("storage: failed to save rate state: %w", err)
	}
	return nil
}

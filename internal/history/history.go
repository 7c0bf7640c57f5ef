// Package history keeps a SQLite log of print readings so the CLI can show
// how a print progressed.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/1broseidon/printmon/internal/telemetry"
)

const schema = `
CREATE TABLE IF NOT EXISTS readings (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	at_unix_ms     INTEGER NOT NULL,
	pattern        TEXT    NOT NULL DEFAULT '',
	task           TEXT    NOT NULL DEFAULT '',
	mass           TEXT    NOT NULL DEFAULT '',
	total_time     TEXT    NOT NULL DEFAULT '',
	remaining_time TEXT    NOT NULL DEFAULT '',
	layer          TEXT    NOT NULL DEFAULT '',
	percent        INTEGER NOT NULL,
	hotend         TEXT    NOT NULL DEFAULT '',
	hotbed         TEXT    NOT NULL DEFAULT '',
	box            TEXT,
	eta            TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS readings_at ON readings(at_unix_ms);
`

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

// Store is a reading log backed by SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the log at path, creating parent directories.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history: empty database path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("history: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	// One writer; also keeps ":memory:" on a single database.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: schema: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenMemory opens an in-memory log.
func OpenMemory() (*Store, error) {
	return Open(":memory:")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends snap unless it shows the same reading as the newest row.
func (s *Store) Record(ctx context.Context, snap *telemetry.Snapshot) error {
	if snap == nil {
		return nil
	}
	last, err := s.Recent(ctx, 1)
	if err != nil {
		return err
	}
	if len(last) == 1 && last[0].SameReading(snap) {
		return nil
	}

	var box sql.NullString
	if snap.Box != nil {
		box = sql.NullString{String: *snap.Box, Valid: true}
	}
	at := snap.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO readings (at_unix_ms, pattern, task, mass, total_time, remaining_time,
			layer, percent, hotend, hotbed, box, eta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		at.UnixMilli(), snap.Pattern, snap.Task, snap.Mass, snap.TotalTime, snap.RemainingTime,
		snap.Layer, snap.Percent, snap.Hotend, snap.Hotbed, box, snap.ETA)
	if err != nil {
		return fmt.Errorf("history: insert: %w", err)
	}
	return nil
}

// Recent returns up to limit readings, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*telemetry.Snapshot, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT at_unix_ms, pattern, task, mass, total_time, remaining_time,
			layer, percent, hotend, hotbed, box, eta
		FROM readings ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var out []*telemetry.Snapshot
	for rows.Next() {
		var (
			snap telemetry.Snapshot
			atMs int64
			box  sql.NullString
		)
		if err := rows.Scan(&atMs, &snap.Pattern, &snap.Task, &snap.Mass, &snap.TotalTime,
			&snap.RemainingTime, &snap.Layer, &snap.Percent, &snap.Hotend, &snap.Hotbed,
			&box, &snap.ETA); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		snap.At = time.UnixMilli(atMs)
		if box.Valid {
			v := box.String
			snap.Box = &v
		}
		if d, ok := telemetry.ParseRemaining(snap.RemainingTime); ok {
			snap.Remaining, snap.HasRemaining = d, true
		}
		out = append(out, &snap)
	}
	return out, rows.Err()
}

// Count returns the number of stored readings.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM readings`).Scan(&n); err != nil {
		return 0, fmt.Errorf("history: count: %w", err)
	}
	return n, nil
}

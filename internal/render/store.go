package render

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/axiomson/axiomson/internal/score"
)

//go:embed schema.sql
var schemaSQL string

// Store is a SQLite-backed Pipeline that persists rendered scores.
// Uses WAL mode for concurrent read access during writes.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - foreign key enforcement
//
// Idempotent - safe to call on an existing store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY during track batches.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragma %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Render implements Pipeline: it persists the run, its tracks, and their
// events in one transaction.
//
// Inserts use ON CONFLICT DO NOTHING keyed by the run token, so
// re-rendering the same run is idempotent.
func (s *Store) Render(ctx context.Context, token string, sc score.Score) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("render to store: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (token, tempo) VALUES (?, ?)
		ON CONFLICT(token) DO NOTHING
	`, token, sc.Tempo)
	if err != nil {
		return fmt.Errorf("render to store: write run: %w", err)
	}

	for _, tr := range sc.Tracks {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO tracks (run_token, name, instrument, program)
			VALUES (?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, token, tr.Name, tr.Instrument, tr.Program)
		if err != nil {
			return fmt.Errorf("render to store: write track %q: %w", tr.Name, err)
		}

		for _, e := range tr.Events {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO events (run_token, track, seq, pitch, velocity, start_seconds, end_seconds)
				VALUES (?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT DO NOTHING
			`, token, tr.Name, e.Seq, e.Pitch, e.Velocity, e.Start, e.End)
			if err != nil {
				return fmt.Errorf("render to store: write event %d of %q: %w", e.Seq, tr.Name, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("render to store: %w", err)
	}
	return nil
}

// ReadTrack returns the events of one track of one run, ordered by seq.
func (s *Store) ReadTrack(ctx context.Context, token, name string) ([]score.NoteEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, pitch, velocity, start_seconds, end_seconds
		FROM events
		WHERE run_token = ? AND track = ?
		ORDER BY seq
	`, token, name)
	if err != nil {
		return nil, fmt.Errorf("read track %q: %w", name, err)
	}
	defer rows.Close()

	var events []score.NoteEvent
	for rows.Next() {
		e := score.NoteEvent{Track: name}
		if err := rows.Scan(&e.Seq, &e.Pitch, &e.Velocity, &e.Start, &e.End); err != nil {
			return nil, fmt.Errorf("read track %q: %w", name, err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read track %q: %w", name, err)
	}
	return events, nil
}

// Runs returns all stored run tokens, oldest first. Tokens are UUIDv7 so
// lexical order is creation order.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT token FROM runs ORDER BY token`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var tok string
		if err := rows.Scan(&tok); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		tokens = append(tokens, tok)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return tokens, nil
}

// Package store keeps a SQLite history of pipeline runs and their stage
// events. It implements orchestrator.RunRecorder.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fyrsmithlabs/adanalyst/internal/orchestrator"
)

// ErrRunNotFound is returned when a run id has no history.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded pipeline run.
type Run struct {
	ID         string
	Query      string
	Status     orchestrator.Status
	StartedAt  time.Time
	FinishedAt *time.Time
	EventCount int
}

// Event is one recorded stage event.
type Event struct {
	ID    string
	RunID string
	Seq   int
	orchestrator.StageEvent
}

// Store is a SQLite-backed run history.
type Store struct {
	db   *sql.DB
	mu   sync.Mutex
	path string
}

var _ orchestrator.RunRecorder = (*Store)(nil)

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer; the pipeline records sequentially.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	runsTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		query TEXT NOT NULL,
		status TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	`

	eventsTable := `
	CREATE TABLE IF NOT EXISTS stage_events (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL REFERENCES runs(id),
		seq INTEGER NOT NULL,
		step TEXT NOT NULL,
		status TEXT NOT NULL,
		detail TEXT,
		timestamp TEXT NOT NULL,
		UNIQUE(run_id, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_events_run ON stage_events(run_id);
	`

	for _, table := range []string{runsTable, eventsTable} {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	return time.Parse(timeLayout, v)
}

// StartRun records a new run in the started state. Starting an existing run
// id again resets it.
func (s *Store) StartRun(ctx context.Context, runID, query string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM stage_events WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to clear events: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, query, status, started_at, finished_at)
		VALUES (?, ?, ?, ?, NULL)
		ON CONFLICT(id) DO UPDATE SET
			query = excluded.query,
			status = excluded.status,
			started_at = excluded.started_at,
			finished_at = NULL`,
		runID, query, string(orchestrator.StatusStarted), formatTime(startedAt))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return tx.Commit()
}

// RecordEvent stores one stage event under runID.
func (s *Store) RecordEvent(ctx context.Context, runID string, seq int, ev orchestrator.StageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var detail sql.NullString
	if ev.Detail != nil {
		detail = sql.NullString{String: *ev.Detail, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stage_events (id, run_id, seq, step, status, detail, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), runID, seq, string(ev.Step), string(ev.Status), detail, formatTime(ev.Timestamp))
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// FinishRun sets the final status of runID.
func (s *Store) FinishRun(ctx context.Context, runID string, status orchestrator.Status, finishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		string(status), formatTime(finishedAt), runID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. A non-positive limit
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.query, r.status, r.started_at, r.finished_at,
			(SELECT COUNT(*) FROM stage_events e WHERE e.run_id = r.id)
		FROM runs r
		ORDER BY r.started_at DESC, r.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			status   string
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Query, &status, &started, &finished, &r.EventCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Status = orchestrator.Status(status)
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("run %s: bad started_at: %w", r.ID, err)
		}
		if finished.Valid {
			t, err := parseTime(finished.String)
			if err != nil {
				return nil, fmt.Errorf("run %s: bad finished_at: %w", r.ID, err)
			}
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Events returns the events of runID in recording order.
func (s *Store) Events(ctx context.Context, runID string) ([]Event, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, step, status, detail, timestamp
		FROM stage_events
		WHERE run_id = ?
		ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e      = Event{RunID: runID}
			step   string
			status string
			detail sql.NullString
			ts     string
		)
		if err := rows.Scan(&e.ID, &e.Seq, &step, &status, &detail, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Step = orchestrator.Stage(step)
		e.Status = orchestrator.Status(status)
		if detail.Valid {
			d := detail.String
			e.Detail = &d
		}
		if e.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("event %s: bad timestamp: %w", e.ID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Package history keeps a SQLite record of transform and check runs on the host side,
// after results have been handed back to the caller.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/ditabuilder/internal/integrity"
	"git.home.luguber.info/inful/ditabuilder/internal/transform"
)

// Kind tells which operation produced an entry.
type Kind string

const (
	KindTransform Kind = "transform"
	KindCheck     Kind = "check"
)

// Entry is one recorded run.
type Entry struct {
	ID        int64         `json:"id"`
	Kind      Kind          `json:"kind"`
	RunID     string        `json:"run_id,omitempty"`
	Subject   string        `json:"subject"` // transtype for transforms, root for checks
	Status    string        `json:"status"`
	Passed    bool          `json:"passed"`
	Errors    int           `json:"errors"`
	Warnings  int           `json:"warnings"`
	Stage     string        `json:"stage,omitempty"`
	Duration  time.Duration `json:"duration"`
	StartedAt time.Time     `json:"started_at"`
	Payload   []byte        `json:"-"`
}

// Query filters List.
type Query struct {
	Kind    Kind
	Subject string
	Since   time.Time
	Limit   int
}

// DefaultLimit bounds List when Query.Limit is zero.
const DefaultLimit = 20

// Store is a SQLite-backed run history.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the database at dbPath.
// Use ":memory:" for an in-memory database.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		run_id TEXT,
		subject TEXT NOT NULL,
		status TEXT NOT NULL,
		passed INTEGER NOT NULL,
		errors INTEGER NOT NULL,
		warnings INTEGER NOT NULL,
		stage TEXT,
		duration_ms INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		payload BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind);
	CREATE INDEX IF NOT EXISTS idx_runs_subject ON runs(subject);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordTransform stores a summary of res.
func (s *Store) RecordTransform(ctx context.Context, res *transform.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return s.insert(ctx, Entry{
		Kind:      KindTransform,
		RunID:     res.ID,
		Subject:   res.Transtype,
		Status:    res.Status.String(),
		Passed:    res.Succeeded(),
		Errors:    res.Summary.Errors,
		Warnings:  res.Summary.Warnings,
		Stage:     res.Summary.Stage.String(),
		Duration:  res.Duration,
		StartedAt: res.StartedAt,
		Payload:   payload,
	})
}

// RecordCheck stores the counts of result. Only the counts and broken records are kept.
func (s *Store) RecordCheck(ctx context.Context, result *integrity.CheckResult, failOnBroken bool, startedAt time.Time) error {
	payload, err := json.Marshal(struct {
		Counts integrity.Counts       `json:"counts"`
		Broken []integrity.LinkRecord `json:"broken,omitempty"`
	}{result.Counts, result.Broken})
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	status := "passed"
	if result.Counts.Broken() > 0 {
		status = fmt.Sprintf("%d broken", result.Counts.Broken())
	}
	return s.insert(ctx, Entry{
		Kind:      KindCheck,
		Subject:   result.Root,
		Status:    status,
		Passed:    result.Passed(failOnBroken),
		Errors:    result.Counts.Broken(),
		Warnings:  len(result.DocumentErrors),
		Duration:  result.Duration,
		StartedAt: startedAt,
		Payload:   payload,
	})
}

func (s *Store) insert(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (kind, run_id, subject, status, passed, errors, warnings, stage, duration_ms, started_at, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(e.Kind), e.RunID, e.Subject, e.Status, e.Passed, e.Errors, e.Warnings, e.Stage,
		e.Duration.Milliseconds(), e.StartedAt.UnixMilli(), e.Payload,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// List returns the newest entries matching q, newest first.
func (s *Store) List(ctx context.Context, q Query) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := "SELECT id, kind, run_id, subject, status, passed, errors, warnings, stage, duration_ms, started_at, payload FROM runs WHERE 1=1"
	var args []any
	if q.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(q.Kind))
	}
	if q.Subject != "" {
		query += " AND subject = ?"
		args = append(args, q.Subject)
	}
	if !q.Since.IsZero() {
		query += " AND started_at >= ?"
		args = append(args, q.Since.UnixMilli())
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	query += " ORDER BY started_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			kind       string
			runID      sql.NullString
			stage      sql.NullString
			durationMS int64
			startedMS  int64
		)
		if err := rows.Scan(&e.ID, &kind, &runID, &e.Subject, &e.Status, &e.Passed, &e.Errors, &e.Warnings,
			&stage, &durationMS, &startedMS, &e.Payload); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.Kind = Kind(kind)
		e.RunID = runID.String
		e.Stage = stage.String
		e.Duration = time.Duration(durationMS) * time.Millisecond
		e.StartedAt = time.UnixMilli(startedMS)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return entries, nil
}

// Prune deletes entries that started before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

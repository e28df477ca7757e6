package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run status values.
const (
	RunRunning   = "running"
	RunOK        = "ok"
	RunFailed    = "failed"
	RunCancelled = "cancelled"
)

// Run is one entry of the ingest run log.
type Run struct {
	ID         string     `json:"id"`
	Mode       string     `json:"mode"`
	Source     string     `json:"source"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     string     `json:"status"`
	Records    int        `json:"records"`
	Error      string     `json:"error,omitempty"`
}

// BeginRun records the start of an ingest run. An empty r.ID is filled
// with a new ULID.
func (s *SQLiteStore) BeginRun(ctx context.Context, r Run) (Run, error) {
	if r.ID == "" {
		r.ID = s.newID()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	r.Status = RunRunning

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, mode, source, started_at, status) VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.Mode, r.Source, r.StartedAt.UTC().Format(time.RFC3339), r.Status)
	if err != nil {
		return r, fmt.Errorf("begin run: %w", err)
	}
	return r, nil
}

// FinishRun stores the outcome of run id.
func (s *SQLiteStore) FinishRun(ctx context.Context, id, status string, records int, runErr error) error {
	var msg *string
	if runErr != nil {
		m := runErr.Error()
		msg = &m
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE ingest_runs SET finished_at = ?, status = ?, records = ?, error = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), status, records, msg, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return nil
}

// LastRun returns the most recently started run.
func (s *SQLiteStore) LastRun(ctx context.Context) (Run, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, fmt.Errorf("last run: %w", ErrNotFound)
	}
	return runs[0], nil
}

// ListRuns returns up to limit runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, mode, source, started_at, finished_at, status, records, error
		 FROM ingest_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var started string
	var finished, msg sql.NullString
	err := row.Scan(&r.ID, &r.Mode, &r.Source, &started, &finished, &r.Status, &r.Records, &msg)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	if err != nil {
		return r, err
	}
	r.StartedAt = parseTime(started)
	if finished.Valid {
		t := parseTime(finished.String)
		r.FinishedAt = &t
	}
	if msg.Valid {
		r.Error = msg.String
	}
	return r, nil
}

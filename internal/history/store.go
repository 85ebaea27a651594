package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ziadkadry99/notedraft/internal/db"
	"github.com/ziadkadry99/notedraft/internal/pipeline"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Store provides CRUD operations for runs.
type Store struct {
	db  *db.DB
	now func() time.Time
}

// NewStore creates a Store backed by the given database.
func NewStore(database *db.DB) *Store {
	return &Store{db: database, now: time.Now}
}

// Start inserts run in the running state. If run.ID is empty a UUID is
// generated. The stored ID is returned.
func (s *Store) Start(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Source == "" {
		run.Source = SourceCLI
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, source, case_name, backend, model_id, risk_level, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		s.now().UTC().Format(time.DateTime),
		string(run.Source),
		run.CaseName,
		run.Backend,
		run.ModelID,
		run.RiskLevel,
		string(StatusRunning),
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}
	return run.ID, nil
}

// RecordAttempt stores one attempt of a run.
func (s *Store) RecordAttempt(ctx context.Context, runID string, a pipeline.Attempt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO attempts (run_id, idx, state, error, raw_text, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, a.Index, a.State.String(), a.Err, a.Raw, a.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("inserting attempt: %w", err)
	}
	return nil
}

// Finish closes a run. The status is derived from runErr: nil succeeded,
// a spent retry budget exhausted, anything else failed.
func (s *Store) Finish(ctx context.Context, runID string, runErr error) error {
	status := StatusSucceeded
	var msg, artifact string
	if runErr != nil {
		msg = runErr.Error()
		status = StatusFailed
		var exh *pipeline.ExhaustedError
		if errors.As(runErr, &exh) {
			status = StatusExhausted
			artifact = exh.ArtifactPath
		}
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			finished_at = ?,
			status = ?,
			error = ?,
			artifact_path = ?,
			attempts = (SELECT COUNT(*) FROM attempts WHERE run_id = ?)
		WHERE id = ?`,
		s.now().UTC().Format(time.DateTime), string(status), msg, artifact, runID, runID,
	)
	if err != nil {
		return fmt.Errorf("finishing run: %w", err)
	}
	return nil
}

// Get retrieves a run together with its attempts.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, state, error, raw_text, duration_ms
		FROM attempts WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("querying attempts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a Attempt
		var ms int64
		if err := rows.Scan(&a.Index, &a.State, &a.Error, &a.RawText, &ms); err != nil {
			return nil, err
		}
		a.Duration = time.Duration(ms) * time.Millisecond
		run.Log = append(run.Log, a)
	}
	return run, rows.Err()
}

// ListFilter controls which runs are returned by List.
type ListFilter struct {
	Status Status
	Source Source
	Since  *time.Time
	Limit  int
	Offset int
}

// List returns runs matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Run, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Source != "" {
		clauses = append(clauses, "source = ?")
		args = append(args, string(filter.Source))
	}
	if filter.Since != nil {
		clauses = append(clauses, "started_at >= ?")
		args = append(args, filter.Since.UTC().Format(time.DateTime))
	}

	query := "SELECT " + runColumns + " FROM runs"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY started_at DESC, rowid DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// DeleteBefore removes runs started before the given time, with their
// attempts. Returns the number of deleted runs.
func (s *Store) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM runs WHERE started_at < ?",
		before.UTC().Format(time.DateTime),
	)
	if err != nil {
		return 0, fmt.Errorf("deleting old runs: %w", err)
	}
	return res.RowsAffected()
}

const runColumns = "id, started_at, finished_at, source, case_name, backend, model_id, risk_level, status, attempts, error, artifact_path"

// scanner is implemented by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var (
		r              Run
		started        string
		finished       sql.NullString
		source, status string
	)
	err := sc.Scan(
		&r.ID, &started, &finished, &source, &r.CaseName, &r.Backend,
		&r.ModelID, &r.RiskLevel, &status, &r.Attempts, &r.Error, &r.ArtifactPath,
	)
	if err != nil {
		return nil, err
	}
	r.Source = Source(source)
	r.Status = Status(status)
	r.StartedAt = parseTime(started)
	if finished.Valid {
		t := parseTime(finished.String)
		r.FinishedAt = &t
	}
	return &r, nil
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.DateTime, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

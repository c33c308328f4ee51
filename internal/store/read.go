package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned by ReadRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed-width so started_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, suite, image, started_at, duration_ms, status, exit_code,
	tests, failures, errors, skips, failure_reason, vm`

// ListRuns returns the most recent runs, newest first, without their cases.
// A limit of zero or less returns every run.
//
// Returns an empty slice (not nil) when nothing has been recorded.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns one run with its cases in report order.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return Run{}, err
	}

	r.Cases, err = s.readCases(ctx, id)
	if err != nil {
		return Run{}, err
	}
	return r, nil
}

func (s *Store) readCases(ctx context.Context, runID string) ([]Case, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT class_name, name, status, message, file, line
		FROM cases
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query cases: %w", err)
	}
	defer rows.Close()

	var cases []Case
	for rows.Next() {
		var c Case
		if err := rows.Scan(&c.ClassName, &c.Name, &c.Status, &c.Message, &c.File, &c.Line); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		cases = append(cases, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return cases, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r         Run
		startedAt string
		durMS     int64
		vm        string
	)
	err := sc.Scan(&r.ID, &r.Suite, &r.Image, &startedAt, &durMS, &r.Status, &r.ExitCode,
		&r.Tests, &r.Failures, &r.Errors, &r.Skips, &r.FailureReason, &vm)
	if errors.Is(err, sql.ErrNoRows) {
		return r, err
	}
	if err != nil {
		return r, fmt.Errorf("scan run: %w", err)
	}

	r.StartedAt, err = time.Parse(timeLayout, startedAt)
	if err != nil {
		return r, fmt.Errorf("scan run %s: started_at: %w", r.ID, err)
	}
	r.Duration = time.Duration(durMS) * time.Millisecond
	if err := json.Unmarshal([]byte(vm), &r.VM); err != nil {
		return r, fmt.Errorf("scan run %s: vm: %w", r.ID, err)
	}
	return r, nil
}

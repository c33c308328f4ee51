package store

import (
	"context"
	"encoding/json"
	"fmt"
)

// WriteRun inserts a run and its cases in one transaction.
// Writing a run id that already exists is an error: history is append-only.
func (s *Store) WriteRun(ctx context.Context, r Run) error {
	vm, err := json.Marshal(r.VM)
	if err != nil {
		return fmt.Errorf("write run: marshal vm: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, suite, image, started_at, duration_ms, status, exit_code,
		 tests, failures, errors, skips, failure_reason, vm)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID,
		r.Suite,
		r.Image,
		r.StartedAt.UTC().Format(timeLayout),
		r.Duration.Milliseconds(),
		r.Status,
		r.ExitCode,
		r.Tests,
		r.Failures,
		r.Errors,
		r.Skips,
		r.FailureReason,
		string(vm),
	)
	if err != nil {
		return fmt.Errorf("write run %s: %w", r.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cases (run_id, seq, class_name, name, status, message, file, line)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write run %s: %w", r.ID, err)
	}
	defer stmt.Close()

	for i, c := range r.Cases {
		if _, err := stmt.ExecContext(ctx, r.ID, i, c.ClassName, c.Name, c.Status, c.Message, c.File, c.Line); err != nil {
			return fmt.Errorf("write case %s.%s: %w", c.ClassName, c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run %s: commit: %w", r.ID, err)
	}
	return nil
}

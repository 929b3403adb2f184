package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/sqlexplain/pkg/core"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SaveRun stores a run and its records in one transaction. An empty ID is
// filled with a new UUID and a zero CreatedAt with the current time.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run) (err error) {
	if s.db == nil {
		return errNotOpen
	}
	if run.ID == "" {
		run.ID = generateID()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	steps := run.Steps
	if steps == nil {
		steps = []StepInfo{}
	}
	input, err := json.Marshal(steps)
	if err != nil {
		return fmt.Errorf("failed to encode run steps: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, question, provider, model, step_count, input, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Question, run.Provider, run.Model, len(run.Results), string(input), run.CreatedAt.UTC().Format(timeLayout),
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for step, records := range run.Results {
		for pos, rec := range records {
			var data []byte
			data, err = json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to encode record %d of step %d: %w", pos, step, err)
			}
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO records (run_id, step, position, type, record) VALUES (?, ?, ?, ?, ?)`,
				run.ID, step, pos, string(rec.Type), string(data),
			); err != nil {
				return fmt.Errorf("failed to insert record: %w", err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	s.logger.Debug("saved run", slog.String("id", run.ID), slog.Int("steps", len(run.Results)))
	return nil
}

// GetRun retrieves a run and its records.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, errNotOpen
	}

	run := &Run{}
	var stepCount int
	var input, createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, question, provider, model, step_count, input, created_at FROM runs WHERE id = ?`,
		id,
	).Scan(&run.ID, &run.Question, &run.Provider, &run.Model, &stepCount, &input, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if run.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse run time: %w", err)
	}
	if err := json.Unmarshal([]byte(input), &run.Steps); err != nil {
		return nil, fmt.Errorf("failed to decode run steps: %w", err)
	}

	run.Results = make([][]core.ExplanationRecord, stepCount)
	for i := range run.Results {
		run.Results[i] = []core.ExplanationRecord{}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT step, record FROM records WHERE run_id = ? ORDER BY step, position`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get run records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var step int
		var data string
		if err := rows.Scan(&step, &data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		if step < 0 || step >= stepCount {
			return nil, fmt.Errorf("record step %d out of range for run %s", step, id)
		}
		var rec core.ExplanationRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode record: %w", err)
		}
		run.Results[step] = append(run.Results[step], rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if s.db == nil {
		return nil, errNotOpen
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.question, r.provider, r.model, r.step_count, r.created_at,
		       (SELECT COUNT(*) FROM records rec WHERE rec.run_id = r.id)
		FROM runs r
		ORDER BY r.created_at DESC, r.id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Question, &r.Provider, &r.Model, &r.StepCount, &createdAt, &r.RecordCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse run time: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}

// DeleteRun removes a run and its records.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	if s.db == nil {
		return errNotOpen
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	s.logger.Debug("deleted run", slog.String("id", id))
	return nil
}

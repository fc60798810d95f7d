package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/gridval/internal/report"
	"github.com/roach88/gridval/internal/validation"
)

// Sentinel errors for run lookups. Match with errors.Is.
var (
	ErrRunNotFound = errors.New("run not found")
	ErrCorruptRun  = errors.New("stored result does not match its digest")
)

// Run is one archived validation call.
type Run struct {
	ID      string
	Label   string
	Seq     int64
	Summary report.Summary
	// Result is nil in listings.
	Result *validation.Result
}

// SaveRun archives a result under a fresh run identifier.
// The run and its failing scenarios are written in one transaction.
func (s *Store) SaveRun(ctx context.Context, label string, res *validation.Result) (*Run, error) {
	canonical, err := report.Encode(res)
	if err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	summary, err := report.Summarize(res)
	if err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	run := &Run{ID: s.ids.Generate(), Label: label, Summary: summary, Result: res}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, label, scenarios, violations, digest, result)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, label, summary.Scenarios, summary.Violations, summary.Digest, string(canonical))
	if err != nil {
		return nil, fmt.Errorf("save run %s: %w", run.ID, err)
	}
	if run.Seq, err = result.LastInsertId(); err != nil {
		return nil, fmt.Errorf("save run %s: %w", run.ID, err)
	}

	for _, i := range summary.Failed {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_failures (run_id, scenario, violations) VALUES (?, ?, ?)
		`, run.ID, i, len(res.Scenario(i))); err != nil {
			return nil, fmt.Errorf("save run %s: scenario %d: %w", run.ID, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return run, nil
}

// LoadRun reads an archived run with its full result.
func (s *Store) LoadRun(ctx context.Context, id string) (*Run, error) {
	run := &Run{ID: id}
	var canonical string
	err := s.db.QueryRowContext(ctx, `
		SELECT seq, label, scenarios, violations, digest, result
		FROM runs WHERE id = ?
	`, id).Scan(&run.Seq, &run.Label, &run.Summary.Scenarios, &run.Summary.Violations, &run.Summary.Digest, &canonical)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}

	res, err := report.Decode([]byte(canonical))
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	digest, err := report.Digest(res)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", id, err)
	}
	if digest != run.Summary.Digest {
		return nil, fmt.Errorf("load run %s: %w", id, ErrCorruptRun)
	}

	if run.Summary.Failed, err = s.failures(ctx, id); err != nil {
		return nil, err
	}
	run.Result = res
	return run, nil
}

// ListRuns returns every archived run in insertion order, without results.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, label, scenarios, violations, digest
		FROM runs
		ORDER BY seq ASC, id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.Seq, &r.ID, &r.Label, &r.Summary.Scenarios, &r.Summary.Violations, &r.Summary.Digest); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	for i := range runs {
		if runs[i].Summary.Failed, err = s.failures(ctx, runs[i].ID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// RunsWithDigest returns the identifiers of runs whose result has the
// given digest, in insertion order.
func (s *Store) RunsWithDigest(ctx context.Context, digest string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM runs WHERE digest = ? ORDER BY seq ASC
	`, digest)
	if err != nil {
		return nil, fmt.Errorf("runs with digest: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("runs with digest: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteRun removes a run and its failure rows.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

func (s *Store) failures(ctx context.Context, id string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scenario FROM run_failures WHERE run_id = ? ORDER BY scenario ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("load failures of %s: %w", id, err)
	}
	defer rows.Close()

	failed := []int{}
	for rows.Next() {
		var i int
		if err := rows.Scan(&i); err != nil {
			return nil, fmt.Errorf("load failures of %s: %w", id, err)
		}
		failed = append(failed, i)
	}
	return failed, rows.Err()
}

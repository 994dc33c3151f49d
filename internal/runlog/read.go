package runlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned when no run exists for the given ID.
var ErrRunNotFound = errors.New("run not found")

// ReadRun fetches a single run by ID.
func (s *Store) ReadRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, program, program_hash, status,
		       COALESCE(rule, ''), COALESCE(op_index, 0),
		       steps, result, created_at
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read run %q: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read run %q: %w", id, err)
	}
	return run, nil
}

// ListRuns returns runs ordered by insertion (UUIDv7 IDs sort by time).
// An empty programHash matches all programs. Limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, programHash string, limit int) ([]*Run, error) {
	query := `
		SELECT id, program, program_hash, status,
		       COALESCE(rule, ''), COALESCE(op_index, 0),
		       steps, result, created_at
		FROM runs
	`
	var args []any
	if programHash != "" {
		query += " WHERE program_hash = ?"
		args = append(args, programHash)
	}
	query += " ORDER BY id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	var run Run
	err := sc.Scan(
		&run.ID,
		&run.Program,
		&run.ProgramHash,
		&run.Status,
		&run.Rule,
		&run.OpIndex,
		&run.Steps,
		&run.Result,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}

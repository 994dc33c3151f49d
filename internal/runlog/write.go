package runlog

import (
	"context"
	"fmt"

	"github.com/roach88/borrowck/internal/report"
)

// Run is one persisted checker run.
type Run struct {
	ID          string `json:"id"`
	Program     string `json:"program"`
	ProgramHash string `json:"program_hash"`
	Status      string `json:"status"`
	Rule        string `json:"rule,omitempty"`
	OpIndex     int    `json:"op_index,omitempty"`
	Steps       int    `json:"steps"`
	Result      string `json:"result"` // canonical JSON report
	CreatedAt   string `json:"created_at"`
}

// WriteRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - duplicate run IDs are
// silently ignored. Other constraint violations still return errors.
//
// The report is serialized to canonical JSON per RFC 8785 so stored results
// compare byte-for-byte with re-executions.
func (s *Store) WriteRun(ctx context.Context, id string, r *report.Result) error {
	payload, err := r.MarshalCanonical()
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	var rule any
	var opIndex any
	if r.Violation != nil {
		rule = string(r.Violation.Rule)
		opIndex = r.Violation.OpIndex
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, program, program_hash, status, rule, op_index, steps, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		id,
		r.Program,
		r.ProgramHash,
		r.Status,
		rule,
		opIndex,
		r.Steps,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	return nil
}

package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/borrowck/internal/ir"
	"github.com/roach88/borrowck/internal/report"
)

// snapshotMap converts a report to a map for canonical JSON serialization.
// The program hash is deliberately excluded: goldens pin observable
// behavior, and the hash would force a golden update on any cosmetic trace
// file change.
func snapshotMap(scenarioName string, rep *report.Result) map[string]any {
	trace := make([]any, len(rep.Trace))
	for i, ev := range rep.Trace {
		m := map[string]any{
			"seq": ev.Seq,
			"op":  ev.Op,
		}
		if ev.Alloc != "" {
			m["alloc"] = ev.Alloc
		}
		if ev.Binding != "" {
			m["binding"] = ev.Binding
		}
		if ev.Tag != ir.Untagged {
			m["tag"] = uint64(ev.Tag)
		}
		if ev.Perm != "" {
			m["perm"] = ev.Perm
		}
		if ev.Op == string(ir.OpDeclare) || ev.Op == string(ir.OpRead) || ev.Op == string(ir.OpWrite) || ev.Op == string(ir.OpExternCall) {
			m["value"] = ev.Value
		}
		trace[i] = m
	}

	finals := make(map[string]any, len(rep.Finals))
	for name, v := range rep.Finals {
		finals[name] = v
	}

	snapshot := map[string]any{
		"scenario_name": scenarioName,
		"status":        rep.Status,
		"steps":         int64(rep.Steps),
		"trace":         trace,
		"finals":        finals,
	}
	if rep.Violation != nil {
		snapshot["violation"] = map[string]any{
			"op_index":   int64(rep.Violation.OpIndex),
			"allocation": rep.Violation.Allocation,
			"rule":       string(rep.Violation.Rule),
			"tag":        uint64(rep.Violation.Tag),
			"message":    rep.Violation.Message,
		}
	}
	return snapshot
}

// RunWithGolden executes a scenario and compares its report against a
// golden file in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}

	snapshot, err := ir.MarshalCanonical(snapshotMap(scenario.Name, result.Report))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshot)

	return nil
}

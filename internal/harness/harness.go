// Package harness executes conformance scenarios: YAML files that pair a
// CUE trace program with the verdict the checker must reach. Scenarios are
// the executable form of the discipline's documented examples.
package harness

import (
	"fmt"

	"github.com/roach88/borrowck/internal/compiler"
	"github.com/roach88/borrowck/internal/interp"
	"github.com/roach88/borrowck/internal/ir"
	"github.com/roach88/borrowck/internal/report"
)

// Result is the outcome of running one scenario.
type Result struct {
	Scenario string
	Report   *report.Result
	// Failures lists every expectation the run missed. Empty means pass.
	Failures []string
}

// Passed reports whether all expectations held.
func (r *Result) Passed() bool { return len(r.Failures) == 0 }

// Run compiles the scenario's trace, validates it, executes it, and checks
// the verdict against the scenario's expectations.
//
// A non-nil error means the scenario could not be run at all (bad trace
// file, malformed program). Expectation mismatches are reported in
// Result.Failures, not as errors.
func Run(scenario *Scenario) (*Result, error) {
	prog, err := loadProgram(scenario)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}

	if verrs := ir.Validate(prog); len(verrs) > 0 {
		return nil, fmt.Errorf("scenario %q: invalid trace: %s", scenario.Name, verrs[0])
	}

	out, err := interp.New().Run(prog)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}

	rep, err := report.Build(prog, out)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", scenario.Name, err)
	}

	return &Result{
		Scenario: scenario.Name,
		Report:   rep,
		Failures: checkExpectations(scenario, rep),
	}, nil
}

// loadProgram compiles the scenario's trace file or its inline CUE source.
func loadProgram(scenario *Scenario) (*ir.Program, error) {
	if scenario.Program != "" {
		return compiler.LoadBytes([]byte(scenario.Program), scenario.Name+".cue")
	}
	return compiler.LoadFile(scenario.Trace)
}

// checkExpectations collects every mismatch rather than stopping at the
// first, so a failing scenario reports its full diff.
func checkExpectations(scenario *Scenario, rep *report.Result) []string {
	var failures []string
	expect := scenario.Expect

	if rep.Status != expect.Status {
		failures = append(failures,
			fmt.Sprintf("status: got %q, want %q", rep.Status, expect.Status))
	}

	if expect.Status == "violation" && rep.Violation != nil {
		if string(rep.Violation.Rule) != expect.Rule {
			failures = append(failures,
				fmt.Sprintf("rule: got %q, want %q", rep.Violation.Rule, expect.Rule))
		}
		if expect.OpIndex != nil && rep.Violation.OpIndex != *expect.OpIndex {
			failures = append(failures,
				fmt.Sprintf("op_index: got %d, want %d", rep.Violation.OpIndex, *expect.OpIndex))
		}
	}

	for name, want := range expect.Finals {
		got, ok := rep.Finals[name]
		if !ok {
			failures = append(failures,
				fmt.Sprintf("finals.%s: allocation not found", name))
			continue
		}
		if got != want {
			failures = append(failures,
				fmt.Sprintf("finals.%s: got %d, want %d", name, got, want))
		}
	}

	return failures
}

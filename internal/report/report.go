// Package report turns interpreter outcomes into stable, comparable
// artifacts: a structured Result for the run log and JSON consumers, and a
// human-readable rendering for the terminal. Rendering is deterministic so
// two runs of the same program produce byte-identical output.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/roach88/borrowck/internal/interp"
	"github.com/roach88/borrowck/internal/ir"
)

// Result is the serialized form of one checker run.
type Result struct {
	Program     string             `json:"program"`
	ProgramHash string             `json:"program_hash"`
	Status      string             `json:"status"`
	Steps       int                `json:"steps"`
	Violation   *interp.Violation  `json:"violation,omitempty"`
	Trace       []interp.TraceEvent `json:"trace"`
	Finals      map[string]int64   `json:"finals"`
}

// Build assembles a Result from a program and its outcome. The program hash
// binds the result to the exact trace that produced it.
func Build(prog *ir.Program, out *interp.Outcome) (*Result, error) {
	hash, err := ir.ProgramHash(prog)
	if err != nil {
		return nil, fmt.Errorf("hashing program %q: %w", prog.Name, err)
	}
	return &Result{
		Program:     out.Program,
		ProgramHash: hash,
		Status:      out.Status.String(),
		Steps:       out.Steps,
		Violation:   out.Violation,
		Trace:       out.Trace,
		Finals:      out.Finals,
	}, nil
}

// MarshalCanonical renders the Result as RFC 8785 canonical JSON. Used for
// golden comparison and the run log payload column.
func (r *Result) MarshalCanonical() ([]byte, error) {
	trace := make([]any, 0, len(r.Trace))
	for _, ev := range r.Trace {
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
		trace = append(trace, m)
	}

	finals := make(map[string]any, len(r.Finals))
	for name, v := range r.Finals {
		finals[name] = v
	}

	doc := map[string]any{
		"program":      r.Program,
		"program_hash": r.ProgramHash,
		"status":       r.Status,
		"steps":        int64(r.Steps),
		"trace":        trace,
		"finals":       finals,
	}
	if r.Violation != nil {
		doc["violation"] = map[string]any{
			"op_index":   int64(r.Violation.OpIndex),
			"allocation": r.Violation.Allocation,
			"rule":       string(r.Violation.Rule),
			"tag":        uint64(r.Violation.Tag),
			"message":    r.Violation.Message,
		}
	}
	return ir.MarshalCanonical(doc)
}

// RenderText writes a human-readable report. Allocations print in sorted
// name order so output is stable.
func RenderText(w io.Writer, r *Result) error {
	var b strings.Builder

	fmt.Fprintf(&b, "program %s\n", r.Program)
	fmt.Fprintf(&b, "hash    %s\n", r.ProgramHash)
	fmt.Fprintf(&b, "status  %s\n", r.Status)

	if r.Violation != nil {
		v := r.Violation
		fmt.Fprintf(&b, "\nundefined behavior at op %d on allocation %q\n", v.OpIndex, v.Allocation)
		fmt.Fprintf(&b, "  rule: %s\n", v.Rule)
		fmt.Fprintf(&b, "  tag:  %s\n", v.Tag)
		fmt.Fprintf(&b, "  %s\n", v.Message)
	}

	fmt.Fprintf(&b, "\nexecuted %d step(s)\n", r.Steps)

	if len(r.Finals) > 0 {
		fmt.Fprintf(&b, "final values:\n")
		names := make([]string, 0, len(r.Finals))
		for name := range r.Finals {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "  %s = %d\n", name, r.Finals[name])
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

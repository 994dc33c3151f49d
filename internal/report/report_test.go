package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/roach88/borrowck/internal/interp"
	"github.com/roach88/borrowck/internal/ir"
	"github.com/roach88/borrowck/internal/perm"
)

func soundProgram() *ir.Program {
	return &ir.Program{
		Name: "unique_mut_cast",
		Ops: []ir.Operation{
			{Kind: ir.OpDeclare, Name: "x", Value: 2, Mutable: true},
			{Kind: ir.OpBorrow, From: "x", BorrowKind: ir.BorrowUnique, As: "p"},
			{Kind: ir.OpReborrow, Ptr: "p", BorrowKind: ir.BorrowUnique, As: "q"},
			{Kind: ir.OpExternCall, Ptr: "q"},
			{Kind: ir.OpRead, Ptr: "q"},
		},
	}
}

func violatingProgram() *ir.Program {
	return &ir.Program{
		Name: "shared_extern_write",
		Ops: []ir.Operation{
			{Kind: ir.OpDeclare, Name: "x", Value: 2},
			{Kind: ir.OpBorrow, From: "x", BorrowKind: ir.BorrowShared, As: "p"},
			{Kind: ir.OpExternCall, Ptr: "p"},
		},
	}
}

func buildResult(t *testing.T, prog *ir.Program) *Result {
	t.Helper()
	out, err := interp.New().Run(prog)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	r, err := Build(prog, out)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return r
}

func TestBuild_Sound(t *testing.T) {
	r := buildResult(t, soundProgram())

	if r.Status != "sound" {
		t.Errorf("Status = %q, want sound", r.Status)
	}
	if r.Violation != nil {
		t.Errorf("Violation = %+v, want nil", r.Violation)
	}
	if len(r.ProgramHash) != 64 {
		t.Errorf("ProgramHash = %q, want 64 hex chars", r.ProgramHash)
	}
	if r.ProgramHash != ir.MustProgramHash(soundProgram()) {
		t.Error("ProgramHash does not match ir.ProgramHash")
	}
	if r.Finals["x"] != 1 {
		t.Errorf("Finals[x] = %d, want 1", r.Finals["x"])
	}
}

func TestBuild_Violation(t *testing.T) {
	r := buildResult(t, violatingProgram())

	if r.Status != "violation" {
		t.Errorf("Status = %q, want violation", r.Status)
	}
	if r.Violation == nil {
		t.Fatal("Violation is nil")
	}
	if r.Violation.Rule != perm.RuleReadOnlyViolation {
		t.Errorf("Rule = %s, want READ_ONLY_VIOLATION", r.Violation.Rule)
	}
}

func TestMarshalCanonical_Deterministic(t *testing.T) {
	first, err := buildResult(t, violatingProgram()).MarshalCanonical()
	if err != nil {
		t.Fatalf("MarshalCanonical failed: %v", err)
	}
	second, err := buildResult(t, violatingProgram()).MarshalCanonical()
	if err != nil {
		t.Fatalf("MarshalCanonical failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Errorf("canonical output differs:\n%s\n%s", first, second)
	}
	if !bytes.Contains(first, []byte(`"rule":"READ_ONLY_VIOLATION"`)) {
		t.Errorf("canonical output missing rule: %s", first)
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderText(&buf, buildResult(t, violatingProgram())); err != nil {
		t.Fatalf("RenderText failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"program shared_extern_write",
		"status  violation",
		`undefined behavior at op 2 on allocation "x"`,
		"rule: READ_ONLY_VIOLATION",
		"final values:",
		"  x = 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRenderText_Sound(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderText(&buf, buildResult(t, soundProgram())); err != nil {
		t.Fatalf("RenderText failed: %v", err)
	}
	out := buf.String()

	if strings.Contains(out, "undefined behavior") {
		t.Errorf("sound report mentions undefined behavior:\n%s", out)
	}
	if !strings.Contains(out, "status  sound") {
		t.Errorf("output missing sound status:\n%s", out)
	}
	if !strings.Contains(out, "  x = 1") {
		t.Errorf("output missing final value:\n%s", out)
	}
}

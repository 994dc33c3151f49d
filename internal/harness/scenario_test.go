package harness

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()

	// A real trace file so path validation passes.
	tracePath := filepath.Join(dir, "trace.cue")
	trace := `program: {
	name: "t"
	ops: [{op: "declare", name: "x", value: 1}]
}`
	if err := os.WriteFile(tracePath, []byte(trace), 0o644); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(dir, "scenario.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadScenario_Valid(t *testing.T) {
	path := writeScenario(t, `name: t
description: a valid scenario
trace: trace.cue
expect:
  status: sound
`)

	scenario, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario failed: %v", err)
	}
	if scenario.Name != "t" {
		t.Errorf("Name = %q", scenario.Name)
	}
	if !filepath.IsAbs(scenario.Trace) {
		t.Errorf("trace path not resolved: %q", scenario.Trace)
	}
}

func TestLoadScenario_InlineProgram(t *testing.T) {
	path := writeScenario(t, `name: inline
description: carries its trace inline
program: |
  program: {
    name: "inline"
    ops: [{op: "declare", name: "x", value: 1}]
  }
expect:
  status: sound
`)

	scenario, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("LoadScenario failed: %v", err)
	}
	if scenario.Program == "" {
		t.Error("inline program not loaded")
	}
	if scenario.Trace != "" {
		t.Errorf("trace unexpectedly set: %q", scenario.Trace)
	}
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "unknown field",
			content: `name: t
description: d
trace: trace.cue
expects:
  status: sound
`,
			wantErr: "field expects not found",
		},
		{
			name: "missing description",
			content: `name: t
trace: trace.cue
expect:
  status: sound
`,
			wantErr: "description is required",
		},
		{
			name: "missing status",
			content: `name: t
description: d
trace: trace.cue
expect: {}
`,
			wantErr: "expect.status is required",
		},
		{
			name: "bad status",
			content: `name: t
description: d
trace: trace.cue
expect:
  status: maybe
`,
			wantErr: `must be "sound" or "violation"`,
		},
		{
			name: "violation without rule",
			content: `name: t
description: d
trace: trace.cue
expect:
  status: violation
`,
			wantErr: "expect.rule is required",
		},
		{
			name: "sound with rule",
			content: `name: t
description: d
trace: trace.cue
expect:
  status: sound
  rule: DISABLED
`,
			wantErr: "expect.rule must be empty",
		},
		{
			name: "unknown rule",
			content: `name: t
description: d
trace: trace.cue
expect:
  status: violation
  rule: SEGFAULT
`,
			wantErr: "unknown violation rule",
		},
		{
			name: "missing trace file",
			content: `name: t
description: d
trace: nope.cue
expect:
  status: sound
`,
			wantErr: "trace file not found",
		},
		{
			name: "neither trace nor program",
			content: `name: t
description: d
expect:
  status: sound
`,
			wantErr: "one of trace or program is required",
		},
		{
			name: "both trace and program",
			content: `name: t
description: d
trace: trace.cue
program: 'program: {name: "t", ops: []}'
expect:
  status: sound
`,
			wantErr: "mutually exclusive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, tt.content)
			_, err := LoadScenario(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

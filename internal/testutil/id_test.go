package testutil

import "testing"

func TestFixedRunIDGenerator(t *testing.T) {
	g := NewFixedRunIDGenerator("run-42")
	if g.Generate() != "run-42" {
		t.Errorf("Generate() = %q, want run-42", g.Generate())
	}
	if g.Generate() != "run-42" {
		t.Error("generator is not fixed")
	}
}

func TestFixedRunIDGeneratorDefault(t *testing.T) {
	g := NewFixedRunIDGenerator("")
	if g.Generate() != "test-run-default" {
		t.Errorf("Generate() = %q, want test-run-default", g.Generate())
	}
}

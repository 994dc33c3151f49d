// Package testutil provides deterministic substitutes for the checker's
// nondeterministic collaborators.
package testutil

// FixedRunIDGenerator returns the same run ID every time.
//
// Harness scenarios pin run IDs so the run log contents are byte-identical
// across executions of the same scenario.
//
// Thread-safety: stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a generator that always returns id.
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run ID.
//
// Implements runlog.RunIDGenerator.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}

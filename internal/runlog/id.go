package runlog

import "github.com/google/uuid"

// RunIDGenerator produces identifiers for run records.
//
// The production implementation is UUIDv7Generator; tests substitute
// testutil.FixedRunIDGenerator for deterministic golden output.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, so ordering run
// rows by ID orders them by creation time.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

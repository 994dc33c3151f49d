package memory

import "errors"

// ErrInvalidAllocation marks a reference to an unknown allocation name.
// This is a malformed-trace error, never an aliasing violation: the
// interpreter surfaces it as a construction-time failure before any
// permission reasoning happens.
var ErrInvalidAllocation = errors.New("invalid allocation")

// ErrDuplicateAllocation marks a second Declare under an existing name.
var ErrDuplicateAllocation = errors.New("duplicate allocation")

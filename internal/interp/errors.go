package interp

import (
	"errors"
	"fmt"
)

// TraceError reports a malformed trace: the program referenced something
// that does not exist or rebound an identifier. These are harness/input
// construction bugs, surfaced before any permission reasoning, and are
// never part of a Violation.
type TraceError struct {
	Code    TraceErrorCode
	OpIndex int
	Message string
	Err     error // underlying cause, if any
}

// TraceErrorCode categorizes trace construction errors.
type TraceErrorCode string

const (
	// ErrCodeInvalidAllocation: an operation referenced an unknown
	// allocation name.
	ErrCodeInvalidAllocation TraceErrorCode = "INVALID_ALLOCATION"

	// ErrCodeUnboundIdentifier: a pointer operand was never bound.
	ErrCodeUnboundIdentifier TraceErrorCode = "UNBOUND_IDENTIFIER"

	// ErrCodeDuplicateBinding: an identifier was bound twice.
	ErrCodeDuplicateBinding TraceErrorCode = "DUPLICATE_BINDING"

	// ErrCodeInvalidOperation: an operation kind the interpreter does not
	// recognize.
	ErrCodeInvalidOperation TraceErrorCode = "INVALID_OPERATION"
)

func (e *TraceError) Error() string {
	return fmt.Sprintf("%s: op %d: %s", e.Code, e.OpIndex, e.Message)
}

func (e *TraceError) Unwrap() error {
	return e.Err
}

// IsTraceError reports whether err is a trace construction error.
// Uses errors.As to handle wrapped errors.
func IsTraceError(err error) bool {
	var te *TraceError
	return errors.As(err, &te)
}

package ir

import "fmt"

// Validation error codes (E100-E199).
const (
	ErrProgramEmpty      = "E100" // program has no operations
	ErrMissingField      = "E101" // required field absent for op kind
	ErrUnknownOp         = "E102" // unrecognized op kind
	ErrDuplicateBinding  = "E103" // identifier bound twice
	ErrUnboundIdentifier = "E104" // operand references an unbound identifier
	ErrNotAnAllocation   = "E105" // borrow source is not an allocation
	ErrInvalidBorrowKind = "E106" // kind is not unique/shared
)

// ValidationError reports a structural defect in a trace program.
// These are construction-time errors, distinct from the aliasing violations
// the interpreter reports: a program that fails validation never runs.
type ValidationError struct {
	Index   int    `json:"index"` // operation index, -1 for program-level errors
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("[%s] op %d: %s", e.Code, e.Index, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// symbol kinds tracked during validation.
type symKind uint8

const (
	symAlloc symKind = iota // declared allocation (name doubles as root pointer)
	symPtr                  // pointer produced by borrow, reborrow or cast_int
)

// Validate checks a program's structure: every operand identifier is bound
// before use, no identifier is bound twice, and each operation carries the
// fields its kind requires. Returns all errors found (does not fail-fast).
func Validate(p *Program) []*ValidationError {
	var errs []*ValidationError

	if len(p.Ops) == 0 {
		return []*ValidationError{{
			Index:   -1,
			Code:    ErrProgramEmpty,
			Message: "program must contain at least one operation",
		}}
	}

	syms := make(map[string]symKind)

	bind := func(i int, name string, kind symKind) {
		if name == "" {
			errs = append(errs, &ValidationError{
				Index:   i,
				Code:    ErrMissingField,
				Message: "result binding is required",
			})
			return
		}
		if _, exists := syms[name]; exists {
			errs = append(errs, &ValidationError{
				Index:   i,
				Code:    ErrDuplicateBinding,
				Message: fmt.Sprintf("identifier %q is already bound", name),
			})
			return
		}
		syms[name] = kind
	}

	requirePtr := func(i int, name string) {
		if name == "" {
			errs = append(errs, &ValidationError{
				Index:   i,
				Code:    ErrMissingField,
				Message: "ptr operand is required",
			})
			return
		}
		if _, exists := syms[name]; !exists {
			errs = append(errs, &ValidationError{
				Index:   i,
				Code:    ErrUnboundIdentifier,
				Message: fmt.Sprintf("identifier %q is not bound at this point", name),
			})
		}
	}

	for i, op := range p.Ops {
		switch op.Kind {
		case OpDeclare:
			bind(i, op.Name, symAlloc)

		case OpBorrow:
			if op.From == "" {
				errs = append(errs, &ValidationError{
					Index:   i,
					Code:    ErrMissingField,
					Message: "borrow requires a from allocation",
				})
			} else if kind, exists := syms[op.From]; !exists {
				errs = append(errs, &ValidationError{
					Index:   i,
					Code:    ErrUnboundIdentifier,
					Message: fmt.Sprintf("allocation %q is not declared at this point", op.From),
				})
			} else if kind != symAlloc {
				errs = append(errs, &ValidationError{
					Index:   i,
					Code:    ErrNotAnAllocation,
					Message: fmt.Sprintf("%q is a pointer, not an allocation (use reborrow)", op.From),
				})
			}
			if err := checkBorrowKind(i, op.BorrowKind); err != nil {
				errs = append(errs, err)
			}
			bind(i, op.As, symPtr)

		case OpReborrow:
			requirePtr(i, op.Ptr)
			if err := checkBorrowKind(i, op.BorrowKind); err != nil {
				errs = append(errs, err)
			}
			bind(i, op.As, symPtr)

		case OpCastInt:
			requirePtr(i, op.Ptr)
			bind(i, op.As, symPtr)

		case OpRead, OpWrite, OpExternCall:
			requirePtr(i, op.Ptr)

		default:
			errs = append(errs, &ValidationError{
				Index:   i,
				Code:    ErrUnknownOp,
				Message: fmt.Sprintf("unknown op kind %q", op.Kind),
			})
		}
	}

	return errs
}

func checkBorrowKind(i int, kind BorrowKind) *ValidationError {
	if _, err := ParseBorrowKind(string(kind)); err != nil {
		return &ValidationError{
			Index:   i,
			Code:    ErrInvalidBorrowKind,
			Message: err.Error(),
		}
	}
	return nil
}

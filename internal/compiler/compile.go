// Package compiler turns CUE trace definitions into ir.Program values.
// Compilation is structural: it resolves fields and types but does not apply
// the semantic rules in ir.Validate. Callers that need a well-formed trace
// run both.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"

	"github.com/roach88/borrowck/internal/ir"
)

// CompileProgram parses a CUE value into a trace program.
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
//
// The CUE value should be the program struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`program: { name: "t", ops: [...] }`)
//	prog, err := CompileProgram(v.LookupPath(cue.ParsePath("program")))
func CompileProgram(v cue.Value) (*ir.Program, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	prog := &ir.Program{}

	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return nil, &CompileError{
			Field:   "name",
			Message: "program name is required",
			Pos:     v.Pos(),
		}
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	prog.Name = name

	opsVal := v.LookupPath(cue.ParsePath("ops"))
	if !opsVal.Exists() {
		return nil, &CompileError{
			Field:   "ops",
			Message: "at least one operation is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := opsVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		op, err := compileOp(i, iter.Value())
		if err != nil {
			return nil, err
		}
		prog.Ops = append(prog.Ops, op)
	}
	if len(prog.Ops) == 0 {
		return nil, &CompileError{
			Field:   "ops",
			Message: "at least one operation is required",
			Pos:     v.Pos(),
		}
	}

	return prog, nil
}

// compileOp parses one operation struct. Field requirements depend on the
// op kind and mirror what ir.Validate enforces post-compile.
func compileOp(index int, v cue.Value) (ir.Operation, error) {
	var op ir.Operation

	kindStr, err := requiredString(v, index, "op")
	if err != nil {
		return op, err
	}
	op.Kind = ir.OpKind(kindStr)

	switch op.Kind {
	case ir.OpDeclare:
		if op.Name, err = requiredString(v, index, "name"); err != nil {
			return op, err
		}
		if op.Value, err = optionalInt(v, index, "value"); err != nil {
			return op, err
		}
		if op.Mutable, err = optionalBool(v, index, "mutable"); err != nil {
			return op, err
		}
		if op.InteriorMutable, err = optionalBool(v, index, "interior_mutable"); err != nil {
			return op, err
		}

	case ir.OpBorrow:
		if op.From, err = requiredString(v, index, "from"); err != nil {
			return op, err
		}
		if op.BorrowKind, err = borrowKind(v, index); err != nil {
			return op, err
		}
		if op.As, err = requiredString(v, index, "as"); err != nil {
			return op, err
		}

	case ir.OpReborrow:
		if op.Ptr, err = requiredString(v, index, "ptr"); err != nil {
			return op, err
		}
		if op.BorrowKind, err = borrowKind(v, index); err != nil {
			return op, err
		}
		if op.As, err = requiredString(v, index, "as"); err != nil {
			return op, err
		}

	case ir.OpCastInt:
		if op.Ptr, err = requiredString(v, index, "ptr"); err != nil {
			return op, err
		}
		if op.As, err = requiredString(v, index, "as"); err != nil {
			return op, err
		}

	case ir.OpRead, ir.OpExternCall:
		if op.Ptr, err = requiredString(v, index, "ptr"); err != nil {
			return op, err
		}

	case ir.OpWrite:
		if op.Ptr, err = requiredString(v, index, "ptr"); err != nil {
			return op, err
		}
		if op.Value, err = requiredInt(v, index, "value"); err != nil {
			return op, err
		}

	default:
		return op, &CompileError{
			Field:   opField(index, "op"),
			Message: fmt.Sprintf("unknown operation kind %q", kindStr),
			Pos:     v.Pos(),
		}
	}

	return op, nil
}

func borrowKind(v cue.Value, index int) (ir.BorrowKind, error) {
	raw, err := requiredString(v, index, "kind")
	if err != nil {
		return "", err
	}
	kind, err := ir.ParseBorrowKind(raw)
	if err != nil {
		return "", &CompileError{
			Field:   opField(index, "kind"),
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}
	return kind, nil
}

func requiredString(v cue.Value, index int, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   opField(index, field),
			Message: fmt.Sprintf("%s is required", field),
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func requiredInt(v cue.Value, index int, field string) (int64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, &CompileError{
			Field:   opField(index, field),
			Message: fmt.Sprintf("%s is required", field),
			Pos:     v.Pos(),
		}
	}
	return intValue(fv, index, field)
}

func optionalInt(v cue.Value, index int, field string) (int64, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return 0, nil
	}
	return intValue(fv, index, field)
}

// intValue rejects floats explicitly: values are integer scalars only.
func intValue(fv cue.Value, index int, field string) (int64, error) {
	if k := fv.IncompleteKind(); k == cue.FloatKind || k == cue.NumberKind {
		return 0, &CompileError{
			Field:   opField(index, field),
			Message: "float values are forbidden, use int",
			Pos:     fv.Pos(),
		}
	}
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return n, nil
}

func optionalBool(v cue.Value, index int, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

func opField(index int, field string) string {
	return fmt.Sprintf("ops[%d].%s", index, field)
}

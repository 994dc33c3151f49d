// Package interp executes trace programs against a memory store, consulting
// the permission engine on every access. Execution is synchronous and
// single-threaded: the phenomenon under study is a sequential aliasing
// discipline, not a data race. The first violation halts the run; no later
// instruction is evaluated.
package interp

import (
	"fmt"
	"log/slog"

	"github.com/roach88/borrowck/internal/ir"
	"github.com/roach88/borrowck/internal/memory"
	"github.com/roach88/borrowck/internal/perm"
)

// externWriteValue is the opaque value an external callee stores through its
// argument. The model fixes it at 1 so final-state assertions stay
// deterministic.
const externWriteValue int64 = 1

// Status is the terminal state of a run.
type Status uint8

const (
	// StatusSound: the program completed with no violation.
	StatusSound Status = iota

	// StatusViolation: execution halted at the first undefined behavior.
	StatusViolation
)

func (s Status) String() string {
	if s == StatusViolation {
		return "violation"
	}
	return "sound"
}

// Violation pins an undefined-behavior diagnosis to an instruction.
type Violation struct {
	OpIndex    int       `json:"op_index"`
	Allocation string    `json:"allocation"`
	Rule       perm.Rule `json:"rule"`
	Tag        ir.Tag    `json:"tag"`
	Message    string    `json:"message"`
}

func (v *Violation) Error() string {
	return fmt.Sprintf("undefined behavior at op %d on allocation %q: %s: %s",
		v.OpIndex, v.Allocation, v.Rule, v.Message)
}

// TraceEvent records one executed operation for golden comparison and the
// run log. Seq numbers are 1-based and strictly increasing.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	Op      string `json:"op"`
	Alloc   string `json:"alloc,omitempty"`
	Binding string `json:"binding,omitempty"`
	Tag     ir.Tag `json:"tag,omitempty"`
	Perm    string `json:"perm,omitempty"`
	Value   int64  `json:"value,omitempty"`
}

// Outcome is the fully resolved result of a run. There is no "maybe": a
// trace either runs to completion (Sound) or halts at its first fault.
type Outcome struct {
	Program   string
	Status    Status
	Violation *Violation // nil when Status == StatusSound
	Trace     []TraceEvent
	Finals    map[string]int64
	Steps     int
}

// Interpreter executes one program at a time. Each Run starts from a fresh
// store and tag allocator; an Interpreter holds no state across runs, so
// re-running the same program always yields the same Outcome. Concurrent
// evaluation of independent traces must use independent Interpreters.
type Interpreter struct {
	store *memory.Store
	tags  *TagAllocator
	env   map[string]ir.PointerVal
	trace []TraceEvent
	seq   int64
}

// New creates an Interpreter.
func New() *Interpreter {
	return &Interpreter{}
}

// Run executes the program to completion or to its first violation.
//
// The returned error is non-nil only for malformed traces (*TraceError):
// unknown allocations, unbound identifiers, duplicate bindings. Those are
// construction-time failures, distinct from the modeled-language violations
// an Outcome reports.
func (in *Interpreter) Run(prog *ir.Program) (*Outcome, error) {
	in.store = memory.NewStore()
	in.tags = NewTagAllocator()
	in.env = make(map[string]ir.PointerVal)
	in.trace = nil
	in.seq = 0

	slog.Debug("trace starting", "program", prog.Name, "ops", len(prog.Ops))

	for i, op := range prog.Ops {
		violation, err := in.step(i, op)
		if err != nil {
			return nil, err
		}
		if violation != nil {
			slog.Debug("trace halted",
				"program", prog.Name,
				"op_index", violation.OpIndex,
				"rule", violation.Rule,
			)
			return &Outcome{
				Program:   prog.Name,
				Status:    StatusViolation,
				Violation: violation,
				Trace:     in.trace,
				Finals:    in.store.Finals(),
				Steps:     i,
			}, nil
		}
	}

	slog.Debug("trace sound", "program", prog.Name, "steps", len(prog.Ops))
	return &Outcome{
		Program: prog.Name,
		Status:  StatusSound,
		Trace:   in.trace,
		Finals:  in.store.Finals(),
		Steps:   len(prog.Ops),
	}, nil
}

// step executes a single operation. A non-nil Violation halts the run; a
// non-nil error is a malformed trace.
func (in *Interpreter) step(i int, op ir.Operation) (*Violation, error) {
	switch op.Kind {
	case ir.OpDeclare:
		return nil, in.stepDeclare(i, op)
	case ir.OpBorrow:
		return nil, in.stepBorrow(i, op)
	case ir.OpReborrow:
		return in.stepReborrow(i, op)
	case ir.OpCastInt:
		return nil, in.stepCastInt(i, op)
	case ir.OpRead:
		return in.stepAccess(i, op, perm.AccessRead, 0)
	case ir.OpWrite:
		return in.stepAccess(i, op, perm.AccessWrite, op.Value)
	case ir.OpExternCall:
		// An opaque callee unconditionally writes through its argument.
		return in.stepAccess(i, op, perm.AccessWrite, externWriteValue)
	default:
		return nil, &TraceError{
			Code:    ErrCodeInvalidOperation,
			OpIndex: i,
			Message: fmt.Sprintf("unknown op kind %q", op.Kind),
		}
	}
}

func (in *Interpreter) stepDeclare(i int, op ir.Operation) error {
	tag := in.tags.Next()
	rootPerm := perm.Root(op.InteriorMutable)
	_, err := in.store.Declare(op.Name, op.Value, op.Mutable, op.InteriorMutable, memory.Frame{Tag: tag, Perm: rootPerm})
	if err != nil {
		return &TraceError{
			Code:    ErrCodeDuplicateBinding,
			OpIndex: i,
			Message: fmt.Sprintf("allocation %q already declared", op.Name),
			Err:     err,
		}
	}
	if err := in.bind(i, op.Name, ir.PointerVal{Alloc: op.Name, Tag: tag}); err != nil {
		return err
	}
	in.record(TraceEvent{
		Op:    string(op.Kind),
		Alloc: op.Name,
		Tag:   tag,
		Perm:  rootPerm.String(),
		Value: op.Value,
	})
	return nil
}

func (in *Interpreter) stepBorrow(i int, op ir.Operation) error {
	alloc, err := in.store.Get(op.From)
	if err != nil {
		return &TraceError{
			Code:    ErrCodeInvalidAllocation,
			OpIndex: i,
			Message: fmt.Sprintf("borrow of unknown allocation %q", op.From),
			Err:     err,
		}
	}

	tag := in.tags.Next()
	p := perm.Derive(op.BorrowKind, alloc.InteriorMutable)
	alloc.PushFrame(memory.Frame{Tag: tag, Perm: p})
	if err := in.bind(i, op.As, ir.PointerVal{Alloc: op.From, Tag: tag}); err != nil {
		return err
	}
	in.record(TraceEvent{
		Op:      string(op.Kind),
		Alloc:   op.From,
		Binding: op.As,
		Tag:     tag,
		Perm:    p.String(),
	})
	return nil
}

// stepReborrow derives a new pointer from an existing one: a raw-pointer
// cast or a nested reference. The parent must still be live - a reborrow
// through an erased or invalidated parent is itself undefined behavior.
func (in *Interpreter) stepReborrow(i int, op ir.Operation) (*Violation, error) {
	pv, err := in.resolve(i, op.Ptr)
	if err != nil {
		return nil, err
	}
	alloc, err := in.lookupAlloc(i, pv.Alloc)
	if err != nil {
		return nil, err
	}

	if fault := liveParent(alloc.Stack(), pv.Tag); fault != nil {
		return in.violation(i, pv.Alloc, fault), nil
	}

	tag := in.tags.Next()
	p := perm.Derive(op.BorrowKind, alloc.InteriorMutable)
	alloc.PushFrame(memory.Frame{Tag: tag, Perm: p})
	if err := in.bind(i, op.As, ir.PointerVal{Alloc: pv.Alloc, Tag: tag}); err != nil {
		return nil, err
	}
	in.record(TraceEvent{
		Op:      string(op.Kind),
		Alloc:   pv.Alloc,
		Binding: op.As,
		Tag:     tag,
		Perm:    p.String(),
	})
	return nil, nil
}

// stepCastInt models the full integer round-trip: the result targets the
// same allocation but carries no provenance. The borrow stack is untouched.
func (in *Interpreter) stepCastInt(i int, op ir.Operation) error {
	pv, err := in.resolve(i, op.Ptr)
	if err != nil {
		return err
	}
	if err := in.bind(i, op.As, ir.PointerVal{Alloc: pv.Alloc, Tag: ir.Untagged}); err != nil {
		return err
	}
	in.record(TraceEvent{
		Op:      string(op.Kind),
		Alloc:   pv.Alloc,
		Binding: op.As,
	})
	return nil
}

func (in *Interpreter) stepAccess(i int, op ir.Operation, access perm.AccessKind, value int64) (*Violation, error) {
	pv, err := in.resolve(i, op.Ptr)
	if err != nil {
		return nil, err
	}
	alloc, err := in.lookupAlloc(i, pv.Alloc)
	if err != nil {
		return nil, err
	}

	dec, fault := perm.Check(alloc.Stack(), pv.Tag, access, alloc.InteriorMutable)
	if fault != nil {
		return in.violation(i, pv.Alloc, fault), nil
	}

	event := TraceEvent{
		Op:    string(op.Kind),
		Alloc: pv.Alloc,
		Tag:   pv.Tag,
	}
	if access == perm.AccessWrite {
		// Popped observers are gone permanently: later accesses through
		// their tags report TAG_NOT_FOUND.
		alloc.RemoveFrames(dec.Pop)
		alloc.Value = value
		event.Value = value
	} else {
		event.Value = alloc.Value
	}
	in.record(event)
	return nil, nil
}

// resolve looks up a pointer operand in the environment.
func (in *Interpreter) resolve(i int, name string) (ir.PointerVal, error) {
	pv, ok := in.env[name]
	if !ok {
		return ir.PointerVal{}, &TraceError{
			Code:    ErrCodeUnboundIdentifier,
			OpIndex: i,
			Message: fmt.Sprintf("identifier %q is not bound", name),
		}
	}
	return pv, nil
}

func (in *Interpreter) lookupAlloc(i int, name string) (*memory.Allocation, error) {
	alloc, err := in.store.Get(name)
	if err != nil {
		return nil, &TraceError{
			Code:    ErrCodeInvalidAllocation,
			OpIndex: i,
			Message: fmt.Sprintf("unknown allocation %q", name),
			Err:     err,
		}
	}
	return alloc, nil
}

func (in *Interpreter) bind(i int, name string, pv ir.PointerVal) error {
	if _, exists := in.env[name]; exists {
		return &TraceError{
			Code:    ErrCodeDuplicateBinding,
			OpIndex: i,
			Message: fmt.Sprintf("identifier %q is already bound", name),
		}
	}
	in.env[name] = pv
	return nil
}

func (in *Interpreter) record(ev TraceEvent) {
	in.seq++
	ev.Seq = in.seq
	in.trace = append(in.trace, ev)
}

func (in *Interpreter) violation(i int, alloc string, fault *perm.Fault) *Violation {
	return &Violation{
		OpIndex:    i,
		Allocation: alloc,
		Rule:       fault.Rule,
		Tag:        fault.Tag,
		Message:    fault.Message,
	}
}

// liveParent checks that a reborrow parent still authenticates against the
// stack. It deliberately skips the Unique-above conflict check: creating a
// borrow is not an access in this model, only reads and writes are.
func liveParent(stack []memory.Frame, tag ir.Tag) *perm.Fault {
	if tag.IsUntagged() {
		return &perm.Fault{
			Rule:    perm.RuleUntaggedAccess,
			Tag:     tag,
			Message: fmt.Sprintf("cannot reborrow through tag %s: provenance was erased", tag),
		}
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].Tag == tag {
			return nil
		}
	}
	return &perm.Fault{
		Rule:    perm.RuleTagNotFound,
		Tag:     tag,
		Message: fmt.Sprintf("cannot reborrow through tag %s: it is no longer in the borrow stack", tag),
	}
}

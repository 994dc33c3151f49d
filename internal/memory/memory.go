// Package memory owns the interpreter's allocations: named scalar cells,
// each carrying a borrow stack. The store is a dumb container - it enforces
// structural invariants (known names, non-empty stacks) but performs no
// aliasing validation. Deciding whether an access is legal is the permission
// engine's job.
package memory

import (
	"fmt"
	"slices"

	"github.com/roach88/borrowck/internal/ir"
)

// Frame is one entry of a borrow stack: a tag plus the permission it grants.
// Frames are created by Declare (root frame) and by borrows; they are removed
// only by invalidation during access validation, never by the program.
type Frame struct {
	Tag  ir.Tag
	Perm ir.Permission
}

// Allocation is a named memory location under observation: its current scalar
// value and the borrow stack governing access to it. The stack is ordered
// bottom to top; the root frame at index 0 is never removed.
type Allocation struct {
	Name            string
	Value           int64
	Mutable         bool
	InteriorMutable bool

	stack []Frame
}

// Stack returns the borrow stack, bottom to top. The returned slice is the
// live stack; callers must not retain it across mutations.
func (a *Allocation) Stack() []Frame {
	return a.stack
}

// RootTag returns the tag issued to the allocation at Declare time.
func (a *Allocation) RootTag() ir.Tag {
	return a.stack[0].Tag
}

// PushFrame pushes a new frame on top of the borrow stack.
func (a *Allocation) PushFrame(f Frame) {
	a.stack = append(a.stack, f)
}

// RemoveFrames removes the frames at the given stack indices. Indices must
// be valid and must not include 0 (the root frame). Used by the interpreter
// to discharge invalidation decisions from the permission engine.
func (a *Allocation) RemoveFrames(indices []int) {
	if len(indices) == 0 {
		return
	}
	drop := slices.Clone(indices)
	slices.Sort(drop)
	kept := a.stack[:0]
	for i, f := range a.stack {
		if _, found := slices.BinarySearch(drop, i); !found {
			kept = append(kept, f)
		}
	}
	a.stack = kept
}

// Store is an arena of allocations keyed by name. Each interpreter run owns
// exactly one Store; stores are never shared across runs.
type Store struct {
	allocs map[string]*Allocation
	order  []string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{allocs: make(map[string]*Allocation)}
}

// Declare creates an allocation with its root frame and returns it.
// The root frame's permission is the caller's decision (the permission
// engine derives it from interior mutability).
func (s *Store) Declare(name string, value int64, mutable, interiorMutable bool, root Frame) (*Allocation, error) {
	if _, exists := s.allocs[name]; exists {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateAllocation, name)
	}
	a := &Allocation{
		Name:            name,
		Value:           value,
		Mutable:         mutable,
		InteriorMutable: interiorMutable,
		stack:           []Frame{root},
	}
	s.allocs[name] = a
	s.order = append(s.order, name)
	return a, nil
}

// Get returns the allocation with the given name.
func (s *Store) Get(name string) (*Allocation, error) {
	a, ok := s.allocs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAllocation, name)
	}
	return a, nil
}

// ValueRead returns the current value of the named allocation.
func (s *Store) ValueRead(name string) (int64, error) {
	a, err := s.Get(name)
	if err != nil {
		return 0, err
	}
	return a.Value, nil
}

// ValueWrite sets the current value of the named allocation.
func (s *Store) ValueWrite(name string, value int64) error {
	a, err := s.Get(name)
	if err != nil {
		return err
	}
	a.Value = value
	return nil
}

// Finals returns the final value of every allocation, keyed by name.
// Used by the diagnostic reporter and the harness's final-value assertions.
func (s *Store) Finals() map[string]int64 {
	out := make(map[string]int64, len(s.order))
	for _, name := range s.order {
		out[name] = s.allocs[name].Value
	}
	return out
}

// Names returns allocation names in declaration order.
func (s *Store) Names() []string {
	return slices.Clone(s.order)
}

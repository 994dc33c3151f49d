// Package perm implements the permission lattice of the borrow-stack
// discipline: how borrows derive permissions, and whether an access through
// a tagged pointer is allowed given the target's borrow stack.
//
// Everything here is a pure function over stack snapshots. The permission
// engine never mutates an allocation - it returns a Decision describing
// which frames a successful write invalidates, and the interpreter applies
// it to the store.
package perm

import (
	"fmt"

	"github.com/roach88/borrowck/internal/ir"
	"github.com/roach88/borrowck/internal/memory"
)

// AccessKind distinguishes read and write accesses. An external call is
// validated as a write: the opaque callee is assumed to mutate through its
// argument.
type AccessKind uint8

const (
	AccessRead AccessKind = iota
	AccessWrite
)

func (a AccessKind) String() string {
	if a == AccessWrite {
		return "write"
	}
	return "read"
}

// Rule identifies which discipline rule an access violated.
type Rule string

const (
	// RuleUntaggedAccess: access through a pointer whose provenance was
	// erased by an integer round-trip. No stack item can grant access to
	// the untagged pointer.
	RuleUntaggedAccess Rule = "UNTAGGED_ACCESS"

	// RuleTagNotFound: the tag was once valid but has been popped from the
	// stack by an intervening incompatible access.
	RuleTagNotFound Rule = "TAG_NOT_FOUND"

	// RuleDisabled: the access conflicts with a live Unique frame above the
	// matched frame, or the matched frame itself is disabled.
	RuleDisabled Rule = "DISABLED"

	// RuleReadOnlyViolation: a write through a SharedReadOnly frame on a
	// non-interior-mutable allocation.
	RuleReadOnlyViolation Rule = "READ_ONLY_VIOLATION"
)

// Fault describes a rejected access. It is not an error in the Go sense -
// faults are the checker's product, not failures of the checker - but it
// implements error so it can flow through the interpreter's short-circuit.
type Fault struct {
	Rule    Rule
	Tag     ir.Tag
	Access  AccessKind
	Message string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Rule, f.Message)
}

// Decision is a permitted access: the index of the matched frame and the
// indices of frames a write invalidates. Indices are into the stack slice,
// bottom to top.
type Decision struct {
	Index int
	Pop   []int
}

// Derive computes the permission a new borrow receives.
//
// A unique borrow always yields Unique. A shared borrow yields
// SharedReadOnly - unless the target allocation is interior-mutable, in
// which case it yields SharedReadWrite. Interior mutability is the one
// legal deviation from the read-only lattice: a shared reference to an
// interior-mutable location carries write permission.
func Derive(kind ir.BorrowKind, interiorMutable bool) ir.Permission {
	switch kind {
	case ir.BorrowUnique:
		return ir.PermUnique
	case ir.BorrowShared:
		if interiorMutable {
			return ir.PermSharedReadWrite
		}
		return ir.PermSharedReadOnly
	default:
		// Validation rejects unknown kinds before execution.
		panic(fmt.Sprintf("perm: unknown borrow kind %q", kind))
	}
}

// Root computes the permission of an allocation's root frame at Declare
// time: Unique, or SharedReadWrite for interior-mutable allocations.
func Root(interiorMutable bool) ir.Permission {
	if interiorMutable {
		return ir.PermSharedReadWrite
	}
	return ir.PermUnique
}

// Check validates an access through the given tag against a borrow stack.
//
// The stack is scanned top to bottom for the frame carrying the tag. Frames
// strictly above the match are then inspected: a live Unique frame above the
// match means the pointer has been superseded by an exclusive borrow and the
// access faults with RuleDisabled, for reads and writes alike. A write
// additionally invalidates every SharedReadOnly frame above the match - those
// observers saw a value that is about to change - which the returned
// Decision records for the interpreter to pop.
func Check(stack []memory.Frame, tag ir.Tag, access AccessKind, interiorMutable bool) (Decision, *Fault) {
	if tag.IsUntagged() {
		return Decision{}, &Fault{
			Rule:    RuleUntaggedAccess,
			Tag:     tag,
			Access:  access,
			Message: fmt.Sprintf("no item granting %s access to tag %s found in borrow stack", access, tag),
		}
	}

	matched := -1
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].Tag == tag {
			matched = i
			break
		}
	}
	if matched == -1 {
		return Decision{}, &Fault{
			Rule:    RuleTagNotFound,
			Tag:     tag,
			Access:  access,
			Message: fmt.Sprintf("tag %s was invalidated by an intervening access and is no longer in the borrow stack", tag),
		}
	}

	var pop []int
	for i := matched + 1; i < len(stack); i++ {
		switch stack[i].Perm {
		case ir.PermUnique:
			return Decision{}, &Fault{
				Rule:    RuleDisabled,
				Tag:     tag,
				Access:  access,
				Message: fmt.Sprintf("%s through tag %s conflicts with live unique borrow %s above it", access, tag, stack[i].Tag),
			}
		case ir.PermSharedReadOnly:
			if access == AccessWrite {
				pop = append(pop, i)
			}
		case ir.PermSharedReadWrite, ir.PermDisabled:
			// Shared read-write observers survive; disabled frames are inert.
		}
	}

	if stack[matched].Perm == ir.PermDisabled {
		return Decision{}, &Fault{
			Rule:    RuleDisabled,
			Tag:     tag,
			Access:  access,
			Message: fmt.Sprintf("tag %s is disabled and grants no access", tag),
		}
	}

	if access == AccessWrite && stack[matched].Perm == ir.PermSharedReadOnly && !interiorMutable {
		return Decision{}, &Fault{
			Rule:    RuleReadOnlyViolation,
			Tag:     tag,
			Access:  access,
			Message: fmt.Sprintf("write through read-only tag %s on a non-interior-mutable allocation", tag),
		}
	}

	return Decision{Index: matched, Pop: pop}, nil
}

package perm

import (
	"testing"

	"github.com/roach88/borrowck/internal/ir"
	"github.com/roach88/borrowck/internal/memory"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name            string
		kind            ir.BorrowKind
		interiorMutable bool
		want            ir.Permission
	}{
		{"unique borrow", ir.BorrowUnique, false, ir.PermUnique},
		{"unique borrow of interior-mutable", ir.BorrowUnique, true, ir.PermUnique},
		{"shared borrow", ir.BorrowShared, false, ir.PermSharedReadOnly},
		{"shared borrow of interior-mutable", ir.BorrowShared, true, ir.PermSharedReadWrite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Derive(tt.kind, tt.interiorMutable); got != tt.want {
				t.Errorf("Derive(%v, %v) = %v, want %v", tt.kind, tt.interiorMutable, got, tt.want)
			}
		})
	}
}

func TestRoot(t *testing.T) {
	if got := Root(false); got != ir.PermUnique {
		t.Errorf("Root(false) = %v, want Unique", got)
	}
	if got := Root(true); got != ir.PermSharedReadWrite {
		t.Errorf("Root(true) = %v, want SharedReadWrite", got)
	}
}

func stackOf(frames ...memory.Frame) []memory.Frame { return frames }

func TestCheck_UntaggedAlwaysFaults(t *testing.T) {
	stack := stackOf(memory.Frame{Tag: 1, Perm: ir.PermUnique})

	for _, access := range []AccessKind{AccessRead, AccessWrite} {
		_, fault := Check(stack, ir.Untagged, access, false)
		if fault == nil || fault.Rule != RuleUntaggedAccess {
			t.Errorf("%v through untagged pointer: got %v, want UNTAGGED_ACCESS", access, fault)
		}
	}
}

func TestCheck_TagNotFound(t *testing.T) {
	stack := stackOf(memory.Frame{Tag: 1, Perm: ir.PermUnique})

	_, fault := Check(stack, ir.Tag(99), AccessRead, false)
	if fault == nil || fault.Rule != RuleTagNotFound {
		t.Errorf("got %v, want TAG_NOT_FOUND", fault)
	}
}

func TestCheck_TopFrameAccess(t *testing.T) {
	stack := stackOf(
		memory.Frame{Tag: 1, Perm: ir.PermUnique},
		memory.Frame{Tag: 2, Perm: ir.PermUnique},
	)

	dec, fault := Check(stack, ir.Tag(2), AccessWrite, false)
	if fault != nil {
		t.Fatalf("unexpected fault: %v", fault)
	}
	if dec.Index != 1 || len(dec.Pop) != 0 {
		t.Errorf("unexpected decision: %+v", dec)
	}
}

func TestCheck_UniqueAboveFaultsReadAndWrite(t *testing.T) {
	// Sibling unique borrows over one allocation: access through the lower
	// one conflicts with the live unique above it.
	stack := stackOf(
		memory.Frame{Tag: 1, Perm: ir.PermSharedReadWrite},
		memory.Frame{Tag: 2, Perm: ir.PermUnique},
		memory.Frame{Tag: 3, Perm: ir.PermUnique},
	)

	for _, access := range []AccessKind{AccessRead, AccessWrite} {
		_, fault := Check(stack, ir.Tag(2), access, true)
		if fault == nil || fault.Rule != RuleDisabled {
			t.Errorf("%v through superseded unique: got %v, want DISABLED", access, fault)
		}
	}
}

func TestCheck_WritePopsReadOnlyObservers(t *testing.T) {
	stack := stackOf(
		memory.Frame{Tag: 1, Perm: ir.PermUnique},
		memory.Frame{Tag: 2, Perm: ir.PermSharedReadOnly},
		memory.Frame{Tag: 3, Perm: ir.PermSharedReadOnly},
	)

	dec, fault := Check(stack, ir.Tag(1), AccessWrite, false)
	if fault != nil {
		t.Fatalf("unexpected fault: %v", fault)
	}
	if dec.Index != 0 {
		t.Errorf("Index = %d, want 0", dec.Index)
	}
	if len(dec.Pop) != 2 || dec.Pop[0] != 1 || dec.Pop[1] != 2 {
		t.Errorf("Pop = %v, want [1 2]", dec.Pop)
	}
}

func TestCheck_ReadLeavesObserversIntact(t *testing.T) {
	stack := stackOf(
		memory.Frame{Tag: 1, Perm: ir.PermUnique},
		memory.Frame{Tag: 2, Perm: ir.PermSharedReadOnly},
	)

	dec, fault := Check(stack, ir.Tag(1), AccessRead, false)
	if fault != nil {
		t.Fatalf("unexpected fault: %v", fault)
	}
	if len(dec.Pop) != 0 {
		t.Errorf("read must not pop observers, got Pop = %v", dec.Pop)
	}
}

func TestCheck_WriteThroughReadOnly(t *testing.T) {
	stack := stackOf(
		memory.Frame{Tag: 1, Perm: ir.PermUnique},
		memory.Frame{Tag: 2, Perm: ir.PermSharedReadOnly},
	)

	_, fault := Check(stack, ir.Tag(2), AccessWrite, false)
	if fault == nil || fault.Rule != RuleReadOnlyViolation {
		t.Errorf("got %v, want READ_ONLY_VIOLATION", fault)
	}

	// Reads through the same frame are fine.
	if _, fault := Check(stack, ir.Tag(2), AccessRead, false); fault != nil {
		t.Errorf("read through read-only frame faulted: %v", fault)
	}
}

func TestCheck_InteriorMutableAllowsSharedWrite(t *testing.T) {
	// A shared borrow of an interior-mutable allocation carries
	// SharedReadWrite; writes through it never report READ_ONLY_VIOLATION.
	stack := stackOf(
		memory.Frame{Tag: 1, Perm: ir.PermSharedReadWrite},
		memory.Frame{Tag: 2, Perm: ir.PermSharedReadWrite},
	)

	dec, fault := Check(stack, ir.Tag(2), AccessWrite, true)
	if fault != nil {
		t.Fatalf("unexpected fault: %v", fault)
	}
	if dec.Index != 1 {
		t.Errorf("Index = %d, want 1", dec.Index)
	}

	// Writing through the lower frame leaves the read-write observer alone.
	dec, fault = Check(stack, ir.Tag(1), AccessWrite, true)
	if fault != nil {
		t.Fatalf("unexpected fault: %v", fault)
	}
	if len(dec.Pop) != 0 {
		t.Errorf("SharedReadWrite observers must survive writes, got Pop = %v", dec.Pop)
	}
}

func TestCheck_DisabledFrame(t *testing.T) {
	stack := stackOf(
		memory.Frame{Tag: 1, Perm: ir.PermUnique},
		memory.Frame{Tag: 2, Perm: ir.PermDisabled},
	)

	_, fault := Check(stack, ir.Tag(2), AccessRead, false)
	if fault == nil || fault.Rule != RuleDisabled {
		t.Errorf("got %v, want DISABLED", fault)
	}

	// A disabled frame above the match is inert: it neither grants nor
	// blocks anything.
	if _, fault := Check(stack, ir.Tag(1), AccessWrite, false); fault != nil {
		t.Errorf("disabled frame above match blocked access: %v", fault)
	}
}

func TestFault_Error(t *testing.T) {
	f := &Fault{Rule: RuleTagNotFound, Tag: 5, Access: AccessRead, Message: "tag <5> was invalidated"}
	want := "TAG_NOT_FOUND: tag <5> was invalidated"
	if f.Error() != want {
		t.Errorf("Error() = %q, want %q", f.Error(), want)
	}
}

package ir

import "fmt"

// Tag identifies a borrow frame. Tags are issued by the interpreter's
// allocator in strictly increasing order and are never reused within a run.
//
// The zero value is Untagged: a pointer whose provenance was erased by an
// integer round-trip. Untagged pointers carry no frame and can never
// authenticate against a borrow stack.
type Tag uint64

// Untagged marks a pointer with erased provenance.
const Untagged Tag = 0

// IsUntagged reports whether the tag denotes erased provenance.
func (t Tag) IsUntagged() bool { return t == Untagged }

// String returns "<untagged>" for the zero tag, "<N>" otherwise.
// The angle brackets match the diagnostic format used in violation messages.
func (t Tag) String() string {
	if t == Untagged {
		return "<untagged>"
	}
	return fmt.Sprintf("<%d>", uint64(t))
}

// Permission is the access permission carried by a borrow frame.
//
// The set is closed. Rule dispatch over permissions is always an exhaustive
// switch, never an open hierarchy - a new permission must fail loudly
// everywhere it is not handled.
type Permission uint8

const (
	// PermUnique grants exclusive read/write access. Two live Unique frames
	// over the same allocation is itself a violation.
	PermUnique Permission = iota

	// PermSharedReadWrite grants shared read/write access. Issued for shared
	// borrows of interior-mutable allocations and for root frames of
	// interior-mutable allocations.
	PermSharedReadWrite

	// PermSharedReadOnly grants shared read access. Writes through it are
	// violations unless the allocation is interior-mutable.
	PermSharedReadOnly

	// PermDisabled grants nothing. Any access through a disabled frame is a
	// violation.
	PermDisabled
)

// String returns the canonical permission name used in diagnostics and
// golden traces.
func (p Permission) String() string {
	switch p {
	case PermUnique:
		return "Unique"
	case PermSharedReadWrite:
		return "SharedReadWrite"
	case PermSharedReadOnly:
		return "SharedReadOnly"
	case PermDisabled:
		return "Disabled"
	default:
		return fmt.Sprintf("Permission(%d)", uint8(p))
	}
}

// BorrowKind distinguishes the two ways a borrow can be created.
type BorrowKind string

const (
	// BorrowUnique models a mutable reference, or a cast of one to a
	// mutable raw pointer.
	BorrowUnique BorrowKind = "unique"

	// BorrowShared models an immutable reference, or a cast of a reference
	// to a const-flavored raw pointer.
	BorrowShared BorrowKind = "shared"
)

// ParseBorrowKind converts the textual encoding used in trace programs.
func ParseBorrowKind(s string) (BorrowKind, error) {
	switch BorrowKind(s) {
	case BorrowUnique, BorrowShared:
		return BorrowKind(s), nil
	default:
		return "", fmt.Errorf("invalid borrow kind %q (must be %q or %q)", s, BorrowUnique, BorrowShared)
	}
}

// PointerVal is a pointer value flowing through a trace: the allocation it
// targets plus the tag it authenticates with. Tag == Untagged means the
// pointer went through an integer round-trip.
type PointerVal struct {
	Alloc string
	Tag   Tag
}

// OpKind enumerates the abstract trace operations.
type OpKind string

const (
	OpDeclare    OpKind = "declare"
	OpBorrow     OpKind = "borrow"
	OpReborrow   OpKind = "reborrow"
	OpCastInt    OpKind = "cast_int"
	OpRead       OpKind = "read"
	OpWrite      OpKind = "write"
	OpExternCall OpKind = "extern_call"
)

// Operation is one step of a trace program. The populated fields depend on
// Kind; Validate enforces the per-kind requirements.
type Operation struct {
	Kind OpKind `json:"op" yaml:"op"`

	// Declare fields.
	Name            string `json:"name,omitempty" yaml:"name,omitempty"`
	Value           int64  `json:"value,omitempty" yaml:"value,omitempty"`
	Mutable         bool   `json:"mutable,omitempty" yaml:"mutable,omitempty"`
	InteriorMutable bool   `json:"interior_mutable,omitempty" yaml:"interior_mutable,omitempty"`

	// Borrow source allocation.
	From string `json:"from,omitempty" yaml:"from,omitempty"`

	// Pointer operand for reborrow/cast_int/read/write/extern_call.
	// Write reuses Value for the stored scalar.
	Ptr string `json:"ptr,omitempty" yaml:"ptr,omitempty"`

	// Borrow kind for borrow/reborrow.
	BorrowKind BorrowKind `json:"kind,omitempty" yaml:"kind,omitempty"`

	// Result binding for borrow/reborrow/cast_int.
	As string `json:"as,omitempty" yaml:"as,omitempty"`
}

// Program is an ordered trace over a set of named allocations.
type Program struct {
	Name string      `json:"name" yaml:"name"`
	Ops  []Operation `json:"ops" yaml:"ops"`
}

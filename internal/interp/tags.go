package interp

import (
	"sync/atomic"

	"github.com/roach88/borrowck/internal/ir"
)

// TagAllocator issues borrow tags in strictly increasing order.
//
// Tags are never reused for the lifetime of the allocator, which guarantees
// that no two frames created during a run ever share a tag. The first issued
// tag is 1; the zero value is reserved for ir.Untagged.
//
// Thread-safety: safe for concurrent use (atomic operations), though the
// interpreter's single-threaded design means only one goroutine calls Next.
type TagAllocator struct {
	seq atomic.Uint64
}

// NewTagAllocator creates an allocator whose first Next returns 1.
func NewTagAllocator() *TagAllocator {
	return &TagAllocator{}
}

// Next returns the next tag and bumps the counter. Never fails.
func (a *TagAllocator) Next() ir.Tag {
	return ir.Tag(a.seq.Add(1))
}

// Current returns the most recently issued tag without bumping.
func (a *TagAllocator) Current() ir.Tag {
	return ir.Tag(a.seq.Load())
}

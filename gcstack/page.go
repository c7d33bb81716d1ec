package gcstack

import (
	"sync/atomic"

	"github.com/wippyai/gc-runtime/native"
)

// MinPageSize is the smallest slot count a page is allocated with.
const MinPageSize = 64

var pageIDs atomic.Uint64

// StackPage is a contiguously allocated run of slots that frame windows
// are carved from. A page's slots never move once allocated: outstanding
// handles alias them, so growth always means a fresh page, never a
// reallocation of a live one.
//
// A page is owned by the innermost frame that allocated it and is kept
// reachable as long as any frame built on top of it is live.
type StackPage struct {
	slots []native.Ptr
	id    uint64
}

// NewPage allocates a zeroed page of at least minSlots slots.
// Allocation failure is fatal: a page the collector may already expect
// cannot be allowed to vanish.
func NewPage(minSlots int) *StackPage {
	size := minSlots
	if size < MinPageSize {
		size = MinPageSize
	}
	return &StackPage{
		slots: make([]native.Ptr, size),
		id:    pageIDs.Add(1),
	}
}

// Size returns the page's slot count.
func (p *StackPage) Size() int {
	return len(p.slots)
}

// ID returns the page's allocation identity. Useful for observing that
// repeated nesting reuses a page instead of allocating fresh ones.
func (p *StackPage) ID() uint64 {
	return p.id
}

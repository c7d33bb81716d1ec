package gcstack

import (
	"fmt"

	"github.com/wippyai/gc-runtime/errors"
	"github.com/wippyai/gc-runtime/native"
)

// Handle is a reference to a guest value. A rooted handle aliases a slot
// in a live frame and is valid until that frame's owner closes; an
// unrooted handle (from the Unrooted target) carries the raw pointer and
// the caller's promise that the value is reachable some other way.
type Handle struct {
	frame *Frame
	index int
	raw   native.Ptr
}

// Rooted reports whether the handle is backed by a frame slot.
func (h Handle) Rooted() bool {
	return h.frame != nil
}

// Live reports whether the handle may still be dereferenced. Unrooted
// handles are always considered live; their reachability is the caller's
// assertion.
func (h Handle) Live() bool {
	return h.frame == nil || !h.frame.closed
}

// Ptr returns the guest pointer. Dereferencing a rooted handle after its
// frame popped is a protocol violation and panics.
func (h Handle) Ptr() native.Ptr {
	if h.frame == nil {
		return h.raw
	}
	if h.frame.closed {
		panic(errors.UseAfterPop(errors.PhaseCall, h.frame.record.Depth()))
	}
	return h.frame.window[native.HeaderSlots+h.index]
}

// IsNull reports whether the handle refers to the null guest value.
func (h Handle) IsNull() bool {
	return h.Ptr().IsNull()
}

// String formats the handle for diagnostics without dereferencing it.
func (h Handle) String() string {
	if h.frame == nil {
		return fmt.Sprintf("unrooted(%#x)", uintptr(h.raw))
	}
	if h.frame.closed {
		return fmt.Sprintf("dead(depth %d, slot %d)", h.frame.record.Depth(), h.index)
	}
	return fmt.Sprintf("rooted(%#x, depth %d, slot %d)",
		uintptr(h.frame.window[native.HeaderSlots+h.index]), h.frame.record.Depth(), h.index)
}

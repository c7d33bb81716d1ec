package gcstack

import (
	"github.com/wippyai/gc-runtime/errors"
	"github.com/wippyai/gc-runtime/native"
)

// MinFrameCapacity is the floor for every frame's root capacity, chosen so
// common call sites never need to special-case undersized frames.
const MinFrameCapacity = 16

// Frame is one nesting level of the shadow stack: a window of slots on a
// StackPage plus the root count stored in the window's header slot.
//
// A Frame is created by nesting from a parent frame or from session/task
// initialization, and destroyed exactly once by its paired FrameOwner.
// It is exclusively owned: while a nested frame is live, the parent may
// only be written through outputs reserved before nesting.
type Frame struct {
	chain  *native.Chain
	record *native.FrameRecord
	window []native.Ptr
	page   *StackPage // overflow page cached across repeated Nest calls
	parent *Frame
	child  *Frame
	closed bool
}

// New registers a base frame spanning all of page on chain. The returned
// FrameOwner must be closed to unregister the frame; close it after every
// frame nested from this one.
func New(chain *native.Chain, page *StackPage) (*Frame, *FrameOwner) {
	return push(chain, nil, page.slots)
}

func push(chain *native.Chain, parent *Frame, window []native.Ptr) (*Frame, *FrameOwner) {
	f := &Frame{
		chain:  chain,
		parent: parent,
		window: window,
	}
	f.record = chain.Push(window)
	if parent != nil {
		parent.child = f
	}
	return f, &FrameOwner{frame: f}
}

// NRoots returns the number of values currently rooted in this frame.
func (f *Frame) NRoots() int {
	n, _ := native.DecodeHeader(f.window[0])
	return n
}

// Capacity returns the maximum number of values that can be rooted in
// this frame.
func (f *Frame) Capacity() int {
	return len(f.window) - native.HeaderSlots
}

// Depth returns the frame's position on its chain, starting at 1.
func (f *Frame) Depth() int {
	return f.record.Depth()
}

func (f *Frame) setNRoots(n int) {
	f.window[0] = native.EncodeHeader(n, 0)
}

// checkUsable panics on protocol violations: a closed frame, or a frame
// with a live nested frame, must never gain new roots or nest again.
func (f *Frame) checkUsable(phase errors.Phase) {
	if f.closed {
		panic(errors.UseAfterPop(phase, f.record.Depth()))
	}
	if f.child != nil {
		panic(errors.New(phase, errors.KindOutOfOrder).
			Depth(f.record.Depth()).
			Detail("frame used while a nested frame is live").
			Build())
	}
}

// Root writes p into the next free slot and returns a handle aliasing it.
// The handle stays valid until this frame's owner is closed. Returns a
// frame_full error if the frame is at capacity; the first Capacity slots
// are left unchanged.
func (f *Frame) Root(p native.Ptr) (Handle, error) {
	f.checkUsable(errors.PhaseRoot)

	n := f.NRoots()
	if n == f.Capacity() {
		return Handle{}, errors.FrameFull(errors.PhaseRoot, n)
	}

	f.window[native.HeaderSlots+n] = p
	f.setNRoots(n + 1)
	return Handle{frame: f, index: n}, nil
}

// reserveSlot claims the next free slot without filling it. The slot is
// pre-zeroed and counted immediately so a collection pass between reserve
// and fill sees a null root, never garbage.
func (f *Frame) reserveSlot(phase errors.Phase) (int, error) {
	f.checkUsable(phase)

	n := f.NRoots()
	if n == f.Capacity() {
		return 0, errors.FrameFull(phase, n)
	}

	f.window[native.HeaderSlots+n] = native.Null
	f.setNRoots(n + 1)
	return n, nil
}

// Output reserves a slot in this frame and returns a target that roots
// into it. Hand the output to a call inside a nested scope to keep the
// result alive at this frame's lifetime instead of the nested frame's.
func (f *Frame) Output() (*Output, error) {
	idx, err := f.reserveSlot(errors.PhaseRoot)
	if err != nil {
		return nil, err
	}
	return &Output{frame: f, index: idx}, nil
}

// ReusableSlot reserves a slot intended for repeated overwrite, such as a
// loop body that roots one value per iteration.
func (f *Frame) ReusableSlot() (*ReusableSlot, error) {
	idx, err := f.reserveSlot(errors.PhaseRoot)
	if err != nil {
		return nil, err
	}
	return &ReusableSlot{frame: f, index: idx}, nil
}

// Nest creates a nested frame that can root at least capacity values.
//
// If the tail of the current window has room, the nested frame is carved
// from it without allocating. Otherwise a fresh page is allocated and
// cached on this frame, so repeated nesting at the same depth reuses the
// page instead of allocating every iteration. Slot addresses of live
// frames never move.
func (f *Frame) Nest(capacity int) (*Frame, *FrameOwner) {
	f.checkUsable(errors.PhaseNest)

	used := f.NRoots() + native.HeaderSlots
	need := capacity
	if need < MinFrameCapacity {
		need = MinFrameCapacity
	}
	need += native.HeaderSlots

	var window []native.Ptr
	switch {
	case f.page != nil:
		if need > f.page.Size() {
			f.page = NewPage(need)
		}
		window = f.page.slots
	case used+need <= len(f.window):
		window = f.window[used:]
	default:
		f.page = NewPage(need)
		window = f.page.slots
	}

	return push(f.chain, f, window)
}

// OverflowPage returns the page cached for nested frames, or nil if
// nesting has always fit in this frame's own window. Diagnostic only.
func (f *Frame) OverflowPage() *StackPage {
	return f.page
}

// Unrooted returns the non-rooting target view, for results the caller
// guarantees are reachable some other way.
func (f *Frame) Unrooted() Unrooted {
	return Unrooted{}
}

// FrameOwner unregisters its frame from the collector's view. Closing it
// is the only legal way a frame is destroyed, and closes must happen in
// reverse nesting order; closing while a nested frame is live panics.
// Close is idempotent.
type FrameOwner struct {
	frame  *Frame
	closed bool
}

// Close pops the frame off its chain and invalidates every handle rooted
// in it.
func (o *FrameOwner) Close() {
	if o.closed {
		return
	}

	f := o.frame
	f.chain.Pop(f.record)
	o.closed = true
	f.closed = true
	if f.parent != nil {
		f.parent.child = nil
	}
}

// Closed reports whether the owner has already been closed.
func (o *FrameOwner) Closed() bool {
	return o.closed
}

package native

import "github.com/wippyai/gc-runtime/errors"

// HeaderSlots is the number of reserved slots at the start of every frame
// window. Slot 0 holds the frame header, slot 1 the frame link.
const HeaderSlots = 2

// headerShift matches the guest collector's frame header layout: slot 0
// encodes rootCount<<headerShift | flags.
const headerShift = 2

const flagMask = (1 << headerShift) - 1

// EncodeHeader packs a root count and frame flags into a header slot value.
func EncodeHeader(nRoots int, flags uint8) Ptr {
	return Ptr(uintptr(nRoots)<<headerShift | uintptr(flags&flagMask))
}

// DecodeHeader unpacks a header slot value.
func DecodeHeader(h Ptr) (nRoots int, flags uint8) {
	return int(uintptr(h) >> headerShift), uint8(uintptr(h) & flagMask)
}

// FrameRecord is one frame registered on a Chain. The record aliases the
// frame's slot window; writes made by the owning frame are visible to
// collection passes without further synchronization because both happen on
// the owning context.
type FrameRecord struct {
	prev  *FrameRecord
	slots []Ptr
	depth int
}

// NRoots returns the frame's current root count, read from its header.
func (r *FrameRecord) NRoots() int {
	n, _ := DecodeHeader(r.slots[0])
	return n
}

// Capacity returns the number of root slots in the frame's window.
func (r *FrameRecord) Capacity() int {
	return len(r.slots) - HeaderSlots
}

// Depth returns the frame's position on its chain, starting at 1.
func (r *FrameRecord) Depth() int {
	return r.depth
}

// Chain is the "current top of shadow stack" for one owning context.
// Push and Pop are its only writers, and both panic on protocol violations
// rather than corrupting the collector's view of the root set.
//
// A Chain is not safe for concurrent use. It is owned by exactly one
// session or task; collection passes run on the same owning context.
type Chain struct {
	top   *FrameRecord
	depth int
}

// NewChain returns an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// Push registers slots as the new top frame and returns its record.
// The window's header is reset so a collection pass between Push and the
// first root sees an empty frame. Panics if the window cannot hold the
// reserved header slots.
func (c *Chain) Push(slots []Ptr) *FrameRecord {
	if len(slots) < HeaderSlots {
		panic(errors.InvalidInput(errors.PhaseNest, "frame window smaller than reserved header"))
	}

	slots[0] = EncodeHeader(0, 0)
	slots[1] = Null

	c.depth++
	r := &FrameRecord{
		prev:  c.top,
		slots: slots,
		depth: c.depth,
	}
	c.top = r
	return r
}

// Pop unregisters the top frame. The record's slots are cleared so stale
// pointers never survive past the frame's lifetime. Popping any frame
// other than the current top is a protocol violation and panics.
func (c *Chain) Pop(r *FrameRecord) {
	if c.top == nil {
		panic(errors.OutOfOrder(errors.PhaseShutdown, 0, 0))
	}
	if r != c.top {
		panic(errors.OutOfOrder(errors.PhaseShutdown, r.depth, c.top.depth))
	}

	for i := range r.slots {
		r.slots[i] = Null
	}
	c.top = r.prev
	c.depth--
	r.prev = nil
}

// Current returns the top frame record, or nil if the chain is empty.
func (c *Chain) Current() *FrameRecord {
	return c.top
}

// Depth returns the number of live frames on the chain.
func (c *Chain) Depth() int {
	return c.depth
}

// VisitRoots enumerates every rooted pointer on the chain, top frame
// first. Null slots are skipped. fn returns false to stop early.
func (c *Chain) VisitRoots(fn func(Ptr) bool) {
	for r := c.top; r != nil; r = r.prev {
		n := r.NRoots()
		for i := 0; i < n; i++ {
			p := r.slots[HeaderSlots+i]
			if p.IsNull() {
				continue
			}
			if !fn(p) {
				return
			}
		}
	}
}

// FrameInfo is a point-in-time view of one live frame, oldest first in the
// slice returned by Snapshot.
type FrameInfo struct {
	Depth    int
	NRoots   int
	Capacity int
}

// Snapshot returns the chain's live frames for diagnostics.
func (c *Chain) Snapshot() []FrameInfo {
	infos := make([]FrameInfo, 0, c.depth)
	for r := c.top; r != nil; r = r.prev {
		infos = append(infos, FrameInfo{
			Depth:    r.depth,
			NRoots:   r.NRoots(),
			Capacity: r.Capacity(),
		})
	}
	// Reverse to oldest-first for display.
	for i, j := 0, len(infos)-1; i < j; i, j = i+1, j-1 {
		infos[i], infos[j] = infos[j], infos[i]
	}
	return infos
}

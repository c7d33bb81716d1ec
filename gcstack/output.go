package gcstack

import (
	"github.com/wippyai/gc-runtime/errors"
	"github.com/wippyai/gc-runtime/native"
)

// Output is a reservation of one slot in an ancestor frame, made before
// entering a nested scope. Using it as the target of a call inside the
// nested scope writes the result into the ancestor's slot, so the value
// survives the nested frame's pop without a copy.
type Output struct {
	frame *Frame
	index int
}

// Root implements Target by writing into the reserved ancestor slot.
// Legal while nested frames are live; the slot was claimed before
// nesting. Using an output after its frame popped panics.
func (o *Output) Root(p native.Ptr) (Handle, error) {
	if o.frame.closed {
		panic(errors.UseAfterPop(errors.PhaseRoot, o.frame.record.Depth()))
	}
	o.frame.window[native.HeaderSlots+o.index] = p
	return Handle{frame: o.frame, index: o.index}, nil
}

// Restrict returns a new output over the same slot, for handing to a
// shorter-lived scope without giving up this one.
func (o *Output) Restrict() *Output {
	return &Output{frame: o.frame, index: o.index}
}

// ReusableSlot is an Output variant intended for repeated overwrite
// within the same frame generation, such as a loop that roots one value
// per iteration. Each overwrite invalidates the value the slot's previous
// handles pointed at; keeping those values usable is the caller's
// responsibility.
type ReusableSlot struct {
	frame *Frame
	index int
}

// Root implements Target by overwriting the reserved slot.
func (s *ReusableSlot) Root(p native.Ptr) (Handle, error) {
	if s.frame.closed {
		panic(errors.UseAfterPop(errors.PhaseRoot, s.frame.record.Depth()))
	}
	s.frame.window[native.HeaderSlots+s.index] = p
	return Handle{frame: s.frame, index: s.index}, nil
}

// IntoOutput converts the slot into a plain Output over the same slot.
func (s *ReusableSlot) IntoOutput() *Output {
	return &Output{frame: s.frame, index: s.index}
}

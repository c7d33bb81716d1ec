package gcstack

import "github.com/wippyai/gc-runtime/native"

// Target decides where, and whether, a guest pointer produced by a call
// is rooted. Every operation that returns guest data takes a Target:
//
//   - *Frame roots in the caller's own frame
//   - *Output and *ReusableSlot root in an ancestor frame's reserved slot
//   - Unrooted does not root at all; the caller asserts reachability
//
// Rooting through an Output or ReusableSlot never fails with frame_full:
// the slot was claimed when the target was created.
type Target interface {
	Root(p native.Ptr) (Handle, error)
}

// Unrooted is the non-rooting target. Results flow through unchanged,
// wrapped in an unrooted handle. Use it for values that are already
// reachable (globally interned, or rooted by the immediately following
// operation); never hold its handles across a call that may collect.
type Unrooted struct{}

// Root implements Target without rooting.
func (Unrooted) Root(p native.Ptr) (Handle, error) {
	return Handle{raw: p}, nil
}

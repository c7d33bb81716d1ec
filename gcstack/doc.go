// Package gcstack implements the shadow stack that keeps host-held guest
// values alive across collections.
//
// The guest collector frees any heap value not reachable from its root
// set, and host-side references are invisible to it. The shadow stack
// mirrors the collector's expected root layout: a chain of frames, each a
// window of slots over a StackPage, where slot 0 holds the frame's root
// count and the remaining slots hold raw guest pointers.
//
// A Frame is one nesting level. Rooting a pointer writes it into the next
// free slot and returns a Handle; the handle stays valid until the frame's
// FrameOwner is closed, which unregisters the frame in strict LIFO order.
// Values that must outlive a nested frame are re-parented through an
// Output reserved in an ancestor frame before nesting.
//
// Every operation that produces guest data takes a Target, which decides
// where (or whether) the result is rooted:
//
//	frame, owner := gcstack.New(chain, page)
//	defer owner.Close()
//
//	out, _ := frame.Output()
//	nested, nestedOwner := frame.Nest(0)
//	h, err := gcstack.Call(ctx, rt, out, "make-thing") // rooted in frame, not nested
//	nestedOwner.Close()
//	// h is still live here
//
// Protocol violations (closing a frame out of order, using a frame while a
// nested frame is live, dereferencing a handle after its frame popped)
// panic rather than corrupting collector state. Capacity exhaustion is an
// ordinary error the caller can recover from by retrying in a larger
// frame.
package gcstack

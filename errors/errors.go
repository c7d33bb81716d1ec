package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseInit     Phase = "init"     // runtime initialization
	PhaseRoot     Phase = "root"     // rooting a value in a frame
	PhaseNest     Phase = "nest"     // creating a nested frame
	PhaseCall     Phase = "call"     // calling into the guest runtime
	PhasePool     Phase = "pool"     // task stack pool operations
	PhaseLayout   Phase = "layout"   // field/array layout resolution
	PhaseShutdown Phase = "shutdown" // runtime teardown
)

// Kind categorizes the error
type Kind string

const (
	KindFrameFull        Kind = "frame_full"
	KindStackExhausted   Kind = "stack_exhausted"
	KindOutOfOrder       Kind = "out_of_order"
	KindUseAfterPop      Kind = "use_after_pop"
	KindUnreserved       Kind = "unreserved"
	KindAllocation       Kind = "allocation"
	KindNotInitialized   Kind = "not_initialized"
	KindAlreadyInit      Kind = "already_initialized"
	KindPoolClosed       Kind = "pool_closed"
	KindCanceled         Kind = "canceled"
	KindForeignException Kind = "foreign_exception"
	KindTrap             Kind = "trap"
	KindUnsupported      Kind = "unsupported"
	KindInvalidInput     Kind = "invalid_input"
	KindNotFound         Kind = "not_found"
)

// Error is the structured error type used throughout the library
type Error struct {
	Cause    error
	Phase    Phase
	Kind     Kind
	Detail   string
	Depth    int // frame nesting depth, -1 if not applicable
	Roots    int // current root count, -1 if not applicable
	Capacity int // frame capacity, -1 if not applicable
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Depth >= 0 {
		fmt.Fprintf(&b, " at depth %d", e.Depth)
	}
	if e.Capacity >= 0 {
		fmt.Fprintf(&b, " (%d/%d roots)", e.Roots, e.Capacity)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsRecoverable reports whether the caller can retry the failed operation,
// for example by repeating it in a frame created with a larger capacity.
// Protocol violations and fatal conditions are not recoverable.
func (e *Error) IsRecoverable() bool {
	switch e.Kind {
	case KindFrameFull, KindStackExhausted, KindPoolClosed, KindCanceled:
		return true
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase:    phase,
			Kind:     kind,
			Depth:    -1,
			Roots:    -1,
			Capacity: -1,
		},
	}
}

// Depth sets the frame nesting depth
func (b *Builder) Depth(d int) *Builder {
	b.err.Depth = d
	return b
}

// Capacity sets the root count and frame capacity
func (b *Builder) Capacity(roots, capacity int) *Builder {
	b.err.Roots = roots
	b.err.Capacity = capacity
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// FrameFull creates a frame-capacity-exhausted error. The frame's first
// capacity slots are untouched; the caller may retry in a larger frame.
func FrameFull(phase Phase, capacity int) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindFrameFull,
		Depth:    -1,
		Roots:    capacity,
		Capacity: capacity,
		Detail:   "frame is full",
	}
}

// StackExhausted creates an error for a shadow stack that cannot hold
// another frame of the requested size.
func StackExhausted(phase Phase, requested, free int) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindStackExhausted,
		Depth:    -1,
		Roots:    -1,
		Capacity: -1,
		Detail:   fmt.Sprintf("need %d slots, %d free", requested, free),
	}
}

// UseAfterPop creates a protocol violation error for a handle or output
// used after its owning frame was popped.
func UseAfterPop(phase Phase, depth int) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindUseAfterPop,
		Depth:    depth,
		Roots:    -1,
		Capacity: -1,
		Detail:   "owning frame already popped",
	}
}

// OutOfOrder creates a protocol violation error for a frame popped while a
// nested frame is still live.
func OutOfOrder(phase Phase, depth, topDepth int) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindOutOfOrder,
		Depth:    depth,
		Roots:    -1,
		Capacity: -1,
		Detail:   fmt.Sprintf("frame at depth %d popped while depth %d is live", depth, topDepth),
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindNotInitialized,
		Depth:    -1,
		Roots:    -1,
		Capacity: -1,
		Detail:   fmt.Sprintf("%s not initialized", component),
	}
}

// AlreadyInitialized creates an already-initialized error
func AlreadyInitialized(component string) *Error {
	return &Error{
		Phase:    PhaseInit,
		Kind:     KindAlreadyInit,
		Depth:    -1,
		Roots:    -1,
		Capacity: -1,
		Detail:   fmt.Sprintf("%s already initialized", component),
	}
}

// PoolClosed creates an error for operations on a closed task pool
func PoolClosed() *Error {
	return &Error{
		Phase:    PhasePool,
		Kind:     KindPoolClosed,
		Depth:    -1,
		Roots:    -1,
		Capacity: -1,
		Detail:   "task pool is closed",
	}
}

// Canceled wraps a context cancellation
func Canceled(phase Phase, cause error) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindCanceled,
		Depth:    -1,
		Roots:    -1,
		Capacity: -1,
		Detail:   "operation canceled",
		Cause:    cause,
	}
}

// ForeignException creates an error carrying a thrown guest value. The
// exception itself stays rooted through the caller's target; msg is its
// formatted representation.
func ForeignException(phase Phase, msg string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindForeignException,
		Depth:    -1,
		Roots:    -1,
		Capacity: -1,
		Detail:   msg,
	}
}

// Trap wraps an abnormal guest termination. Unlike a foreign exception a
// trap carries no guest value; the guest computation is simply gone.
func Trap(phase Phase, cause error) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindTrap,
		Depth:    -1,
		Roots:    -1,
		Capacity: -1,
		Detail:   "guest trapped",
		Cause:    cause,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindUnsupported,
		Depth:    -1,
		Roots:    -1,
		Capacity: -1,
		Detail:   what,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindInvalidInput,
		Depth:    -1,
		Roots:    -1,
		Capacity: -1,
		Detail:   detail,
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     KindNotFound,
		Depth:    -1,
		Roots:    -1,
		Capacity: -1,
		Detail:   fmt.Sprintf("%s %q not found", what, name),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:    phase,
		Kind:     kind,
		Depth:    -1,
		Roots:    -1,
		Capacity: -1,
		Detail:   detail,
		Cause:    cause,
	}
}

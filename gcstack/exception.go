package gcstack

import "fmt"

// Exception is a thrown guest value. It is not an unwinding failure: the
// exception object lives on the guest heap like any other value and is
// rooted through the same target the call's success value would have
// used, so it stays alive long enough to be inspected or rethrown.
type Exception struct {
	Value Handle
}

// Error implements the error interface.
func (e *Exception) Error() string {
	if !e.Value.Live() {
		return "guest exception (frame popped)"
	}
	return fmt.Sprintf("guest exception: %s", e.Value)
}

// Is reports whether target is any guest exception.
func (e *Exception) Is(target error) bool {
	_, ok := target.(*Exception)
	return ok
}

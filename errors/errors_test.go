package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:    PhaseRoot,
				Kind:     KindFrameFull,
				Depth:    2,
				Roots:    16,
				Capacity: 16,
				Detail:   "cannot root value",
			},
			contains: []string{"[root]", "frame_full", "depth 2", "16/16", "cannot root value"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase:    PhaseNest,
				Kind:     KindStackExhausted,
				Depth:    -1,
				Roots:    -1,
				Capacity: -1,
			},
			contains: []string{"[nest]", "stack_exhausted"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:    PhaseInit,
				Kind:     KindAllocation,
				Depth:    -1,
				Roots:    -1,
				Capacity: -1,
				Detail:   "page allocation failed",
				Cause:    errors.New("underlying error"),
			},
			contains: []string{"[init]", "allocation", "page allocation failed", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(PhaseCall, KindCanceled, cause, "canceled")

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(error(err)), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseRoot,
		Kind:  KindFrameFull,
	}

	if !err.Is(&Error{Phase: PhaseRoot, Kind: KindFrameFull}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseNest, Kind: KindFrameFull}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseRoot, Kind: KindStackExhausted}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseRoot, Kind: KindFrameFull}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestError_IsRecoverable(t *testing.T) {
	tests := []struct {
		kind        Kind
		recoverable bool
	}{
		{KindFrameFull, true},
		{KindStackExhausted, true},
		{KindPoolClosed, true},
		{KindCanceled, true},
		{KindOutOfOrder, false},
		{KindUseAfterPop, false},
		{KindAllocation, false},
		{KindForeignException, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := &Error{Phase: PhaseRoot, Kind: tt.kind}
			if got := err.IsRecoverable(); got != tt.recoverable {
				t.Errorf("IsRecoverable() = %v, want %v", got, tt.recoverable)
			}
		})
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseRoot, KindFrameFull).
		Depth(3).
		Capacity(16, 16).
		Cause(cause).
		Detail("frame %d is full", 3).
		Build()

	if err.Phase != PhaseRoot {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseRoot)
	}
	if err.Kind != KindFrameFull {
		t.Errorf("Kind = %v, want %v", err.Kind, KindFrameFull)
	}
	if err.Depth != 3 {
		t.Errorf("Depth = %v, want 3", err.Depth)
	}
	if err.Roots != 16 || err.Capacity != 16 {
		t.Errorf("Roots=%d Capacity=%d, want 16/16", err.Roots, err.Capacity)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "frame 3 is full" {
		t.Errorf("Detail = %v, want 'frame 3 is full'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("FrameFull", func(t *testing.T) {
		err := FrameFull(PhaseRoot, 16)
		if err.Kind != KindFrameFull {
			t.Errorf("Kind = %v, want %v", err.Kind, KindFrameFull)
		}
		if err.Roots != 16 || err.Capacity != 16 {
			t.Errorf("Roots=%d Capacity=%d, want 16/16", err.Roots, err.Capacity)
		}
	})

	t.Run("StackExhausted", func(t *testing.T) {
		err := StackExhausted(PhaseNest, 66, 12)
		if err.Kind != KindStackExhausted {
			t.Errorf("Kind = %v, want %v", err.Kind, KindStackExhausted)
		}
		if !strings.Contains(err.Detail, "66") || !strings.Contains(err.Detail, "12") {
			t.Errorf("Detail = %v, should contain slot counts", err.Detail)
		}
	})

	t.Run("UseAfterPop", func(t *testing.T) {
		err := UseAfterPop(PhaseCall, 3)
		if err.Kind != KindUseAfterPop {
			t.Errorf("Kind = %v, want %v", err.Kind, KindUseAfterPop)
		}
		if err.Depth != 3 {
			t.Errorf("Depth = %d, want 3", err.Depth)
		}
		if err.IsRecoverable() {
			t.Error("use-after-pop must not be recoverable")
		}
	})

	t.Run("OutOfOrder", func(t *testing.T) {
		err := OutOfOrder(PhaseShutdown, 1, 3)
		if err.Kind != KindOutOfOrder {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfOrder)
		}
		if err.Depth != 1 {
			t.Errorf("Depth = %d, want 1", err.Depth)
		}
	})

	t.Run("NotInitialized", func(t *testing.T) {
		err := NotInitialized(PhaseCall, "session")
		if err.Kind != KindNotInitialized {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNotInitialized)
		}
		if !strings.Contains(err.Detail, "session") {
			t.Errorf("Detail = %v, should name the component", err.Detail)
		}
	})

	t.Run("AlreadyInitialized", func(t *testing.T) {
		err := AlreadyInitialized("runtime")
		if err.Kind != KindAlreadyInit {
			t.Errorf("Kind = %v, want %v", err.Kind, KindAlreadyInit)
		}
	})

	t.Run("PoolClosed", func(t *testing.T) {
		err := PoolClosed()
		if err.Kind != KindPoolClosed || err.Phase != PhasePool {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
	})

	t.Run("Canceled", func(t *testing.T) {
		cause := errors.New("ctx done")
		err := Canceled(PhasePool, cause)
		if err.Kind != KindCanceled {
			t.Errorf("Kind = %v, want %v", err.Kind, KindCanceled)
		}
		if !errors.Is(err, err) || !errors.Is(err.Unwrap(), cause) {
			t.Error("cause chain broken")
		}
	})

	t.Run("ForeignException", func(t *testing.T) {
		err := ForeignException(PhaseCall, "DomainError: sqrt of negative")
		if err.Kind != KindForeignException {
			t.Errorf("Kind = %v, want %v", err.Kind, KindForeignException)
		}
		if !strings.Contains(err.Detail, "DomainError") {
			t.Errorf("Detail = %v", err.Detail)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseCall, "function", "compute")
		if err.Kind != KindNotFound {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNotFound)
		}
		if !strings.Contains(err.Detail, `"compute"`) {
			t.Errorf("Detail = %v", err.Detail)
		}
	})
}

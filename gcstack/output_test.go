package gcstack

import (
	"context"
	"testing"

	"github.com/wippyai/gc-runtime/native"
	"github.com/wippyai/gc-runtime/native/nativetest"
)

func TestOutput_Reparenting(t *testing.T) {
	fake := nativetest.New()
	chain := native.NewChain()
	fake.BindRoots(chain)

	parent, owner := New(chain, NewPage(0))
	defer owner.Close()

	sentinel := fake.Alloc("escape me")

	out, err := parent.Output()
	if err != nil {
		t.Fatalf("Output failed: %v", err)
	}

	nested, nestedOwner := parent.Nest(0)
	_ = nested

	// Root the sentinel through the output inside the nested scope.
	h, err := out.Root(sentinel)
	if err != nil {
		t.Fatalf("Root through output failed: %v", err)
	}

	nestedOwner.Close()

	// The value survives the nested frame's pop.
	if !h.Live() {
		t.Fatal("handle should outlive the nested frame")
	}
	if h.Ptr() != sentinel {
		t.Fatalf("handle = %#x, want %#x", uintptr(h.Ptr()), uintptr(sentinel))
	}

	fake.Collect(true)
	if fake.Freed(sentinel) {
		t.Fatal("re-parented value was collected")
	}

	// Values rooted only in the nested frame do not survive.
	doomed := fake.Alloc("doomed")
	n2, o2 := parent.Nest(0)
	if _, err := n2.Root(doomed); err != nil {
		t.Fatal(err)
	}
	o2.Close()
	fake.Collect(true)
	if !fake.Freed(doomed) {
		t.Fatal("nested-frame root should not survive its frame")
	}
}

func TestOutput_UseAfterParentPopPanics(t *testing.T) {
	chain := native.NewChain()
	parent, owner := New(chain, NewPage(0))

	out, err := parent.Output()
	if err != nil {
		t.Fatal(err)
	}
	owner.Close()

	defer func() {
		if recover() == nil {
			t.Fatal("using an output after its frame popped should panic")
		}
	}()
	out.Root(native.Ptr(0x70)) //nolint:errcheck
}

func TestOutput_Restrict(t *testing.T) {
	chain := native.NewChain()
	frame, owner := New(chain, NewPage(0))
	defer owner.Close()

	out, err := frame.Output()
	if err != nil {
		t.Fatal(err)
	}

	restricted := out.Restrict()
	h1, err := restricted.Root(native.Ptr(0x80))
	if err != nil {
		t.Fatal(err)
	}

	// Both views target the same slot.
	h2, err := out.Root(native.Ptr(0x90))
	if err != nil {
		t.Fatal(err)
	}
	if h1.Ptr() != native.Ptr(0x90) || h2.Ptr() != native.Ptr(0x90) {
		t.Error("restricted output should share the original slot")
	}
	if frame.NRoots() != 1 {
		t.Errorf("NRoots = %d, want 1 (one reserved slot)", frame.NRoots())
	}
}

func TestReusableSlot_LoopOverwrite(t *testing.T) {
	fake := nativetest.New()
	chain := native.NewChain()
	fake.BindRoots(chain)

	frame, owner := New(chain, NewPage(0))
	defer owner.Close()

	slot, err := frame.ReusableSlot()
	if err != nil {
		t.Fatal(err)
	}

	before := frame.NRoots()
	var last Handle
	for i := 0; i < 8; i++ {
		p := fake.Alloc(i)
		last, err = slot.Root(p)
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
	}

	// Overwrites do not consume additional slots.
	if frame.NRoots() != before {
		t.Errorf("NRoots = %d, want %d", frame.NRoots(), before)
	}

	// Only the last value is still rooted.
	fake.Collect(true)
	if v, ok := fake.Value(last.Ptr()); !ok || v != 7 {
		t.Fatalf("last value = %v, %v; want 7", v, ok)
	}
	if fake.Live() != 1 {
		t.Errorf("live objects = %d, want 1", fake.Live())
	}
}

func TestReusableSlot_IntoOutput(t *testing.T) {
	chain := native.NewChain()
	frame, owner := New(chain, NewPage(0))
	defer owner.Close()

	slot, err := frame.ReusableSlot()
	if err != nil {
		t.Fatal(err)
	}
	out := slot.IntoOutput()

	h, err := out.Root(native.Ptr(0xa0))
	if err != nil {
		t.Fatal(err)
	}
	if h.Ptr() != native.Ptr(0xa0) {
		t.Errorf("handle = %#x", uintptr(h.Ptr()))
	}
	if frame.NRoots() != 1 {
		t.Errorf("NRoots = %d, want 1", frame.NRoots())
	}
}

func TestCall_TargetDispatch(t *testing.T) {
	fake := nativetest.New()
	chain := native.NewChain()
	fake.BindRoots(chain)
	ctx := context.Background()

	fake.Register("make", func(args []native.Ptr) (native.Ptr, native.Ptr) {
		return fake.Alloc("made"), native.Null
	})

	frame, owner := New(chain, NewPage(0))
	defer owner.Close()

	t.Run("frame target", func(t *testing.T) {
		h, err := Call(ctx, fake, frame, "make")
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		if !h.Rooted() {
			t.Fatal("frame target should root the result")
		}
		fake.Collect(true)
		if v, ok := fake.Value(h.Ptr()); !ok || v != "made" {
			t.Fatalf("value = %v, %v", v, ok)
		}
	})

	t.Run("output target", func(t *testing.T) {
		out, err := frame.Output()
		if err != nil {
			t.Fatal(err)
		}
		nested, nestedOwner := frame.Nest(0)
		_ = nested
		h, err := Call(ctx, fake, out, "make")
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		nestedOwner.Close()
		if !h.Live() {
			t.Fatal("output-target result should outlive nested frame")
		}
		fake.Collect(true)
		if _, ok := fake.Value(h.Ptr()); !ok {
			t.Fatal("output-target result was collected")
		}
	})

	t.Run("unrooted target", func(t *testing.T) {
		h, err := Call(ctx, fake, Unrooted{}, "make")
		if err != nil {
			t.Fatalf("Call failed: %v", err)
		}
		if h.Rooted() {
			t.Fatal("unrooted target must not root")
		}
		p := h.Ptr()
		fake.Collect(true)
		if !fake.Freed(p) {
			t.Fatal("unrooted result should be collectable")
		}
	})
}

func TestCall_ExceptionLiveness(t *testing.T) {
	fake := nativetest.New()
	chain := native.NewChain()
	fake.BindRoots(chain)
	ctx := context.Background()

	boom := fake.Alloc("DomainError")
	fake.Register("throws", func(args []native.Ptr) (native.Ptr, native.Ptr) {
		return native.Null, boom
	})

	frame, owner := New(chain, NewPage(0))
	defer owner.Close()

	_, err := Call(ctx, fake, frame, "throws")
	if err == nil {
		t.Fatal("expected exception")
	}
	exc, ok := err.(*Exception)
	if !ok {
		t.Fatalf("err = %T, want *Exception", err)
	}

	// The thrown value is rooted through the caller's target: it survives
	// a collection for as long as the target's frame does.
	fake.Collect(true)
	if v, ok := fake.Value(exc.Value.Ptr()); !ok || v != "DomainError" {
		t.Fatalf("exception value = %v, %v", v, ok)
	}

	if frame.NRoots() != 1 {
		t.Errorf("NRoots = %d, want 1 (the exception)", frame.NRoots())
	}
}

func TestCall_ArgsPassedByPointer(t *testing.T) {
	fake := nativetest.New()
	chain := native.NewChain()
	fake.BindRoots(chain)
	ctx := context.Background()

	var got []native.Ptr
	fake.Register("echo", func(args []native.Ptr) (native.Ptr, native.Ptr) {
		got = append([]native.Ptr(nil), args...)
		if len(args) == 0 {
			return native.Null, native.Null
		}
		return args[0], native.Null
	})

	frame, owner := New(chain, NewPage(0))
	defer owner.Close()

	a := fake.Alloc("a")
	b := fake.Alloc("b")
	ha, _ := frame.Root(a)
	hb, _ := frame.Root(b)

	h, err := Call(ctx, fake, frame, "echo", ha, hb)
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if len(got) != 2 || got[0] != a || got[1] != b {
		t.Fatalf("guest saw args %v", got)
	}
	if h.Ptr() != a {
		t.Errorf("result = %#x, want %#x", uintptr(h.Ptr()), uintptr(a))
	}
}

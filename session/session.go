package session

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/gc-runtime/errors"
	"github.com/wippyai/gc-runtime/gcstack"
	"github.com/wippyai/gc-runtime/native"
)

// DefaultStackSlots is the base shadow-stack page size for a session.
const DefaultStackSlots = 512

// active enforces at most one live session per process. The guest runtime
// is not reentrant; a second session may only start after the first one
// has been closed.
var active atomic.Bool

type config struct {
	stackSlots int
}

// Option configures a session.
type Option func(*config)

// WithStackSlots sets the size of the session's base shadow-stack page.
// Values below the package minimum are rounded up.
func WithStackSlots(n int) Option {
	return func(c *config) {
		c.stackSlots = n
	}
}

type job struct {
	ctx  context.Context
	fn   func() error
	quit bool
	done chan error
}

// Session owns a guest runtime instance and the single OS thread all
// guest calls run on. Create one with New, run work through Scope, and
// release the runtime with Close.
type Session struct {
	rt    native.Runtime
	gc    *native.GC
	chain *native.Chain
	page  *gcstack.StackPage

	jobs chan job
	dead chan struct{}

	mu     sync.Mutex
	closed bool
}

// New initializes the guest runtime on a dedicated, locked OS thread and
// returns the session owning it. Fails with already_initialized if
// another session is live in this process.
func New(ctx context.Context, rt native.Runtime, opts ...Option) (*Session, error) {
	if !active.CompareAndSwap(false, true) {
		return nil, errors.AlreadyInitialized("session")
	}

	cfg := config{stackSlots: DefaultStackSlots}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		rt:    rt,
		gc:    native.NewGC(rt),
		chain: native.NewChain(),
		page:  gcstack.NewPage(cfg.stackSlots),
		jobs:  make(chan job),
		dead:  make(chan struct{}),
	}
	go s.run()

	if err := s.send(ctx, job{ctx: ctx, fn: func() error {
		return rt.Init(ctx)
	}}); err != nil {
		s.send(context.Background(), job{quit: true}) //nolint:errcheck
		active.Store(false)
		return nil, err
	}

	rt.BindRoots(s.chain)
	Logger().Debug("session started",
		zap.Int("stack_slots", s.page.Size()))
	return s, nil
}

// run is the owning thread: every guest call in this session executes
// here, one job at a time, until the quit job from Close.
func (s *Session) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.dead)

	for j := range s.jobs {
		switch {
		case j.ctx != nil && j.ctx.Err() != nil:
			j.done <- errors.Canceled(errors.PhaseCall, j.ctx.Err())
		case j.fn != nil:
			j.done <- j.fn()
		default:
			j.done <- nil
		}
		if j.quit {
			return
		}
	}
}

func (s *Session) send(ctx context.Context, j job) error {
	j.done = make(chan error, 1)

	select {
	case s.jobs <- j:
	case <-ctx.Done():
		return errors.Canceled(errors.PhaseCall, ctx.Err())
	case <-s.dead:
		return errors.NotInitialized(errors.PhaseCall, "session")
	}

	// Once the owning thread holds the job it always runs it to a reply.
	// Abandoning it on cancellation would let the job keep writing state
	// the caller already stopped guarding.
	return <-j.done
}

func (s *Session) do(ctx context.Context, fn func() error) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return errors.NotInitialized(errors.PhaseCall, "session")
	}
	return s.send(ctx, job{ctx: ctx, fn: fn})
}

// Scope runs fn on the owning thread with a fresh base frame. The frame
// and everything rooted in it are released when fn returns; handles must
// not escape the callback.
func (s *Session) Scope(ctx context.Context, fn func(frame *gcstack.Frame) error) error {
	return s.ScopeWithCapacity(ctx, 0, fn)
}

// ScopeWithCapacity is Scope with a guaranteed minimum root capacity.
// Requests beyond the session's base page get a dedicated page for the
// duration of the scope.
func (s *Session) ScopeWithCapacity(ctx context.Context, capacity int, fn func(frame *gcstack.Frame) error) error {
	return s.do(ctx, func() error {
		page := s.page
		if capacity+native.HeaderSlots > page.Size() {
			page = gcstack.NewPage(capacity + native.HeaderSlots)
		}
		frame, owner := gcstack.New(s.chain, page)
		defer owner.Close()
		return fn(frame)
	})
}

// Call invokes an exported guest entry point in a throwaway scope and
// discards the result. Use it for side-effecting entry points like
// loading guest code; for results you need to keep, use Scope with
// gcstack.Call.
//
// A thrown guest value is formatted while still rooted and surfaced as
// a foreign_exception error.
func (s *Session) Call(ctx context.Context, name string) error {
	return s.Scope(ctx, func(frame *gcstack.Frame) error {
		_, err := gcstack.Call(ctx, s.rt, frame, name)
		if exc, ok := err.(*gcstack.Exception); ok {
			return errors.ForeignException(errors.PhaseCall, exc.Error())
		}
		return err
	})
}

// Runtime returns the backend this session drives. Use it with
// gcstack.Call inside a scope; calling it outside the owning thread is a
// protocol violation.
func (s *Session) Runtime() native.Runtime {
	return s.rt
}

// GC returns the session's collection control surface.
func (s *Session) GC() *native.GC {
	return s.gc
}

// StackSnapshot returns the live frames oldest-first, for diagnostics.
func (s *Session) StackSnapshot() []native.FrameInfo {
	return s.chain.Snapshot()
}

// Close shuts the guest runtime down and releases the owning thread.
// Idempotent; after Close every Scope fails with not_initialized.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	// The process slot is only released once the owning thread has
	// accepted the quit job: until then the runtime is still up, and a
	// second session starting against it would double-initialize the
	// guest.
	j := job{quit: true, done: make(chan error, 1), fn: func() error {
		s.rt.UnbindRoots(s.chain)
		return s.rt.Shutdown(ctx)
	}}
	select {
	case s.jobs <- j:
	case <-ctx.Done():
		// Teardown never started; reopen so Close can be retried.
		s.mu.Lock()
		s.closed = false
		s.mu.Unlock()
		return errors.Canceled(errors.PhaseShutdown, ctx.Err())
	case <-s.dead:
		active.Store(false)
		return nil
	}

	err := <-j.done
	active.Store(false)

	if err != nil {
		Logger().Warn("session shutdown failed", zap.Error(err))
		return err
	}
	Logger().Debug("session closed")
	return nil
}

package taskpool

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/gc-runtime/errors"
	"github.com/wippyai/gc-runtime/gcstack"
	"github.com/wippyai/gc-runtime/native"
)

const (
	// DefaultStacks is the default limit on concurrently live task stacks.
	DefaultStacks = 4

	// DefaultStackSlots is the default shadow-stack page size per task.
	DefaultStackSlots = 256
)

// Config configures a pool. The zero value picks the defaults.
type Config struct {
	// Stacks caps how many task stacks exist at once. Tasks beyond the
	// cap wait for a stack to be returned.
	Stacks int

	// StackSlots is the shadow-stack page size given to each task.
	StackSlots int

	// TickInterval, when positive, runs OnTick on the coordinator thread
	// at this interval while at least one task is live. It keeps the
	// guest responsive when every task is blocked on host work.
	TickInterval time.Duration

	// OnTick is the periodic guest interaction. Defaults to a safepoint.
	OnTick func(rt native.Runtime)
}

// stack is one checked-out-able shadow stack: a chain bound to the
// collector plus the page its frames live on.
type stack struct {
	id    int
	chain *native.Chain
	page  *gcstack.StackPage
}

type job struct {
	ctx  context.Context
	fn   func() error
	quit bool
	done chan error
}

// Pool owns a guest runtime, the coordinator thread that makes every
// guest call, and a bounded set of task stacks.
type Pool struct {
	rt  native.Runtime
	gc  *native.GC
	cfg Config

	jobs chan job
	dead chan struct{}

	// world keeps collection scans and frame writes apart: task-side
	// frame mutation holds it shared, coordinator work holds it
	// exclusive. Stacks of distinct tasks never alias, so shared holders
	// do not conflict with each other.
	world sync.RWMutex

	mu      sync.Mutex
	free    []*stack
	waiters []chan *stack
	created int
	running int
	closed  bool
	wg      sync.WaitGroup
}

// TaskFunc is a task body. It runs on its own goroutine with a private
// shadow stack; every guest interaction goes through the Task.
type TaskFunc func(t *Task) error

// New initializes the guest runtime on the pool's coordinator thread and
// returns the running pool.
func New(ctx context.Context, rt native.Runtime, cfg Config) (*Pool, error) {
	if cfg.Stacks <= 0 {
		cfg.Stacks = DefaultStacks
	}
	if cfg.StackSlots <= 0 {
		cfg.StackSlots = DefaultStackSlots
	}
	if cfg.OnTick == nil {
		cfg.OnTick = func(rt native.Runtime) { rt.Safepoint() }
	}

	p := &Pool{
		rt:   rt,
		gc:   native.NewGC(rt),
		cfg:  cfg,
		jobs: make(chan job),
		dead: make(chan struct{}),
	}
	go p.run()

	if err := p.send(ctx, job{ctx: ctx, fn: func() error {
		return rt.Init(ctx)
	}}); err != nil {
		p.send(context.Background(), job{quit: true}) //nolint:errcheck
		return nil, err
	}

	Logger().Debug("task pool started",
		zap.Int("stacks", cfg.Stacks),
		zap.Int("stack_slots", cfg.StackSlots),
		zap.Duration("tick_interval", cfg.TickInterval))
	return p, nil
}

// run is the coordinator: the one locked OS thread the guest ever sees.
func (p *Pool) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(p.dead)

	var tick <-chan time.Time
	if p.cfg.TickInterval > 0 {
		t := time.NewTicker(p.cfg.TickInterval)
		defer t.Stop()
		tick = t.C
	}

	for {
		select {
		case j := <-p.jobs:
			switch {
			case j.ctx != nil && j.ctx.Err() != nil:
				j.done <- errors.Canceled(errors.PhasePool, j.ctx.Err())
			case j.fn != nil:
				p.world.Lock()
				err := j.fn()
				p.world.Unlock()
				j.done <- err
			default:
				j.done <- nil
			}
			if j.quit {
				return
			}

		case <-tick:
			p.mu.Lock()
			idle := p.running == 0
			p.mu.Unlock()
			if idle {
				continue
			}
			p.world.Lock()
			p.cfg.OnTick(p.rt)
			p.world.Unlock()
		}
	}
}

func (p *Pool) send(ctx context.Context, j job) error {
	j.done = make(chan error, 1)

	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return errors.Canceled(errors.PhasePool, ctx.Err())
	case <-p.dead:
		return errors.PoolClosed()
	}

	// Once the coordinator holds the job it always runs it to a reply.
	// Returning early on cancellation here would abandon a job that still
	// roots into the caller's frame after the caller has moved on.
	return <-j.done
}

// checkout acquires a task stack: from the free list, by creating one
// under the cap, or by queueing for a handoff.
func (p *Pool) checkout(ctx context.Context) (*stack, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, errors.PoolClosed()
	}

	if n := len(p.free); n > 0 {
		st := p.free[n-1]
		p.free = p.free[:n-1]
		p.mu.Unlock()
		return st, nil
	}

	if p.created < p.cfg.Stacks {
		p.created++
		id := p.created
		p.mu.Unlock()
		st := &stack{
			id:    id,
			chain: native.NewChain(),
			page:  gcstack.NewPage(p.cfg.StackSlots),
		}
		p.rt.BindRoots(st.chain)
		Logger().Debug("task stack created", zap.Int("stack_id", id))
		return st, nil
	}

	ch := make(chan *stack, 1)
	p.waiters = append(p.waiters, ch)
	p.mu.Unlock()

	select {
	case st := <-ch:
		if st == nil {
			return nil, errors.PoolClosed()
		}
		return st, nil
	case <-ctx.Done():
		p.mu.Lock()
		for i, w := range p.waiters {
			if w == ch {
				p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
				p.mu.Unlock()
				return nil, errors.Canceled(errors.PhasePool, ctx.Err())
			}
		}
		p.mu.Unlock()

		// A handoff raced the cancellation; the stack is already ours.
		if st := <-ch; st != nil {
			p.checkin(st)
		}
		return nil, errors.Canceled(errors.PhasePool, ctx.Err())
	}
}

// checkin returns a stack. A waiting task gets it directly; otherwise it
// goes back on the free list.
func (p *Pool) checkin(st *stack) {
	p.mu.Lock()
	if len(p.waiters) > 0 {
		ch := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.mu.Unlock()
		ch <- st
		return
	}
	p.free = append(p.free, st)
	p.mu.Unlock()
}

// Spawn starts fn as a task and returns its result channel. The channel
// receives exactly one error (possibly nil) and is never closed early;
// discarding it detaches the task.
func (p *Pool) Spawn(ctx context.Context, fn TaskFunc) <-chan error {
	result := make(chan error, 1)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		result <- errors.PoolClosed()
		return result
	}
	p.running++
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer func() {
			p.mu.Lock()
			p.running--
			p.mu.Unlock()
		}()
		result <- p.runTask(ctx, fn)
	}()
	return result
}

// Run is Spawn without the plumbing: it blocks until the task finishes.
func (p *Pool) Run(ctx context.Context, fn TaskFunc) error {
	return <-p.Spawn(ctx, fn)
}

// runTask drives one task through its stack lifecycle. The base frame is
// closed before the stack returns to the pool, on success, error, and
// cancellation alike, so a reused stack always starts empty.
func (p *Pool) runTask(ctx context.Context, fn TaskFunc) error {
	st, err := p.checkout(ctx)
	if err != nil {
		return err
	}
	defer p.checkin(st)

	p.world.RLock()
	frame, owner := gcstack.New(st.chain, st.page)
	p.world.RUnlock()
	defer func() {
		p.world.RLock()
		defer p.world.RUnlock()
		owner.Close()
	}()

	return fn(&Task{pool: p, ctx: ctx, frame: frame})
}

// Stats is a point-in-time view of pool occupancy, for diagnostics.
type Stats struct {
	Stacks  int // configured cap
	Created int // stacks allocated so far
	Free    int // stacks on the free list
	Waiting int // tasks queued for a stack
	Running int // tasks live (holding a stack or acquiring one)
}

// Stats returns current pool occupancy.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Stacks:  p.cfg.Stacks,
		Created: p.created,
		Free:    len(p.free),
		Waiting: len(p.waiters),
		Running: p.running,
	}
}

// Close stops accepting tasks, waits for live tasks to finish, and shuts
// the guest runtime down. Idempotent.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	waiters := p.waiters
	p.waiters = nil
	p.mu.Unlock()

	// Waiting tasks cannot be served anymore.
	for _, ch := range waiters {
		close(ch)
	}

	p.wg.Wait()

	// No job context: once delivered, teardown must run even if the
	// caller's context has expired by then.
	err := p.send(ctx, job{quit: true, fn: func() error {
		p.mu.Lock()
		stacks := p.free
		p.free = nil
		p.mu.Unlock()
		for _, st := range stacks {
			p.rt.UnbindRoots(st.chain)
		}
		return p.rt.Shutdown(ctx)
	}})
	if err != nil {
		Logger().Warn("task pool shutdown failed", zap.Error(err))
		return err
	}
	Logger().Debug("task pool closed")
	return nil
}

package refresh

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"
)

// RefreshFunc obtains new credential headers, e.g. by exchanging a refresh
// token. It is never invoked concurrently by one Coordinator.
type RefreshFunc func(ctx context.Context) (map[string]string, error)

// HeaderStore receives the headers produced by a successful refresh.
type HeaderStore interface {
	Merge(headers map[string]string)
}

// State is the externally visible phase of a Coordinator.
type State int

const (
	// StateIdle means no refresh is running
	StateIdle State = iota
	// StateRefreshing means a refresh cycle is open and accepting waiters
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRefreshing:
		return "refreshing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Signal describes the authorization failure that made a caller ask for a
// refresh. It is informational only.
type Signal struct {
	RequestID  string
	Method     string
	URL        string
	StatusCode int
}

// Outcome is the result of one refresh cycle, shared by all of its waiters.
// Headers must be treated as read-only.
type Outcome struct {
	Cycle    uint64
	Headers  map[string]string
	Err      error
	Waiters  int
	Duration time.Duration
}

// Succeeded reports whether the cycle produced new credentials.
func (o Outcome) Succeeded() bool {
	return o.Err == nil && o.Cycle > 0
}

// cycle is the refreshing state. outcome is written once, before done is
// closed, and read only after done is closed.
type cycle struct {
	id      uint64
	started time.Time
	waiters int
	done    chan struct{}
	outcome Outcome
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithObserver sets the lifecycle observer. Nil keeps the no-op default.
func WithObserver(o Observer) Option {
	return func(c *Coordinator) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// Coordinator runs at most one refresh at a time and shares its outcome with
// every caller that asked for it while it was running.
type Coordinator struct {
	refresh  RefreshFunc
	store    HeaderStore
	observer Observer
	now      func() time.Time

	mu      sync.Mutex
	current *cycle // nil while idle
	cycles  uint64
}

// New creates a Coordinator. store may be nil when the caller applies the
// outcome headers itself.
func New(fn RefreshFunc, store HeaderStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		refresh:  fn,
		store:    store,
		observer: NopObserver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// EnsureFresh joins the open refresh cycle or starts a new one, then waits for
// its outcome. The returned error is the outcome's *RefreshError, or a
// *WaitError when ctx ended first.
func (c *Coordinator) EnsureFresh(ctx context.Context, sig Signal) (Outcome, error) {
	c.mu.Lock()
	cy := c.current
	leader := cy == nil
	if leader {
		c.cycles++
		cy = &cycle{
			id:      c.cycles,
			started: c.now(),
			waiters: 1,
			done:    make(chan struct{}),
		}
		c.current = cy
	} else {
		cy.waiters++
	}
	c.mu.Unlock()

	if leader {
		c.notify(func(o Observer) { o.CycleStarted(cy.id, sig) })
		go c.run(context.WithoutCancel(ctx), cy)
	} else {
		c.notify(func(o Observer) { o.FollowerJoined(cy.id, sig) })
	}

	return c.wait(ctx, cy)
}

// State reports whether a refresh cycle is currently open.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current != nil {
		return StateRefreshing
	}
	return StateIdle
}

// Cycles returns how many refresh cycles have been started.
func (c *Coordinator) Cycles() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cycles
}

func (c *Coordinator) run(ctx context.Context, cy *cycle) {
	headers, err := c.invoke(ctx)
	if err == nil && c.store != nil {
		// must complete before close(done)
		c.store.Merge(headers)
	}

	c.mu.Lock()
	c.current = nil
	waiters := cy.waiters
	c.mu.Unlock()

	cy.outcome = Outcome{
		Cycle:    cy.id,
		Waiters:  waiters,
		Duration: c.now().Sub(cy.started),
	}
	if err != nil {
		cy.outcome.Err = &RefreshError{Cycle: cy.id, Cause: err}
	} else {
		cy.outcome.Headers = maps.Clone(headers)
	}
	close(cy.done)

	c.notify(func(o Observer) { o.CycleCompleted(cy.outcome) })
}

func (c *Coordinator) invoke(ctx context.Context) (headers map[string]string, err error) {
	if c.refresh == nil {
		return nil, ErrNoRefreshFunc
	}
	defer func() {
		if r := recover(); r != nil {
			headers = nil
			err = fmt.Errorf("%w: %v", ErrRefreshPanicked, r)
		}
	}()
	return c.refresh(ctx)
}

func (c *Coordinator) wait(ctx context.Context, cy *cycle) (Outcome, error) {
	select {
	case <-cy.done:
		return cy.outcome, cy.outcome.Err
	case <-ctx.Done():
	}

	// a cycle that finished at the same time still wins
	select {
	case <-cy.done:
		return cy.outcome, cy.outcome.Err
	default:
	}

	werr := &WaitError{Cycle: cy.id, Err: ctx.Err()}
	c.notify(func(o Observer) { o.WaitAbandoned(cy.id, werr) })
	return Outcome{Cycle: cy.id, Err: werr}, werr
}

// notify shields coordination from a misbehaving observer.
func (c *Coordinator) notify(fn func(Observer)) {
	defer func() { _ = recover() }()
	fn(c.observer)
}

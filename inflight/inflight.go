// Package inflight deduplicates concurrent compute requests per cache key.
// At most one computation runs per key at any instant; every caller waiting
// on that key observes the same outcome.
//
// The shape follows the singleflight pattern, hand-built here because the
// cache needs two things singleflight does not offer: a live subscriber
// count per key, and refcounted cancellation — the computation detaches
// from the first caller's context and is cancelled only once every waiter
// has abandoned interest.
package inflight

import (
	"context"
	"sync"
	"sync/atomic"
)

// Call is a single in-flight computation shared by all waiters for a key.
type Call struct {
	key      string
	registry *Registry

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// subscribers is guarded by registry.mu.
	subscribers int

	vector []float32
	err    error
}

// Context returns the detached context the computation should run under.
// It outlives the triggering caller and is cancelled only when all
// subscribers give up.
func (c *Call) Context() context.Context {
	return c.ctx
}

// Settle records the outcome, removes the call from the registry so future
// requests start fresh, and wakes every waiter. Must be called exactly once.
func (c *Call) Settle(vector []float32, err error) {
	c.registry.mu.Lock()
	delete(c.registry.calls, c.key)
	c.vector = vector
	c.err = err
	c.registry.mu.Unlock()

	c.cancel()
	close(c.done)
}

// Wait blocks until the call settles or ctx is done. A waiter that gives up
// drops its subscription; the last one out cancels the computation.
func (c *Call) Wait(ctx context.Context) ([]float32, error) {
	select {
	case <-c.done:
		return c.vector, c.err
	case <-ctx.Done():
		c.registry.mu.Lock()
		c.subscribers--
		abandoned := c.subscribers <= 0
		c.registry.mu.Unlock()
		if abandoned {
			c.cancel()
		}
		return nil, ctx.Err()
	}
}

// Registry tracks in-flight computations keyed by cache key.
type Registry struct {
	mu        sync.Mutex
	calls     map[string]*Call
	coalesced atomic.Uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		calls: make(map[string]*Call),
	}
}

// Acquire returns the call for key, creating one atomically if absent. The
// second return value reports whether the caller is the leader responsible
// for running the computation and calling Settle.
func (r *Registry) Acquire(ctx context.Context, key string) (*Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.calls[key]; ok {
		c.subscribers++
		r.coalesced.Add(1)
		return c, false
	}

	callCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &Call{
		key:         key,
		registry:    r,
		ctx:         callCtx,
		cancel:      cancel,
		done:        make(chan struct{}),
		subscribers: 1,
	}
	r.calls[key] = c
	return c, true
}

// Do runs fn at most once per key across concurrent callers and returns
// the shared outcome. The second return value reports whether this caller
// piggybacked on another caller's computation.
func (r *Registry) Do(ctx context.Context, key string, fn func(context.Context) ([]float32, error)) ([]float32, bool, error) {
	c, leader := r.Acquire(ctx, key)
	if leader {
		// Run in a goroutine so the leader can abandon the wait without
		// killing the shared computation.
		go func() {
			vector, err := fn(c.ctx)
			c.Settle(vector, err)
		}()
	}
	vector, err := c.Wait(ctx)
	return vector, !leader, err
}

// Len returns the number of keys currently in flight.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Coalesced returns the total number of requests that piggybacked on an
// existing computation.
func (r *Registry) Coalesced() uint64 {
	return r.coalesced.Load()
}

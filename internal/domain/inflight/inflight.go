// Package inflight tracks fetches that are currently running so concurrent
// lookups of the same key share one call.
package inflight

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/saberlens/pkg/metrics"
)

// call is one running fetch and the result its waiters will receive.
type call[V any] struct {
	done    chan struct{}
	val     V
	err     error
	waiters int
}

// Registry maps key -> running fetch. Entries exist only while the fetch runs.
type Registry[V any] struct {
	mu    sync.Mutex
	calls map[string]*call[V]
	size  atomic.Int64
}

// New creates an empty registry.
func New[V any]() *Registry[V] {
	return &Registry[V]{calls: make(map[string]*call[V])}
}

// Do runs fn for key unless a call for key is already running, in which case
// it joins that call. shared reports whether the result came from another
// caller's fetch. fn runs detached from ctx cancellation, so a caller that
// leaves early, the starting one included, returns ErrAbandoned without
// failing the others; fn must bound itself. The entry is removed when fn
// returns, panics included, so a key is never locked permanently.
func (r *Registry[V]) Do(ctx context.Context, key string, fn func(ctx context.Context) (V, error)) (v V, err error, shared bool) {
	r.mu.Lock()
	if c, ok := r.calls[key]; ok {
		c.waiters++
		r.mu.Unlock()
		metrics.RecordInflightJoin()
		return wait(ctx, c, true)
	}

	c := &call[V]{done: make(chan struct{})}
	r.calls[key] = c
	r.size.Add(1)
	r.mu.Unlock()

	go r.run(context.WithoutCancel(ctx), key, c, fn)
	return wait(ctx, c, false)
}

func wait[V any](ctx context.Context, c *call[V], shared bool) (V, error, bool) {
	select {
	case <-c.done:
		return c.val, c.err, shared
	case <-ctx.Done():
		var zero V
		return zero, fmt.Errorf("%w: %w", ErrAbandoned, ctx.Err()), shared
	}
}

func (r *Registry[V]) run(ctx context.Context, key string, c *call[V], fn func(ctx context.Context) (V, error)) {
	defer func() {
		if p := recover(); p != nil {
			c.err = fmt.Errorf("%w: %v", ErrPanicked, p)
		}
		r.mu.Lock()
		delete(r.calls, key)
		r.size.Add(-1)
		r.mu.Unlock()
		close(c.done)
	}()
	c.val, c.err = fn(ctx)
}

// Size returns the number of running fetches.
func (r *Registry[V]) Size() int64 {
	return r.size.Load()
}

// Waiters returns how many callers joined the running fetch for key.
func (r *Registry[V]) Waiters(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.calls[key]; ok {
		return c.waiters
	}
	return 0
}

// Package task runs background work whose results are applied only while
// the identity they were started for is still current.
package task

import (
	"context"
	"fmt"
	"sync"
)

// Future is the handle of a background computation.
type Future[V any] struct {
	done    chan struct{}
	val     V
	ok      bool
	applied bool
	err     error
}

// Go runs fn in its own goroutine. A panic in fn resolves the future
// without a value.
func Go[V any](ctx context.Context, fn func(context.Context) (V, bool)) *Future[V] {
	f := &Future[V]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.ok, f.err = call(ctx, fn)
	}()
	return f
}

func call[V any](ctx context.Context, fn func(context.Context) (V, bool)) (v V, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero V
			v, ok, err = zero, false, fmt.Errorf("task panic: %v", r)
		}
	}()
	v, ok = fn(ctx)
	return v, ok, nil
}

func (f *Future[V]) Done() <-chan struct{} { return f.done }

// Result returns the value once the future is done. ok is false while the
// task is running or when it produced nothing.
func (f *Future[V]) Result() (V, bool) {
	select {
	case <-f.done:
		return f.val, f.ok
	default:
		var zero V
		return zero, false
	}
}

// Wait blocks until the future is done or ctx ends.
func (f *Future[V]) Wait(ctx context.Context) (V, bool) {
	select {
	case <-f.done:
		return f.val, f.ok
	case <-ctx.Done():
		var zero V
		return zero, false
	}
}

// Applied reports whether the result was written into its Slot. Only
// meaningful after Done.
func (f *Future[V]) Applied() bool {
	select {
	case <-f.done:
		return f.applied
	default:
		return false
	}
}

// Err is the recovered panic, if any.
func (f *Future[V]) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Ticket identifies one Begin on a Slot.
type Ticket[K comparable] struct {
	Key K
	gen uint64
}

// Slot holds the value shown for the current identity. Every Begin or
// Advance bumps a generation counter; commits carrying an older generation
// are discarded.
type Slot[K comparable, V any] struct {
	mu      sync.Mutex
	key     K
	gen     uint64
	value   V
	pending bool
}

// Begin makes key current, shows placeholder immediately and returns the
// ticket a later enrichment must present.
func (s *Slot[K, V]) Begin(key K, placeholder V) Ticket[K] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.key = key
	s.value = placeholder
	s.pending = true
	return Ticket[K]{Key: key, gen: s.gen}
}

// Advance moves to key with no value; in-flight tickets become stale.
func (s *Slot[K, V]) Advance(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var zero V
	s.gen++
	s.key = key
	s.value = zero
	s.pending = false
}

// Commit stores v if t is still current.
func (s *Slot[K, V]) Commit(t Ticket[K], v V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.gen != s.gen || t.Key != s.key {
		return false
	}
	s.value = v
	s.pending = false
	return true
}

// Settle marks t finished without replacing the placeholder.
func (s *Slot[K, V]) Settle(t Ticket[K]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.gen != s.gen || t.Key != s.key {
		return false
	}
	s.pending = false
	return true
}

// Current reports whether t is still the live ticket.
func (s *Slot[K, V]) Current(t Ticket[K]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t.gen == s.gen && t.Key == s.key
}

// Get returns the current identity, its value and whether an enrichment is
// still outstanding.
func (s *Slot[K, V]) Get() (K, V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key, s.value, s.pending
}

// Enrich runs fn in the background and commits its value under t. When fn
// yields nothing, or t has gone stale, the slot keeps what it has.
func Enrich[K comparable, V any](ctx context.Context, s *Slot[K, V], t Ticket[K], fn func(context.Context) (V, bool)) *Future[V] {
	f := &Future[V]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.ok, f.err = call(ctx, fn)
		if f.ok {
			f.applied = s.Commit(t, f.val)
			return
		}
		s.Settle(t)
	}()
	return f
}

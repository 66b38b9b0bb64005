package actor

import (
	"context"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// future is the channel-backed Future implementation returned by promise's
// Future method. Completion is signalled by closing done exactly once,
// guarded by a sync.Once so a racing Complete/Await pair never blocks.
type future[T any] struct {
	done   chan struct{}
	once   *sync.Once
	result *fn.Result[T]
}

// Await implements Future.
func (f *future[T]) Await(ctx context.Context) fn.Result[T] {
	select {
	case <-f.done:
		return *f.result
	case <-ctx.Done():
		return fn.Err[T](ctx.Err())
	}
}

// ThenApply implements Future.
func (f *future[T]) ThenApply(ctx context.Context, transform func(T) T) Future[T] {
	applied := NewPromise[T]()

	go func() {
		result := f.Await(ctx)
		val, err := result.Unpack()
		if err != nil {
			applied.Complete(result)
			return
		}

		applied.Complete(fn.Ok(transform(val)))
	}()

	return applied.Future()
}

// OnComplete implements Future.
func (f *future[T]) OnComplete(ctx context.Context, cb func(fn.Result[T])) {
	go func() {
		cb(f.Await(ctx))
	}()
}

// promise is the default Promise implementation: a single-assignment
// container delivered to its Future over a channel close, so multiple
// concurrent Await callers all observe the same result.
type promise[T any] struct {
	fut *future[T]
}

// NewPromise constructs an incomplete Promise. Complete must be called
// exactly once (subsequent calls are no-ops, reported via its bool return)
// before the associated Future resolves.
func NewPromise[T any]() Promise[T] {
	return &promise[T]{
		fut: &future[T]{
			done: make(chan struct{}),
			once: &sync.Once{},
		},
	}
}

// Future implements Promise.
func (p *promise[T]) Future() Future[T] {
	return p.fut
}

// Complete implements Promise. Returns true if this call completed the
// future, false if it was already completed.
func (p *promise[T]) Complete(result fn.Result[T]) bool {
	completed := false
	p.fut.once.Do(func() {
		p.fut.result = &result
		close(p.fut.done)
		completed = true
	})
	return completed
}

package rets

import (
	"context"
)

// Pending is the completion handle of an operation started with Go.
// It resolves exactly once, with either a result or an error.
//
// Usage:
//
//	p := rets.Go(ctx, client.GetAllTable)
//	// ... other work ...
//	tables, err := p.Wait(ctx)
type Pending[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Go runs fn on a new goroutine and returns its completion handle.
// Any event published by fn is delivered before the handle resolves.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Pending[T] {
	p := &Pending[T]{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.value, p.err = fn(ctx)
	}()
	return p
}

// Done is closed once the operation has completed.
func (p *Pending[T]) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the operation completes or ctx is done. In the latter
// case the operation keeps running and ctx.Err() is returned.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-p.done:
		return p.value, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Then calls fn with the outcome once the operation completes, on its own
// goroutine.
func (p *Pending[T]) Then(fn func(T, error)) {
	go func() {
		<-p.done
		fn(p.value, p.err)
	}()
}

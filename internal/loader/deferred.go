// internal/loader/deferred.go
//
// Deferred values for non-critical page data.
//
// A Deferred starts its fetch immediately and is awaited only when the
// template needs it, so footer menus and product recommendations load in
// parallel with the critical data.  A failure is logged, counted, and
// degrades to the zero value; it never fails the page.
package loader

import (
	"context"

	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/metrics"
)

// Deferred is a value being fetched in the background.
type Deferred[T any] struct {
	name string
	done chan struct{}
	val  T
	err  error
}

// Defer starts fn in its own goroutine.  name labels logs and metrics.
func Defer[T any](ctx context.Context, name string, fn func(context.Context) (T, error)) *Deferred[T] {
	d := &Deferred[T]{name: name, done: make(chan struct{})}
	go func() {
		defer close(d.done)
		v, err := fn(ctx)
		if err != nil {
			d.err = err
			metrics.DeferredLoadErrorsTotal.WithLabelValues(name).Inc()
			zap.S().Errorw("deferred load failed", "loader", name, "err", err)
			return
		}
		d.val = v
	}()
	return d
}

// Resolved wraps an already known value.
func Resolved[T any](v T) *Deferred[T] {
	d := &Deferred[T]{done: make(chan struct{}), val: v}
	close(d.done)
	return d
}

// Await blocks until the value is ready or ctx ends.  Failures and
// cancellation both yield the zero value.
func (d *Deferred[T]) Await(ctx context.Context) T {
	var zero T
	if d == nil {
		return zero
	}
	select {
	case <-d.done:
		return d.val
	case <-ctx.Done():
		return zero
	}
}

// failure reports the fetch error once resolved, nil otherwise.
func (d *Deferred[T]) failure() error {
	select {
	case <-d.done:
		return d.err
	default:
		return nil
	}
}

// Package future provides single-assignment results with continuations and
// a join barrier. Every future is completed at most once; later attempts
// report false and leave the stored result untouched.
package future

import (
	"context"
	"errors"
	"sync"
)

// ErrCancelled is the error carried by a future completed through Cancel.
var ErrCancelled = errors.New("future cancelled")

// Settler is anything whose completion can be observed without knowing its
// value type. Join accepts settlers so futures of different types can share
// one barrier.
type Settler interface {
	OnSettled(fn func(error))
}

// Future holds a value of type T that becomes available exactly once.
type Future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	value     T
	err       error
	callbacks []func(T, error)
}

func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a future already resolved with v.
func Completed[T any](v T) *Future[T] {
	f := New[T]()
	f.Resolve(v)
	return f
}

// Failed returns a future already completed with err.
func Failed[T any](err error) *Future[T] {
	f := New[T]()
	f.Reject(err)
	return f
}

func (f *Future[T]) Resolve(v T) bool { return f.complete(v, nil) }

func (f *Future[T]) Reject(err error) bool {
	var zero T
	return f.complete(zero, err)
}

// Cancel completes the future with ErrCancelled if it is still pending.
func (f *Future[T]) Cancel() bool { return f.Reject(ErrCancelled) }

func (f *Future[T]) complete(v T, err error) bool {
	f.mu.Lock()
	select {
	case <-f.done:
		f.mu.Unlock()
		return false
	default:
	}
	f.value, f.err = v, err
	cbs := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	// Callbacks run on the completing goroutine, outside the lock.
	for _, cb := range cbs {
		cb(v, err)
	}
	return true
}

// Done is closed once the future is completed.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

func (f *Future[T]) IsDone() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Cancelled reports whether the future was completed through Cancel.
func (f *Future[T]) Cancelled() bool {
	_, err := f.Result()
	return errors.Is(err, ErrCancelled)
}

// Result returns the stored outcome without blocking. While the future is
// pending it returns the zero value and a nil error.
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

// Wait blocks until the future completes or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// OnComplete registers fn to run once the future completes. If it already
// has, fn runs immediately on the calling goroutine.
func (f *Future[T]) OnComplete(fn func(T, error)) {
	f.mu.Lock()
	select {
	case <-f.done:
		v, err := f.value, f.err
		f.mu.Unlock()
		fn(v, err)
		return
	default:
	}
	f.callbacks = append(f.callbacks, fn)
	f.mu.Unlock()
}

func (f *Future[T]) OnSettled(fn func(error)) {
	f.OnComplete(func(_ T, err error) { fn(err) })
}

// Then chains fn after f. An error from f skips fn and is passed through.
// fn is not run when the returned future was already completed by someone
// else (for example cancelled) before f finished.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	out := New[U]()
	f.OnComplete(func(v T, err error) {
		if err != nil {
			out.Reject(err)
			return
		}
		if out.IsDone() {
			return
		}
		u, err := fn(v)
		if err != nil {
			out.Reject(err)
			return
		}
		out.Resolve(u)
	})
	return out
}

// Join returns a future that completes after every child has completed.
// It fails with the first observed child error, but only once all children
// are settled. Joining nothing yields a completed future.
func Join(children ...Settler) *Future[struct{}] {
	out := New[struct{}]()
	if len(children) == 0 {
		out.Resolve(struct{}{})
		return out
	}

	var (
		mu        sync.Mutex
		remaining = len(children)
		firstErr  error
	)
	for _, c := range children {
		c.OnSettled(func(err error) {
			mu.Lock()
			if err != nil && firstErr == nil {
				firstErr = err
			}
			remaining--
			last := remaining == 0
			joinErr := firstErr
			mu.Unlock()
			if !last {
				return
			}
			if joinErr != nil {
				out.Reject(joinErr)
				return
			}
			out.Resolve(struct{}{})
		})
	}
	return out
}

package pool

import (
	"context"
	"sync"
	"time"
)

// Future is the result handle of one submitted task. It is fulfilled exactly
// once, by the worker that ran the task, with the task's value and error.
// Every read method may be called any number of times from any goroutine.
//
// Get blocks until the task has run. A task that was accepted by Submit is
// always run before Shutdown returns, so Get only blocks forever if the pool
// is never shut down and its workers never reach the task (for example a
// task that calls Get on a Future queued behind it on a one-worker pool).
// Use GetWithContext or GetWithTimeout where that matters.
type Future[R any] struct {
	done  chan struct{}
	once  sync.Once
	value R
	err   error
}

func newFuture[R any]() *Future[R] {
	return &Future[R]{
		done: make(chan struct{}),
	}
}

func (f *Future[R]) complete(value R, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Get blocks until the task finishes and returns its value and error.
func (f *Future[R]) Get() (R, error) {
	<-f.done
	return f.value, f.err
}

// GetWithContext is Get bounded by ctx. When ctx ends first it returns the
// zero value and ctx.Err(); the task itself keeps running.
func (f *Future[R]) GetWithContext(ctx context.Context) (R, error) {
	select {
	case <-f.done:
		return f.value, f.err
	default:
	}

	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// GetWithTimeout is Get bounded by timeout. It returns
// context.DeadlineExceeded if the task has not finished in time.
func (f *Future[R]) GetWithTimeout(timeout time.Duration) (R, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return f.GetWithContext(ctx)
}

// Wait blocks until the task finishes and returns only its error.
func (f *Future[R]) Wait() error {
	_, err := f.Get()
	return err
}

// TryGet returns the outcome without blocking. ready is false while the task
// has not finished yet.
func (f *Future[R]) TryGet() (value R, err error, ready bool) {
	select {
	case <-f.done:
		return f.value, f.err, true
	default:
		return value, nil, false
	}
}

// Done returns a channel closed once the task has finished.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// IsReady reports whether the task has finished.
func (f *Future[R]) IsReady() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

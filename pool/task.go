package pool

import (
	"context"
	"errors"
	"time"
)

// TaskInfo describes a task to lifecycle hooks.
type TaskInfo struct {
	// ID is assigned at submission and grows with every Submit on a pool.
	ID uint64
	// WorkerID is the index of the worker running the task, in [0, N).
	WorkerID int
	// Enqueued is when the task entered the queue.
	Enqueued time.Time
}

// task is the type-erased unit the queue carries. Each Submit variant boxes
// its callable, arguments and Future into one.
type task interface {
	meta() *taskMeta
	// run invokes the callable once. It may be called again on retry.
	run(ctx context.Context) error
	// resolve fulfills the Future with the last value and err.
	resolve(err error)
}

type taskMeta struct {
	id       uint64
	ctx      context.Context
	enqueued time.Time
}

type boxedTask[R any] struct {
	taskMeta
	fn     func(context.Context) (R, error)
	future *Future[R]
	value  R
}

func newBoxedTask[R any](fn func(context.Context) (R, error)) *boxedTask[R] {
	return &boxedTask[R]{
		fn:     fn,
		future: newFuture[R](),
	}
}

func (t *boxedTask[R]) meta() *taskMeta {
	return &t.taskMeta
}

func (t *boxedTask[R]) run(ctx context.Context) error {
	v, err := t.fn(ctx)
	t.value = v
	return err
}

func (t *boxedTask[R]) resolve(err error) {
	if errors.Is(err, ErrTaskPanicked) || errors.Is(err, ErrTaskExited) {
		var zero R
		t.value = zero
	}
	t.future.complete(t.value, err)
}

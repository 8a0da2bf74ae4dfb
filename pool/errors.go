package pool

import "errors"

var (
	// ErrPoolClosed is returned when a task is submitted after Shutdown or
	// Close has started. The task is not queued.
	ErrPoolClosed = errors.New("enqueue on stopped pool")

	// ErrInvalidWorkerCount is returned by New for a worker count below one.
	ErrInvalidWorkerCount = errors.New("worker count must be at least 1")

	// ErrShutdownTimeout is returned by Shutdown when workers are still
	// draining the queue after the timeout. They keep draining in the background.
	ErrShutdownTimeout = errors.New("error in shutting down: timeout reached")

	// ErrTaskPanicked wraps the value a task panicked with. The worker that ran
	// the task keeps serving the queue.
	ErrTaskPanicked = errors.New("task panicked")

	// ErrTaskExited is returned for a task that ended its goroutine with
	// runtime.Goexit (t.FailNow does this). The worker is restarted.
	ErrTaskExited = errors.New("task exited its goroutine without returning")

	// ErrNilTask is returned when a nil function is submitted.
	ErrNilTask = errors.New("task function is nil")
)

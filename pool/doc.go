// Package pool provides a fixed-size, generic worker pool with a FIFO task
// queue and per-task result handles.
//
// A Pool owns N workers created up front. Submitted functions are queued in
// submission order and each idle worker takes the oldest one. Every Submit
// returns a Future that delivers the function's value or error exactly once.
//
// # Basic Usage
//
//	p, err := pool.New(4)
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	futures := make([]*pool.Future[int], 8)
//	for i := range futures {
//	    futures[i], _ = pool.SubmitArg(p, func(x int) (int, error) {
//	        return x * x, nil
//	    }, i)
//	}
//	for _, f := range futures {
//	    v, err := f.Get()
//	    // ...
//	}
//
// # Submitting Work
//
// Go generics do not allow type parameters on methods, so the typed submit
// helpers are package functions taking the pool as first argument:
//
//   - Submit: func() (R, error)
//   - SubmitValue: func() R
//   - SubmitContext: func(context.Context) (R, error), with the caller's context
//   - SubmitArg, SubmitArgs2: bind arguments at submission time
//   - (*Pool).Go: func() with no result
//
// Submitting never waits for the task to run. After shutdown has begun every
// variant returns ErrPoolClosed and the task is not queued.
//
// # Failures
//
// A task that returns an error or panics fails only its own Future. Panics
// surface as errors wrapping ErrTaskPanicked together with the stack trace;
// the worker goes on to the next task. A task that ends its goroutine with
// runtime.Goexit fails with ErrTaskExited and its worker is replaced.
//
// # Shutdown
//
// Shutdown and Close stop intake, then block until every task already queued
// has run and every worker has exited:
//
//	if err := p.Shutdown(5 * time.Second); errors.Is(err, pool.ErrShutdownTimeout) {
//	    // workers are still draining in the background
//	}
//
// Never call Shutdown or Close from inside a task.
//
// # Retry Logic
//
// Tasks that return an error can be re-run with a backoff:
//
//	p, _ := pool.New(4,
//	    pool.WithRetryPolicy(3, 100*time.Millisecond), // 3 attempts, 100ms initial delay
//	    pool.WithBackoff(pool.BackoffJittered, 2*time.Second, 0.2),
//	)
//
// Retry delays increase exponentially: 100ms, 200ms, 400ms, etc.
//
// # Rate Limiting
//
// Control how fast workers start tasks to avoid overwhelming a dependency:
//
//	p, _ := pool.New(10, pool.WithRateLimit(5.0, 10)) // 5 tasks/sec, burst of 10
//
// # Observability
//
//   - WithLogger: zap logger for lifecycle events and task failures
//   - WithMetrics: Prometheus counters, gauges and histograms per pool
//   - WithTracer: one OpenTelemetry span per task
//   - WithBeforeTaskStart, WithOnTaskEnd, WithOnRetry: lifecycle hooks
//
// Hooks run on the worker goroutine before the task's Future is fulfilled.
package pool

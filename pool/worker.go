package pool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/utkarsh5026/threadpool/internal/cpu"
)

type workerState int32

const (
	stateIdle workerState = iota
	stateExecuting
	stateTerminated
)

func (s workerState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateExecuting:
		return "executing"
	case stateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// worker is one long-lived goroutine draining the pool's queue.
type worker struct {
	id    int
	pool  *Pool
	state atomic.Int32
}

func newWorker(id int, p *Pool) *worker {
	return &worker{id: id, pool: p}
}

func (w *worker) State() workerState {
	return workerState(w.state.Load())
}

func (w *worker) setState(s workerState) {
	w.state.Store(int32(s))
}

// run is the worker loop. Pop blocks while the queue is empty and open, and
// reports !ok only once the queue is closed and drained: that is the single
// way out of the loop.
//
// A task calling runtime.Goexit unwinds the goroutine past recover. The
// in-flight task is still resolved by execute's deferred finish, and the
// worker is restarted on a fresh goroutine so the queue keeps draining.
func (w *worker) run() {
	normalReturn := false
	defer func() {
		if normalReturn {
			w.setState(stateTerminated)
			return
		}
		w.pool.logger.Warn("worker goroutine exited inside a task, restarting",
			zap.Int("worker_id", w.id))
		w.setState(stateIdle)
		// Still counted by the group here, so Wait cannot have returned.
		w.pool.group.Go(func() error {
			w.run()
			return nil
		})
	}()

	if w.pool.cfg.threadAffinity {
		release, err := cpu.Bind(w.id)
		defer release()
		if err != nil {
			w.pool.logger.Debug("worker thread not pinned",
				zap.Int("worker_id", w.id), zap.Error(err))
		}
	}

	for {
		t, ok := w.pool.queue.Pop()
		if !ok {
			normalReturn = true
			return
		}
		w.execute(t)
	}
}

// execute runs one task outside the queue lock and fulfills its Future.
func (w *worker) execute(t task) {
	p := w.pool
	m := t.meta()
	info := TaskInfo{ID: m.id, WorkerID: w.id, Enqueued: m.enqueued}

	w.setState(stateExecuting)
	defer w.setState(stateIdle)

	if p.cfg.limiter != nil {
		// Only fails when the burst is smaller than one token, which
		// WithRateLimit never configures.
		_ = p.cfg.limiter.Wait(context.WithoutCancel(m.ctx))
	}

	p.metrics.Started(time.Since(m.enqueued))
	if p.cfg.beforeTaskStart != nil {
		p.cfg.beforeTaskStart(info)
	}

	ctx, span := p.cfg.tracer.Start(m.ctx, "threadpool.task",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("threadpool.pool", p.name),
			attribute.Int64("threadpool.task.id", int64(m.id)), // #nosec G115 -- ids stay far below 2^63
			attribute.Int("threadpool.worker.id", w.id),
		))

	start := time.Now()
	err := ErrTaskExited
	defer func() {
		w.finish(t, info, span, time.Since(start), err)
	}()

	err = w.process(ctx, t, info)
}

// finish records the outcome of a task and fulfills its Future. It runs
// deferred so that a task ending its goroutine still gets resolved.
func (w *worker) finish(t task, info TaskInfo, span trace.Span, took time.Duration, err error) {
	p := w.pool

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.failed.Add(1)
		p.logger.Debug("task failed",
			zap.Uint64("task_id", info.ID),
			zap.Int("worker_id", w.id),
			zap.Duration("took", took),
			zap.Error(err))
	} else {
		p.completed.Add(1)
	}
	span.End()

	p.metrics.Finished(took, err)
	if p.cfg.onTaskEnd != nil {
		p.cfg.onTaskEnd(info, err)
	}

	t.resolve(err)
}

// process runs the task, retrying returned errors under the retry policy.
func (w *worker) process(ctx context.Context, t task, info TaskInfo) error {
	p := w.pool
	attempts := max(p.cfg.maxAttempts, 1)

	var err error
	var delay time.Duration
	for attempt := range attempts {
		if attempt > 0 {
			if p.cfg.onRetry != nil {
				p.cfg.onRetry(info, attempt, err)
			}
			p.metrics.Retried()
			delay = p.backoff.Next(attempt-1, delay)
			if delay > 0 {
				time.Sleep(delay)
			}
		}

		err = w.attempt(ctx, t)
		if err == nil || errors.Is(err, ErrTaskPanicked) {
			return err
		}
	}
	return err
}

// attempt invokes the task body once, converting a panic into an error so
// that a misbehaving task never takes the worker down with it.
func (w *worker) attempt(ctx context.Context, t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			err = fmt.Errorf("%w: %v\nstack trace:\n%s", ErrTaskPanicked, r, buf[:n])
		}
	}()

	return t.run(ctx)
}

package pool

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/utkarsh5026/threadpool/internal/algorithms"
	"github.com/utkarsh5026/threadpool/internal/metrics"
	"github.com/utkarsh5026/threadpool/internal/queue"
)

// Pool is a fixed set of workers draining a shared FIFO of tasks.
//
// Tasks are started in the order they were queued and run concurrently on at
// most WorkerCount workers. Each submission returns a Future for the task's
// outcome. Shutdown (or Close) stops intake, lets the workers finish every
// task already queued, and returns once all of them have exited.
//
// A Pool must not be copied; pass *Pool around.
type Pool struct {
	_ noCopy

	name    string
	cfg     *config
	logger  *zap.Logger
	metrics *metrics.Collector
	backoff *algorithms.Backoff

	queue   *queue.Queue[task]
	workers []*worker
	group   errgroup.Group
	done    chan struct{}

	nextID    atomic.Uint64
	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	rejected  atomic.Uint64
}

// New starts a pool with exactly workerCount workers, all idle and waiting
// for tasks by the time New returns.
//
// Returns ErrInvalidWorkerCount for workerCount < 1: a pool without workers
// would accept tasks it can never run, and its Shutdown could never drain.
//
// Example:
//
//	p, err := pool.New(4, pool.WithName("resize"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	future, _ := pool.Submit(p, func() (int, error) { return 6 * 7, nil })
//	v, err := future.Get()
func New(workerCount int, opts ...Option) (*Pool, error) {
	if workerCount < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkerCount, workerCount)
	}

	cfg := newConfig(opts...)
	p := &Pool{
		name:    cfg.name,
		cfg:     cfg,
		logger:  cfg.logger.Named("threadpool").With(zap.String("pool", cfg.name)),
		backoff: cfg.backoff(),
		queue:   queue.New[task](),
		done:    make(chan struct{}),
	}

	if cfg.registerer != nil {
		m, err := metrics.New(cfg.registerer, cfg.name)
		if err != nil {
			return nil, err
		}
		p.metrics = m
	}
	p.metrics.SetWorkers(workerCount)

	p.workers = make([]*worker, workerCount)
	for i := range workerCount {
		w := newWorker(i, p)
		p.workers[i] = w
		p.group.Go(func() error {
			w.run()
			return nil
		})
	}

	go func() {
		_ = p.group.Wait()
		// Frees the pool name for reuse on the same registry.
		p.metrics.Unregister(cfg.registerer)
		p.logger.Info("pool stopped",
			zap.Uint64("completed", p.completed.Load()),
			zap.Uint64("failed", p.failed.Load()))
		close(p.done)
	}()

	p.logger.Info("pool started", zap.Int("workers", workerCount))
	return p, nil
}

// NewDefault starts a pool with one worker per usable CPU (GOMAXPROCS).
func NewDefault(opts ...Option) (*Pool, error) {
	return New(runtime.GOMAXPROCS(0), opts...)
}

// Submit queues fn and returns the Future its result will be delivered to.
// It never waits for fn to run. Returns ErrPoolClosed once shutdown has begun.
func Submit[R any](p *Pool, fn func() (R, error)) (*Future[R], error) {
	if fn == nil {
		return nil, ErrNilTask
	}
	return SubmitContext(p, context.Background(), func(context.Context) (R, error) {
		return fn()
	})
}

// SubmitContext is Submit for functions that want the submission context.
// ctx carries values and the parent span into the task; the pool never
// cancels a queued task because ctx ends.
func SubmitContext[R any](p *Pool, ctx context.Context, fn func(context.Context) (R, error)) (*Future[R], error) {
	if fn == nil {
		return nil, ErrNilTask
	}
	if ctx == nil {
		ctx = context.Background()
	}

	t := newBoxedTask(fn)
	if err := p.enqueue(ctx, t); err != nil {
		return nil, err
	}
	return t.future, nil
}

// SubmitValue queues a function that cannot fail.
func SubmitValue[R any](p *Pool, fn func() R) (*Future[R], error) {
	if fn == nil {
		return nil, ErrNilTask
	}
	return Submit(p, func() (R, error) {
		return fn(), nil
	})
}

// SubmitArg binds arg to fn at submission time and queues the call.
func SubmitArg[A, R any](p *Pool, fn func(A) (R, error), arg A) (*Future[R], error) {
	if fn == nil {
		return nil, ErrNilTask
	}
	return Submit(p, func() (R, error) {
		return fn(arg)
	})
}

// SubmitArgs2 binds a and b to fn at submission time and queues the call.
func SubmitArgs2[A, B, R any](p *Pool, fn func(A, B) (R, error), a A, b B) (*Future[R], error) {
	if fn == nil {
		return nil, ErrNilTask
	}
	return Submit(p, func() (R, error) {
		return fn(a, b)
	})
}

// Go queues a function with no result. The Future only reports completion
// and, if fn panicked, the panic as an error.
func (p *Pool) Go(fn func()) (*Future[struct{}], error) {
	if fn == nil {
		return nil, ErrNilTask
	}
	return Submit(p, func() (struct{}, error) {
		fn()
		return struct{}{}, nil
	})
}

func (p *Pool) enqueue(ctx context.Context, t task) error {
	m := t.meta()
	m.id = p.nextID.Add(1)
	m.ctx = ctx
	m.enqueued = time.Now()

	p.submitted.Add(1)
	if err := p.queue.Push(t); err != nil {
		p.submitted.Add(^uint64(0))
		p.rejected.Add(1)
		p.metrics.Rejected()
		return ErrPoolClosed
	}
	p.metrics.Submitted()
	return nil
}

// Shutdown stops the pool from accepting tasks, wakes every worker, and waits
// for them to finish all queued tasks and exit.
//
// A timeout <= 0 waits as long as it takes. Otherwise ErrShutdownTimeout is
// returned when the workers are still busy after timeout; they keep draining
// in the background and a later Shutdown call can wait for them again.
//
// Shutdown must not be called from inside a task: the calling worker would
// wait for itself.
func (p *Pool) Shutdown(timeout time.Duration) error {
	if p.queue.Close() {
		p.logger.Info("pool shutting down", zap.Int("queued", p.queue.Len()))
	}
	return waitUntil(p.done, timeout)
}

// Close is Shutdown without a timeout, for use with defer.
func (p *Pool) Close() error {
	return p.Shutdown(0)
}

// Done returns a channel that is closed after every worker has exited.
func (p *Pool) Done() <-chan struct{} {
	return p.done
}

// Name returns the pool name used in logs, metrics and spans.
func (p *Pool) Name() string {
	return p.name
}

// WorkerCount returns the fixed number of workers.
func (p *Pool) WorkerCount() int {
	return len(p.workers)
}

// Stats is a point-in-time snapshot of pool activity. Counters are read
// independently, so a snapshot taken while tasks run may be slightly skewed.
type Stats struct {
	Name      string
	Workers   int
	Queued    int
	Active    int
	Submitted uint64
	Completed uint64
	Failed    uint64
	Rejected  uint64
	Closed    bool
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool) Stats() Stats {
	active := 0
	for _, w := range p.workers {
		if w.State() == stateExecuting {
			active++
		}
	}

	return Stats{
		Name:      p.name,
		Workers:   len(p.workers),
		Queued:    p.queue.Len(),
		Active:    active,
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Rejected:  p.rejected.Load(),
		Closed:    p.queue.Closed(),
	}
}

package pool

import (
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/utkarsh5026/threadpool/internal/algorithms"
)

// BackoffKind selects the delay curve used between retries.
type BackoffKind = algorithms.BackoffKind

const (
	BackoffExponential  = algorithms.BackoffExponential
	BackoffJittered     = algorithms.BackoffJittered
	BackoffDecorrelated = algorithms.BackoffDecorrelated
)

// Option is a functional option for configuring a Pool.
type Option func(*config)

type config struct {
	name       string
	logger     *zap.Logger
	registerer prometheus.Registerer
	tracer     trace.Tracer
	limiter    *rate.Limiter

	maxAttempts  int
	initialDelay time.Duration
	backoffKind  BackoffKind
	maxDelay     time.Duration
	jitter       float64

	threadAffinity bool

	beforeTaskStart func(TaskInfo)
	onTaskEnd       func(TaskInfo, error)
	onRetry         func(TaskInfo, int, error)
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		logger:      zap.NewNop(),
		tracer:      noop.NewTracerProvider().Tracer(""),
		maxAttempts: 1,
		backoffKind: BackoffExponential,
		maxDelay:    5 * time.Second,
		jitter:      0.1,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.name == "" {
		cfg.name = "pool-" + uuid.NewString()[:8]
	}
	return cfg
}

func (c *config) backoff() *algorithms.Backoff {
	if c.maxAttempts <= 1 {
		return nil
	}
	return algorithms.NewBackoff(c.backoffKind, c.initialDelay, c.maxDelay, c.jitter)
}

// WithName names the pool in logs, metrics and spans.
// If not specified, a random "pool-xxxxxxxx" name is used.
func WithName(name string) Option {
	return func(cfg *config) {
		cfg.name = name
	}
}

// WithLogger sets the logger used for lifecycle events and task failures.
// Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithMetrics registers the pool's Prometheus collectors with reg.
// New fails if a pool with the same name is already registered there.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(cfg *config) {
		cfg.registerer = reg
	}
}

// WithTracer records one span per task execution. The span is a child of the
// context passed to SubmitContext.
func WithTracer(tracer trace.Tracer) Option {
	return func(cfg *config) {
		if tracer != nil {
			cfg.tracer = tracer
		}
	}
}

// WithRateLimit caps how many tasks per second the workers start, with the
// given burst. Queued tasks wait in the queue, not in the submitter.
//
// Example:
//
//	WithRateLimit(10, 5) // 10 tasks/sec with burst of 5
func WithRateLimit(tasksPerSecond float64, burst int) Option {
	return func(cfg *config) {
		if tasksPerSecond > 0 && burst > 0 {
			cfg.limiter = rate.NewLimiter(rate.Limit(tasksPerSecond), burst)
		}
	}
}

// WithRetryPolicy re-runs a task whose function returns an error, up to
// maxAttempts runs in total. initialDelay is the wait before the first retry;
// later waits follow the backoff curve (see WithBackoff). Panics are never
// retried.
func WithRetryPolicy(maxAttempts int, initialDelay time.Duration) Option {
	return func(cfg *config) {
		if maxAttempts > 0 {
			cfg.maxAttempts = maxAttempts
		}
		if initialDelay > 0 {
			cfg.initialDelay = initialDelay
		}
	}
}

// WithBackoff picks the retry delay curve, its ceiling and, for
// BackoffJittered, the ±jitter fraction.
func WithBackoff(kind BackoffKind, maxDelay time.Duration, jitter float64) Option {
	return func(cfg *config) {
		cfg.backoffKind = kind
		if maxDelay > 0 {
			cfg.maxDelay = maxDelay
		}
		if jitter >= 0 {
			cfg.jitter = jitter
		}
	}
}

// WithThreadAffinity locks every worker goroutine to its own OS thread for the
// life of the pool and, where supported, pins that thread to one CPU.
func WithThreadAffinity() Option {
	return func(cfg *config) {
		cfg.threadAffinity = true
	}
}

// WithBeforeTaskStart runs fn on the worker right before a task body starts.
func WithBeforeTaskStart(fn func(TaskInfo)) Option {
	return func(cfg *config) {
		cfg.beforeTaskStart = fn
	}
}

// WithOnTaskEnd runs fn on the worker after a task finished, before its
// Future is fulfilled. err is the final error, nil on success.
func WithOnTaskEnd(fn func(TaskInfo, error)) Option {
	return func(cfg *config) {
		cfg.onTaskEnd = fn
	}
}

// WithOnRetry runs fn before each retry with the 1-based number of the failed
// attempt and its error.
func WithOnRetry(fn func(TaskInfo, int, error)) Option {
	return func(cfg *config) {
		cfg.onRetry = fn
	}
}

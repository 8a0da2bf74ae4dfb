// Package metrics exposes pool activity as Prometheus collectors.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "threadpool"
	poolLabel = "pool"
)

// Collector holds the per-pool collectors. A nil *Collector is valid and
// records nothing, so call sites never need to check whether metrics are on.
type Collector struct {
	submitted prometheus.Counter
	rejected  prometheus.Counter
	completed prometheus.Counter
	failed    prometheus.Counter
	retried   prometheus.Counter
	queued    prometheus.Gauge
	busy      prometheus.Gauge
	workers   prometheus.Gauge
	duration  prometheus.Histogram
	wait      prometheus.Histogram
}

// New creates the collectors for the pool called poolName and registers them
// with reg. Registering the same pool name twice on one registry fails.
func New(reg prometheus.Registerer, poolName string) (*Collector, error) {
	labels := prometheus.Labels{poolLabel: poolName}

	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}

	c := &Collector{
		submitted: counter("tasks_submitted_total", "Tasks accepted into the queue."),
		rejected:  counter("tasks_rejected_total", "Tasks refused because the pool was shutting down."),
		completed: counter("tasks_completed_total", "Tasks that finished without error."),
		failed:    counter("tasks_failed_total", "Tasks that returned an error or panicked."),
		retried:   counter("task_retries_total", "Extra attempts made under the retry policy."),
		queued:    gauge("queue_depth", "Tasks waiting for a worker."),
		busy:      gauge("busy_workers", "Workers currently executing a task."),
		workers:   gauge("workers", "Workers owned by the pool."),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "task_duration_seconds",
			Help:        "Time spent executing a task, retries included.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),
		wait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "task_wait_seconds",
			Help:        "Time a task spent queued before a worker picked it up.",
			ConstLabels: labels,
			Buckets:     prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
	}

	for _, col := range c.collectors() {
		if err := reg.Register(col); err != nil {
			for _, done := range c.collectors() {
				if done == col {
					break
				}
				reg.Unregister(done)
			}
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				return nil, fmt.Errorf("metrics for pool %q already registered: %w", poolName, err)
			}
			return nil, fmt.Errorf("registering pool metrics: %w", err)
		}
	}

	return c, nil
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.submitted, c.rejected, c.completed, c.failed, c.retried,
		c.queued, c.busy, c.workers, c.duration, c.wait,
	}
}

// Unregister removes every collector from reg.
func (c *Collector) Unregister(reg prometheus.Registerer) {
	if c == nil {
		return
	}
	for _, col := range c.collectors() {
		reg.Unregister(col)
	}
}

// SetWorkers sets the workers gauge.
func (c *Collector) SetWorkers(n int) {
	if c == nil {
		return
	}
	c.workers.Set(float64(n))
}

// Submitted records a task accepted into the queue.
func (c *Collector) Submitted() {
	if c == nil {
		return
	}
	c.submitted.Inc()
	c.queued.Inc()
}

// Rejected records a submission refused after shutdown began.
func (c *Collector) Rejected() {
	if c == nil {
		return
	}
	c.rejected.Inc()
}

// Started records a task leaving the queue after waiting for waited.
func (c *Collector) Started(waited time.Duration) {
	if c == nil {
		return
	}
	c.queued.Dec()
	c.busy.Inc()
	c.wait.Observe(waited.Seconds())
}

// Retried records one retry of a failed task.
func (c *Collector) Retried() {
	if c == nil {
		return
	}
	c.retried.Inc()
}

// Finished records the outcome of a task that ran for took.
func (c *Collector) Finished(took time.Duration, err error) {
	if c == nil {
		return
	}
	c.busy.Dec()
	c.duration.Observe(took.Seconds())
	if err != nil {
		c.failed.Inc()
		return
	}
	c.completed.Inc()
}

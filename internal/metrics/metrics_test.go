package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_Lifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()

	c, err := New(reg, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.SetWorkers(4)
	c.Submitted()
	c.Submitted()
	c.Rejected()

	if got := testutil.ToFloat64(c.queued); got != 2 {
		t.Errorf("queue_depth = %v, want 2", got)
	}

	c.Started(time.Millisecond)
	if got := testutil.ToFloat64(c.busy); got != 1 {
		t.Errorf("busy_workers = %v, want 1", got)
	}
	c.Retried()
	c.Finished(10*time.Millisecond, errors.New("boom"))

	c.Started(time.Millisecond)
	c.Finished(10*time.Millisecond, nil)

	checks := map[prometheus.Collector]float64{
		c.workers:   4,
		c.submitted: 2,
		c.rejected:  1,
		c.completed: 1,
		c.failed:    1,
		c.retried:   1,
		c.queued:    0,
		c.busy:      0,
	}
	for col, want := range checks {
		if got := testutil.ToFloat64(col); got != want {
			t.Errorf("%T = %v, want %v", col, got, want)
		}
	}

	if n := testutil.CollectAndCount(c.duration); n != 1 {
		t.Errorf("expected one duration series, got %d", n)
	}
}

func TestCollector_Exposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg, "expo")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Submitted()

	expected := `
# HELP threadpool_tasks_submitted_total Tasks accepted into the queue.
# TYPE threadpool_tasks_submitted_total counter
threadpool_tasks_submitted_total{pool="expo"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "threadpool_tasks_submitted_total"); err != nil {
		t.Error(err)
	}
}

func TestNew_DuplicatePoolName(t *testing.T) {
	reg := prometheus.NewRegistry()

	if _, err := New(reg, "dup"); err != nil {
		t.Fatalf("first New: %v", err)
	}

	_, err := New(reg, "dup")
	if err == nil {
		t.Fatal("expected error registering the same pool twice")
	}
	var are prometheus.AlreadyRegisteredError
	if !errors.As(err, &are) {
		t.Errorf("expected wrapped AlreadyRegisteredError, got %v", err)
	}

	if _, err := New(reg, "other"); err != nil {
		t.Errorf("a different pool name should register cleanly: %v", err)
	}
}

func TestCollector_Unregister(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg, "gone")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	c.Unregister(reg)

	if _, err := New(reg, "gone"); err != nil {
		t.Errorf("re-register after Unregister failed: %v", err)
	}
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector

	c.SetWorkers(1)
	c.Submitted()
	c.Rejected()
	c.Started(time.Second)
	c.Retried()
	c.Finished(time.Second, nil)
	c.Unregister(prometheus.NewRegistry())
}

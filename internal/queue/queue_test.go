package queue

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestQueue_FIFO(t *testing.T) {
	q := New[int]()

	for i := range 100 {
		if err := q.Push(i); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}

	if got := q.Len(); got != 100 {
		t.Fatalf("expected len 100, got %d", got)
	}

	for i := range 100 {
		v, ok := q.Pop()
		if !ok {
			t.Fatalf("pop %d: queue reported terminated", i)
		}
		if v != i {
			t.Errorf("expected %d, got %d", i, v)
		}
	}
}

func TestQueue_GrowPreservesOrder(t *testing.T) {
	q := New[int]()

	// Advance head so the ring wraps before it has to grow.
	for i := range 10 {
		_ = q.Push(i)
	}
	for range 10 {
		q.Pop()
	}

	for i := range minCapacity * 3 {
		_ = q.Push(i)
	}

	for i := range minCapacity * 3 {
		v, _ := q.Pop()
		if v != i {
			t.Fatalf("expected %d, got %d", i, v)
		}
	}
}

func TestQueue_PushAfterClose(t *testing.T) {
	q := New[string]()
	_ = q.Push("before")

	if !q.Close() {
		t.Fatal("first Close should report true")
	}
	if q.Close() {
		t.Error("second Close should report false")
	}

	err := q.Push("after")
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if got := q.Len(); got != 1 {
		t.Errorf("rejected item must not be queued, len = %d", got)
	}
}

func TestQueue_DrainThenTerminate(t *testing.T) {
	q := New[int]()
	_ = q.Push(1)
	_ = q.Push(2)
	q.Close()

	for _, want := range []int{1, 2} {
		v, ok := q.Pop()
		if !ok || v != want {
			t.Fatalf("expected (%d, true), got (%d, %v)", want, v, ok)
		}
	}

	if _, ok := q.Pop(); ok {
		t.Error("closed and empty queue should return ok == false")
	}
}

func TestQueue_PopBlocksUntilPush(t *testing.T) {
	q := New[int]()
	got := make(chan int, 1)

	go func() {
		v, _ := q.Pop()
		got <- v
	}()

	select {
	case <-got:
		t.Fatal("Pop returned before anything was pushed")
	case <-time.After(50 * time.Millisecond):
	}

	_ = q.Push(7)

	select {
	case v := <-got:
		if v != 7 {
			t.Errorf("expected 7, got %d", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Pop did not wake up after Push")
	}
}

func TestQueue_CloseWakesAllConsumers(t *testing.T) {
	q := New[int]()
	const consumers = 8

	var wg sync.WaitGroup
	var terminated atomic.Int32
	for range consumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := q.Pop(); !ok {
				terminated.Add(1)
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	q.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not wake every consumer")
	}

	if got := terminated.Load(); got != consumers {
		t.Errorf("expected %d terminated consumers, got %d", consumers, got)
	}
}

func TestQueue_ConcurrentProducersConsumers(t *testing.T) {
	q := New[int]()
	const (
		producers = 8
		perProd   = 500
		consumers = 4
	)

	seen := make([]atomic.Int32, producers*perProd)

	var cwg sync.WaitGroup
	for range consumers {
		cwg.Add(1)
		go func() {
			defer cwg.Done()
			for {
				v, ok := q.Pop()
				if !ok {
					return
				}
				seen[v].Add(1)
			}
		}()
	}

	var pwg sync.WaitGroup
	for p := range producers {
		pwg.Add(1)
		go func() {
			defer pwg.Done()
			for i := range perProd {
				if err := q.Push(p*perProd + i); err != nil {
					t.Errorf("push failed: %v", err)
				}
			}
		}()
	}

	pwg.Wait()
	q.Close()
	cwg.Wait()

	for i := range seen {
		if n := seen[i].Load(); n != 1 {
			t.Fatalf("item %d popped %d times", i, n)
		}
	}
}

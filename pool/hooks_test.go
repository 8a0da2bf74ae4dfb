package pool

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// TestHooksBasic checks that every task produces one start and one end event
func TestHooksBasic(t *testing.T) {
	var mu sync.Mutex
	events := []string{}

	p := mustNew(t, 2,
		WithBeforeTaskStart(func(info TaskInfo) {
			mu.Lock()
			events = append(events, fmt.Sprintf("start:%d", info.ID))
			mu.Unlock()
		}),
		WithOnTaskEnd(func(info TaskInfo, err error) {
			mu.Lock()
			if err != nil {
				events = append(events, fmt.Sprintf("end:%d:error", info.ID))
			} else {
				events = append(events, fmt.Sprintf("end:%d:ok", info.ID))
			}
			mu.Unlock()
		}),
	)

	tasks := []int{1, 2, 3}
	for _, task := range tasks {
		f, err := Submit(p, func() (int, error) {
			time.Sleep(10 * time.Millisecond)
			if task == 2 {
				return 0, errors.New("task 2 failed")
			}
			return task, nil
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		_ = f.Wait()
	}

	mu.Lock()
	defer mu.Unlock()

	if len(events) != 6 { // 3 starts + 3 ends
		t.Fatalf("expected 6 events, got %d: %v", len(events), events)
	}

	// Task ids start at 1 and follow submission order.
	want := []string{"start:1", "end:1:ok", "start:2", "end:2:error", "start:3", "end:3:ok"}
	for i, e := range want {
		if events[i] != e {
			t.Errorf("event %d: expected %q, got %q", i, e, events[i])
		}
	}
}

func TestHooksTaskInfo(t *testing.T) {
	const workers = 3
	var mu sync.Mutex
	infos := []TaskInfo{}

	p := mustNew(t, workers, WithBeforeTaskStart(func(info TaskInfo) {
		mu.Lock()
		infos = append(infos, info)
		mu.Unlock()
	}))

	before := time.Now()
	for range 12 {
		if _, err := p.Go(func() { time.Sleep(time.Millisecond) }); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(infos) != 12 {
		t.Fatalf("expected 12 hook calls, got %d", len(infos))
	}
	for _, info := range infos {
		if info.WorkerID < 0 || info.WorkerID >= workers {
			t.Errorf("task %d reported worker %d", info.ID, info.WorkerID)
		}
		if info.Enqueued.Before(before) {
			t.Errorf("task %d enqueued before submission started", info.ID)
		}
	}
}

func TestHooksRunBeforeFutureIsFulfilled(t *testing.T) {
	ended := make(chan struct{}, 1)
	p := mustNew(t, 1, WithOnTaskEnd(func(TaskInfo, error) {
		ended <- struct{}{}
	}))

	f, _ := p.Go(func() {})
	_ = f.Wait()

	select {
	case <-ended:
	default:
		t.Error("OnTaskEnd should have run before Get returned")
	}
}

// Package queue provides the blocking FIFO shared between the submitting side
// of a pool and its workers.
package queue

import (
	"errors"
	"sync"
)

var (
	ErrClosed = errors.New("queue is closed")
)

const minCapacity = 16

// Queue is an unbounded FIFO guarded by a single mutex. The same mutex guards
// the stop flag, so a Push racing a Close is either queued before the flag
// flips (and will be drained) or rejected.
//
// Consumers block in Pop on a condition variable. Push wakes one waiter,
// Close wakes all of them.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []T
	head   int
	count  int
	closed bool
}

// New returns an empty, open queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{
		buf: make([]T, minCapacity),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends item at the tail and wakes one blocked consumer.
// Returns ErrClosed without queueing the item once Close has been called.
func (q *Queue[T]) Push(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}

	if q.count == len(q.buf) {
		q.grow()
	}

	q.buf[(q.head+q.count)%len(q.buf)] = item
	q.count++
	q.cond.Signal()
	return nil
}

// Pop removes and returns the head of the queue, blocking while the queue is
// empty and open. It returns ok == false only when the queue is closed and
// fully drained, which tells the caller to terminate.
func (q *Queue[T]) Pop() (item T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}

	if q.count == 0 {
		return item, false
	}

	var zero T
	item = q.buf[q.head]
	q.buf[q.head] = zero
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	return item, true
}

// Close sets the stop flag and wakes every blocked consumer. Items already
// queued stay poppable. Only the call that actually closed the queue
// returns true.
func (q *Queue[T]) Close() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.closed = true
	q.cond.Broadcast()
	return true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Closed reports whether Close has been called.
func (q *Queue[T]) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// grow doubles the ring and unwraps it so head starts at index 0.
// Caller must hold q.mu.
func (q *Queue[T]) grow() {
	next := make([]T, len(q.buf)*2)
	n := copy(next, q.buf[q.head:])
	copy(next[n:], q.buf[:q.head])
	q.buf = next
	q.head = 0
}

package simulator

import (
	"errors"
	"sync"
)

// ErrStopped is returned by Enqueue once the queue has been stopped
var ErrStopped = errors.New("queue stopped")

// Queue is a bounded circular queue that doubles its capacity when it
// fills up and halves it when it drops below a quarter full. Every change
// of size or capacity is reported to the observer with the new capacity.
type Queue struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	buf        []int
	head, tail int
	size       int

	closed  bool // no more items will be enqueued
	stopped bool // abandon queued items too

	observe func(capacity int)
	resizes int
}

// NewQueue creates a queue with the given initial capacity, which must be
// at least 1. observe may be nil.
func NewQueue(capacity int, observe func(capacity int)) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	if observe == nil {
		observe = func(int) {}
	}

	q := &Queue{buf: make([]int, capacity), observe: observe}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Enqueue adds item, waiting while the queue is full
func (q *Queue) Enqueue(item int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size == len(q.buf) && !q.stopped {
		q.notFull.Wait()
	}
	if q.stopped {
		return ErrStopped
	}

	q.buf[q.tail] = item
	q.tail = (q.tail + 1) % len(q.buf)
	q.size++

	if q.size == len(q.buf) {
		q.resize(len(q.buf) * 2)
	}

	q.observe(len(q.buf))
	q.notEmpty.Signal()
	return nil
}

// Dequeue removes the oldest item, waiting while the queue is empty. ok is
// false once the queue is closed and drained, or stopped.
func (q *Queue) Dequeue() (item int, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size == 0 && !q.closed && !q.stopped {
		q.notEmpty.Wait()
	}
	if q.stopped || q.size == 0 {
		return 0, false
	}

	item = q.buf[q.head]
	q.head = (q.head + 1) % len(q.buf)
	q.size--

	if q.size < len(q.buf)/4 && len(q.buf)/2 >= 1 {
		q.resize(len(q.buf) / 2)
	}

	q.observe(len(q.buf))
	q.notFull.Signal()
	return item, true
}

// Close marks the end of input; consumers drain what is left
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.notEmpty.Broadcast()
}

// Stop wakes every waiter and makes further calls fail
func (q *Queue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.mu.Unlock()
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Len returns the number of queued items
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Cap returns the current capacity
func (q *Queue) Cap() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Resizes returns how many times the capacity changed
func (q *Queue) Resizes() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.resizes
}

// resize copies the items into a new buffer; caller holds mu
func (q *Queue) resize(capacity int) {
	buf := make([]int, capacity)
	for i := 0; i < q.size; i++ {
		buf[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.buf = buf
	q.head = 0
	q.tail = q.size % capacity
	q.resizes++
	q.observe(capacity)
}

// Package queue provides the in-memory handoff buffer between the dispatch
// path and the event journal writer. The poll cycle must never block on
// journal I/O, so the buffer grows instead of applying backpressure.
package queue

import "sync"

// Buffer is a thread-safe FIFO that doubles its capacity when full.
type Buffer[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	head   int
	tail   int
	count  int
	closed bool

	totalIn  int64
	totalOut int64
}

// NewBuffer creates a buffer with the given initial capacity.
func NewBuffer[T any](initialCapacity int) *Buffer[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	b := &Buffer[T]{items: make([]T, initialCapacity)}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Send enqueues an item, growing the buffer if it is full.
// Returns false if the buffer has been closed.
func (b *Buffer[T]) Send(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}

	if b.count == len(b.items) {
		b.grow()
	}

	b.items[b.tail] = item
	b.tail = (b.tail + 1) % len(b.items)
	b.count++
	b.totalIn++

	b.cond.Signal()
	return true
}

// Receive dequeues an item, blocking until one is available or the buffer
// is closed. The second return is false once the buffer is closed and
// drained.
func (b *Buffer[T]) Receive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.cond.Wait()
	}

	if b.count == 0 {
		var zero T
		return zero, false
	}
	return b.popLocked(), true
}

// TryReceive dequeues an item without blocking.
func (b *Buffer[T]) TryReceive() (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		var zero T
		return zero, false
	}
	return b.popLocked(), true
}

// Close stops accepting new items. Receivers drain what remains.
func (b *Buffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}

// Len returns the number of buffered items.
func (b *Buffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// popLocked removes the head item. Caller must hold the mutex.
func (b *Buffer[T]) popLocked() T {
	item := b.items[b.head]
	var zero T
	b.items[b.head] = zero // release for GC
	b.head = (b.head + 1) % len(b.items)
	b.count--
	b.totalOut++
	return item
}

// grow doubles capacity, unrolling the ring into the new slice.
// Caller must hold the mutex.
func (b *Buffer[T]) grow() {
	bigger := make([]T, len(b.items)*2)
	for i := 0; i < b.count; i++ {
		bigger[i] = b.items[(b.head+i)%len(b.items)]
	}
	b.items = bigger
	b.head = 0
	b.tail = b.count
}

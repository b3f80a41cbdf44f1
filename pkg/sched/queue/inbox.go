package queue

import "github.com/latticeforge/corekit/internal/xsync"

// Inbox is a worker's exclusive queue: any worker may push into it, but
// only the owning worker ever pops. Guarded by a spinlock rather than the
// MPMC ring's lock-free algorithm, since contention here is low (one
// consumer) and a plain slice-backed ring is simpler to reason about than
// an SCQ instance sized for a single reader.
type Inbox[T any] struct {
	mu    xsync.Spinlock
	items []T
	head  int
	count int
}

// NewInbox builds an Inbox with room for capacity items.
func NewInbox[T any](capacity int) *Inbox[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Inbox[T]{items: make([]T, capacity)}
}

// Push appends v to the inbox. Returns ErrWouldBlock if the inbox is full.
func (b *Inbox[T]) Push(v T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == len(b.items) {
		return ErrWouldBlock
	}

	tail := (b.head + b.count) % len(b.items)
	b.items[tail] = v
	b.count++
	return nil
}

// Pop removes and returns the oldest item. ok is false if the inbox is
// empty.
func (b *Inbox[T]) Pop() (v T, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return v, false
	}

	v = b.items[b.head]
	var zero T
	b.items[b.head] = zero
	b.head = (b.head + 1) % len(b.items)
	b.count--
	return v, true
}

// Len returns the number of items currently queued. Unlike MPMC, Inbox has
// a single consumer under a lock, so an exact count costs nothing extra.
func (b *Inbox[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

package queue

import "code.hybscloud.com/lfq"

// MPMC is the per-workgroup bounded ring workers round-robin dequeue from in
// getWork and submitters round-robin enqueue into in SubmitGroup.
//
// It wraps [lfq.MPMC], the pack's own FAA-based SCQ (Nikolaev, DISC 2019)
// ring, rather than reimplementing the algorithm: lfq's Producer/Consumer
// pass T by pointer to avoid copying large structs, but every WorkItem this
// package moves is a fixed, small value, so MPMC trades that pointer
// indirection for a value-in/value-out API at its call sites in pkg/sched.
type MPMC[T any] struct {
	q *lfq.MPMC[T]
}

// NewMPMC builds an MPMC ring. capacity rounds up to the next power of two;
// it panics if capacity < 2 (see [lfq.NewMPMC]).
func NewMPMC[T any](capacity int) *MPMC[T] {
	return &MPMC[T]{q: lfq.NewMPMC[T](capacity)}
}

// Cap returns the queue's usable capacity.
func (m *MPMC[T]) Cap() int {
	return m.q.Cap()
}

// Enqueue adds v to the queue. Returns ErrWouldBlock if the queue is full.
func (m *MPMC[T]) Enqueue(v T) error {
	return m.q.Enqueue(&v)
}

// Drain signals that no more Enqueue calls will be made, letting Dequeue
// skip lfq's livelock threshold and empty the ring down to nothing. Used by
// the scheduler's shutdown drain phase.
func (m *MPMC[T]) Drain() {
	m.q.Drain()
}

// Dequeue removes and returns an element. Returns (zero, ErrWouldBlock) if
// the queue is empty.
func (m *MPMC[T]) Dequeue() (T, error) {
	return m.q.Dequeue()
}

// Package queue provides the bounded FIFO queues the scheduler moves work
// items through: a per-workgroup MPMC ring (backed by code.hybscloud.com/lfq)
// for group submission and a per-worker exclusive inbox for direct
// worker-to-worker submission.
package queue

import "code.hybscloud.com/lfq"

// ErrWouldBlock indicates the operation cannot proceed immediately: the
// queue is full (Enqueue/Push) or empty (Dequeue/Pop). It is a control-flow
// signal, not a failure — callers retry, typically with a spin.Wait.
//
// Re-exported from lfq so Inbox, which lfq does not cover, reports the same
// sentinel value MPMC's lfq-backed Enqueue/Dequeue already return.
var ErrWouldBlock = lfq.ErrWouldBlock

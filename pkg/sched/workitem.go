//go:build go1.23

// Package sched provides a fixed-size worker-pool scheduler built around
// workgroups, round-robin work-finding, and a local-work fast-hand-off path.
package sched

import (
	"fmt"

	"github.com/latticeforge/corekit/pkg/xunsafe"
	"github.com/latticeforge/corekit/pkg/xunsafe/layout"
)

// workItemInlineSize bounds how much state a WorkItem can capture without
// spilling to the heap. 32 bytes covers a couple of machine words plus
// change — enough for indices, small structs, or a pointer and a length —
// without growing WorkItem itself into something expensive to copy through
// a queue slot.
const workItemInlineSize = 32

// WorkItem is a type-erased, fixed-size unit of work: a function pointer
// plus an inline capture buffer plus the GroupID it was submitted for.
//
// Go has no compile-time "trivially copyable" constraint the way C++ does,
// so WorkItem approximates it at the type level: NewWorkItem requires its
// captured argument to be comparable (ruling out funcs, maps and slices,
// closures among them; pointers and structs holding them still qualify) and
// panics, at construction time, if the argument does not fit the inline
// buffer. Since the check is a property
// of the type parameter rather than its value, it fails on the first call
// with a given T long before it could fail in production.
type WorkItem struct {
	group GroupID
	call  func(*WorkerContext, *WorkItem)
	data  [workItemInlineSize]byte
}

// NewWorkItem builds a WorkItem targeting dst that, when run, calls fn with
// the worker context it executed on and a copy of arg.
func NewWorkItem[T comparable](dst GroupID, fn func(*WorkerContext, T), arg T) WorkItem {
	if size := layout.Size[T](); size > workItemInlineSize {
		panic(fmt.Sprintf("sched: work item capture of %d bytes exceeds the %d-byte inline buffer", size, workItemInlineSize))
	}

	item := WorkItem{group: dst}
	*xunsafe.Cast[T](&item.data[0]) = arg
	item.call = func(ctx *WorkerContext, w *WorkItem) {
		fn(ctx, *xunsafe.Cast[T](&w.data[0]))
	}
	return item
}

// Group returns the workgroup this item was submitted for, or a negative
// GroupID if it was submitted directly to a worker.
func (w *WorkItem) Group() GroupID {
	return w.group
}

func (w *WorkItem) run(ctx *WorkerContext) {
	if w.call != nil {
		w.call(ctx, w)
	}
}

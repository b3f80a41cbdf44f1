//go:build go1.22

// Package provider supplies concrete [arena.MemoryManager] implementations:
// plain heap slices, anonymous virtual memory, file-backed mappings, and a
// no-op manager for tests.
package provider

import (
	"golang.org/x/exp/constraints"

	"github.com/latticeforge/corekit/pkg/arena"
)

// Heap backs every arena with a plain make([]byte, n) slice, relocated
// with copy(). It never refuses to drop an empty arena.
type Heap[S constraints.Unsigned] struct{}

// NewHeap creates a Heap manager.
func NewHeap[S constraints.Unsigned]() *Heap[S] { return &Heap[S]{} }

func (h *Heap[S]) AddArena(size S) ([]byte, error) {
	return make([]byte, size), nil
}

func (h *Heap[S]) DropArena(arena.ArenaHandle, []byte) bool { return true }

func (h *Heap[S]) RemoveArena(arena.ArenaHandle, []byte) error { return nil }

func (h *Heap[S]) BeginDefragment() {}
func (h *Heap[S]) EndDefragment()   {}

func (h *Heap[S]) MoveMemory(_, _ arena.ArenaHandle, srcBacking, dstBacking []byte, srcOffset, dstOffset, size S) {
	so, do, n := int(srcOffset), int(dstOffset), int(size)
	copy(dstBacking[do:do+n], srcBacking[so:so+n])
}

func (h *Heap[S]) RebindAlloc(arena.AllocHandle, S) {}

//go:build go1.22

package arena

import "golang.org/x/exp/constraints"

// MemoryManager adapts an [Allocator] onto whatever actually backs an
// arena's bytes: a heap-allocated slice, a virtual-memory mapping, a
// file-mapped region, or (in tests) nothing at all.
//
// [github.com/latticeforge/corekit/pkg/arena/provider] supplies concrete
// implementations. Defaults are no-ops: a manager that never defragments
// need not do anything in BeginDefragment/EndDefragment, and one that never
// relocates a live allocation across arenas need not do anything beyond
// copying bytes in MoveMemory.
type MemoryManager[S constraints.Unsigned] interface {
	// AddArena requests backing storage for a new arena of at least size
	// bytes. The returned slice's length is the arena's actual capacity,
	// which may be larger than requested.
	AddArena(size S) ([]byte, error)

	// DropArena is consulted before an empty arena is torn down, so the
	// manager can veto removal (for instance, to keep a minimum pool
	// resident). Returning false keeps the arena registered but empty.
	DropArena(arena ArenaHandle, backing []byte) bool

	// RemoveArena releases backing storage for an arena that DropArena
	// already authorized.
	RemoveArena(arena ArenaHandle, backing []byte) error

	// BeginDefragment/EndDefragment bracket a defragmentation pass across
	// every arena the allocator is about to slide blocks within.
	BeginDefragment()
	EndDefragment()

	// MoveMemory copies size bytes from srcOffset within srcBacking to
	// dstOffset within dstBacking, where srcBacking/dstBacking are the
	// slices srcArena/dstArena were registered with (the same slices
	// AddArena returned). Cross-arena defragmentation is not implemented
	// by [Allocator.Defragment] (see SPEC_FULL.md), so in practice srcArena
	// always equals dstArena and srcBacking/dstBacking are the same
	// slice; the arena handles and split backing parameters are still
	// part of the interface because spec.md describes MoveMemory
	// generally and a custom manager may call it from its own code, or
	// need the handles for its own bookkeeping (e.g. msync'ing a file
	// mapping).
	MoveMemory(srcArena, dstArena ArenaHandle, srcBacking, dstBacking []byte, srcOffset, dstOffset, size S)

	// RebindAlloc is called after a live allocation has been relocated by
	// a defragmentation pass, so the manager can update any external
	// bookkeeping keyed by handle and offset.
	RebindAlloc(alloc AllocHandle, newOffset S)
}

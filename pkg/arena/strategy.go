//go:build go1.22

package arena

import (
	"golang.org/x/exp/constraints"

	"github.com/latticeforge/corekit/pkg/opt"
)

// BlockBank is the concrete block bank a [Strategy] operates on.
type BlockBank[S constraints.Unsigned] = Bank[Block[S]]

// Cursor is a candidate location a [Strategy] found for a pending
// allocation: an existing free block, and that block's current size (so the
// caller can compute the leftover remainder once the allocation is
// committed against it).
type Cursor[S constraints.Unsigned] struct {
	Block BlockID
	Size  S
}

// Strategy is the placement policy an [Allocator] delegates free-space
// bookkeeping to. Implementations live in
// [github.com/latticeforge/corekit/pkg/arena/strategy]; this interface is
// declared here, rather than there, purely to break the import cycle that
// would otherwise result from strategies operating on the allocator's own
// Bank/Block/BlockID types.
type Strategy[S constraints.Unsigned] interface {
	// TryAllocate searches for a free block able to satisfy size, without
	// committing to it.
	TryAllocate(bank *BlockBank[S], size S) opt.Option[Cursor[S]]

	// Commit removes the free block named by cur from the free structure
	// and returns its BlockID, having already accounted for any leftover
	// remainder (the caller is responsible for turning that remainder
	// back into a free block via AddFree, since only it knows the new
	// block's Offset).
	Commit(bank *BlockBank[S], size S, cur Cursor[S]) BlockID

	// AddFreeArena registers block as the sole free span of a
	// freshly-added, previously-untracked arena.
	AddFreeArena(bank *BlockBank[S], block BlockID)

	// AddFree inserts block, already marked Free, into the free
	// structure.
	AddFree(bank *BlockBank[S], block BlockID)

	// GrowFreeNode grows an already-tracked free block in place, for the
	// case where deallocating a neighbor coalesces into it.
	GrowFreeNode(bank *BlockBank[S], block BlockID, newSize S)

	// ReplaceAndGrow replaces old with new in the free structure, with
	// new's size already grown to newSize; used when coalescing requires
	// the block's bank slot to change (the old slot being erased).
	ReplaceAndGrow(bank *BlockBank[S], old, new BlockID, newSize S)

	// Erase removes block from the free structure, for instance when it
	// is fully consumed by coalescing into a neighbor.
	Erase(bank *BlockBank[S], block BlockID)

	// TotalFreeNodes returns the number of free blocks currently tracked.
	TotalFreeNodes(bank *BlockBank[S]) uint32

	// TotalFreeSize returns the sum of every tracked free block's size.
	TotalFreeSize(bank *BlockBank[S]) S

	// ValidateIntegrity checks the strategy's internal invariants (tree
	// ordering, free-list consistency, bucket membership) against bank
	// and returns a descriptive error on the first violation found.
	ValidateIntegrity(bank *BlockBank[S]) error
}

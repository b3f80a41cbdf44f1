//go:build go1.22

package arena

import "golang.org/x/exp/constraints"

// Flags is a bitset attached to a single allocation request or, once
// committed, to the [Block] it produced.
type Flags uint32

const (
	// FlagDefrag marks a block as eligible to be slid down within its
	// arena by [Allocator.Defragment]. Blocks without this flag are
	// pinned in place.
	FlagDefrag Flags = 1 << iota

	// FlagDedicatedArena requests that the allocation be satisfied by a
	// freshly added arena sized exactly to the request, rather than by
	// searching existing arenas.
	FlagDedicatedArena
)

// Has reports whether every bit set in want is also set in f.
func (f Flags) Has(want Flags) bool { return f&want == want }

// Block describes one physically contiguous region within an arena: either
// a live allocation or a free span tracked by a placement strategy.
//
// The TreeParent/TreeLeft/TreeRight/TreeRed/FreeLink/BucketNext fields are
// the closest Go gets to spec's strategy-specific "extension" storage
// living inside the block record. Go has no union type, so they are plain
// fields instead of an overlapping one; which ones are meaningful is
// determined entirely by which [github.com/latticeforge/corekit/pkg/arena/strategy]
// implementation the owning [Allocator] was constructed with, not by a
// runtime tag on the block itself. Code outside pkg/arena/strategy must
// never read or write them.
type Block[S constraints.Unsigned] struct {
	Owner      ArenaHandle
	Offset     S
	Length     S
	UserHandle uint64
	Flags      Flags
	Free       bool

	// Order threads this block into its owning arena's physical
	// (offset-ascending) block list.
	Order Link[BlockID]

	// TreeParent, TreeLeft, TreeRight, TreeRed are used exclusively by
	// strategy.BestFitTree.
	TreeParent, TreeLeft, TreeRight BlockID
	TreeRed                         bool

	// FreeLink is used by strategy.Greedy (linked mode) and by
	// strategy.Slotted (BucketList shape).
	FreeLink Link[BlockID]

	// BucketNext is not read or written by any strategy in
	// pkg/arena/strategy.
	BucketNext BlockID
}

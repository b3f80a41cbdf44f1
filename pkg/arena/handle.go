//go:build go1.22

package arena

import "github.com/latticeforge/corekit/internal/debug"

// handleIndexBits is the width of a [Handle]'s dense index field. The
// remaining high bits carry a debug-only generation counter.
const handleIndexBits = 24

const handleIndexMask = 1<<handleIndexBits - 1

// Handle packs a dense bank index into its low 24 bits and a generation
// counter into its high 8 bits. The all-zero Handle is reserved to mean
// "null" and is never issued to a real entry.
//
// The generation counter is only meaningful in builds compiled with the
// `debug` tag (see [github.com/latticeforge/corekit/internal/debug]); in
// release builds it is always zero and [Handle.Generation] is never
// consulted, so a stale handle silently aliases whatever now occupies its
// slot instead of being caught.
type Handle uint32

// NullHandle is the reserved zero value meaning "no handle".
const NullHandle Handle = 0

func makeHandle(index uint32, generation uint8) Handle {
	debug.Assert(index != 0, "handle index 0 is reserved for NullHandle")
	debug.Assert(index <= handleIndexMask, "handle index %d overflows %d bits", index, handleIndexBits)

	h := Handle(index & handleIndexMask)
	if debug.Enabled {
		h |= Handle(generation) << handleIndexBits
	}

	return h
}

// Index returns the dense bank index this handle refers to.
func (h Handle) Index() uint32 { return uint32(h) & handleIndexMask }

// Generation returns the debug-only generation counter. Always zero in
// release builds.
func (h Handle) Generation() uint8 { return uint8(uint32(h) >> handleIndexBits) }

// IsNull reports whether h is the reserved null handle.
func (h Handle) IsNull() bool { return h == NullHandle }

// ArenaHandle identifies an arena registered with an [Allocator].
type ArenaHandle Handle

// IsNull reports whether h is the reserved null handle.
func (h ArenaHandle) IsNull() bool { return Handle(h).IsNull() }

// AllocHandle identifies a single live allocation made by an [Allocator].
type AllocHandle Handle

// IsNull reports whether h is the reserved null handle.
func (h AllocHandle) IsNull() bool { return Handle(h).IsNull() }

// BlockID is the raw dense index of a block within the allocator's block
// bank, without the generation bits a [Handle] carries. Placement
// strategies operate on BlockID directly since they already hold a
// reference into the bank and do not need to validate staleness.
type BlockID uint32

// NullBlock is the reserved zero value meaning "no block".
const NullBlock BlockID = 0

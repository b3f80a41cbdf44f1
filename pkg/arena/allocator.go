//go:build go1.22

// Package arena implements a coalescing, defragmenting arena allocator.
// Placement decisions (where a request is satisfied from, how a freed block
// is filed back away) are delegated to a pluggable
// [github.com/latticeforge/corekit/pkg/arena/strategy] implementation;
// where the arena's bytes actually live is delegated to a pluggable
// [MemoryManager], typically one from
// [github.com/latticeforge/corekit/pkg/arena/provider].
package arena

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/latticeforge/corekit/internal/debug"
)

// arenaEntry is the allocator's own bookkeeping record for one registered
// arena: its backing storage and the offset-ordered list of every block
// (free or allocated) physically within it.
type arenaEntry[S constraints.Unsigned] struct {
	Backing []byte
	Size    S
	Blocks  List[BlockID]
	Order   Link[ArenaHandle]
}

// Desc describes a single allocation request.
type Desc[S constraints.Unsigned] struct {
	Size S

	// Align, if greater than one, requires the returned Offset to be a
	// multiple of it. Any padding this introduces is attached to the
	// allocated block as leading slack rather than tracked as its own
	// free span.
	Align S

	UserHandle uint64
	Flags      Flags
}

// Result is what [Allocator.Allocate] returns for a successful request.
type Result[S constraints.Unsigned] struct {
	Arena  ArenaHandle
	Offset S
	Alloc  AllocHandle
}

// Allocator places and reclaims fixed-size regions ("blocks") across a
// growing set of arenas, using a [Strategy] to pick where a request lands
// and a [MemoryManager] to actually obtain and relocate bytes.
//
// An Allocator is not safe for concurrent use; callers needing concurrent
// access must synchronize externally (see
// [github.com/latticeforge/corekit/internal/xsync.Spinlock] for a cheap
// option at small contention).
type Allocator[S constraints.Unsigned] struct {
	cfg      Config[S]
	manager  MemoryManager[S]
	strategy Strategy[S]

	arenas    *Bank[arenaEntry[S]]
	arenaList List[ArenaHandle]

	blocks *Bank[Block[S]]

	stats Stats
}

// NewAllocator creates an Allocator with no arenas registered yet; the
// first Allocate call will add one via manager.AddArena.
func NewAllocator[S constraints.Unsigned](cfg Config[S], manager MemoryManager[S], strategy Strategy[S]) *Allocator[S] {
	cfg.setDefaults()

	return &Allocator[S]{
		cfg:       cfg,
		manager:   manager,
		strategy:  strategy,
		arenas:    NewBank[arenaEntry[S]](0),
		arenaList: NewList[ArenaHandle](ArenaHandle(NullHandle)),
		blocks:    NewBank[Block[S]](cfg.PageSize),
	}
}

func (a *Allocator[S]) orderLink() func(BlockID) *Link[BlockID] {
	return func(id BlockID) *Link[BlockID] { return &a.blocks.At(uint32(id)).Order }
}

func (a *Allocator[S]) arenaOrderLink() func(ArenaHandle) *Link[ArenaHandle] {
	return func(h ArenaHandle) *Link[ArenaHandle] { return &a.arenas.At(uint32(h)).Order }
}

// roundUp rounds v up to the next multiple of granularity. A zero v still
// rounds up to one granule: there is no such thing as a zero-size request.
func roundUp[S constraints.Unsigned](v, granularity S) S {
	if granularity == 0 || v == 0 {
		return granularity
	}
	return (v + granularity - 1) / granularity * granularity
}

// alignUp rounds v up to the next multiple of align, leaving v==0 at 0
// (the address 0 is aligned to anything). align<=1 is a no-op.
func alignUp[S constraints.Unsigned](v, align S) S {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}

// Allocate places desc somewhere able to hold it, adding a new arena via
// the [MemoryManager] if no existing one has room.
func (a *Allocator[S]) Allocate(desc Desc[S]) (Result[S], error) {
	size := roundUp(desc.Size, a.cfg.Granularity)
	align := desc.Align
	if align == 0 {
		align = 1
	}

	if desc.Flags.Has(FlagDedicatedArena) {
		return a.allocateDedicated(desc, size)
	}

	// Worst-case padding a future aligned offset within the chosen block
	// could need, so the strategy never hands back a block too small to
	// actually satisfy the aligned request.
	search := size
	if align > 1 {
		search = size + align - 1
	}

	cur := a.strategy.TryAllocate(a.blocks, search)
	if cur.IsNone() {
		if err := a.growByArena(search); err != nil {
			return Result[S]{}, err
		}
		cur = a.strategy.TryAllocate(a.blocks, search)
		if cur.IsNone() {
			return Result[S]{}, ErrOutOfMemory
		}
	}

	return a.commit(desc, size, align, cur.Unwrap())
}

// growByArena asks the manager for a new arena at least minSize bytes (or
// Config.DefaultArenaSize, whichever is larger) and registers it as one
// untouched free block.
func (a *Allocator[S]) growByArena(minSize S) error {
	size := minSize
	if a.cfg.DefaultArenaSize > size {
		size = a.cfg.DefaultArenaSize
	}

	backing, err := a.manager.AddArena(size)
	if err != nil {
		return err
	}

	idx, _ := a.arenas.Insert(arenaEntry[S]{Backing: backing, Size: S(len(backing))})
	handle := ArenaHandle(idx)
	a.arenaList.PushBack(handle, a.arenaOrderLink())

	blockIdx, _ := a.blocks.Insert(Block[S]{Owner: handle, Offset: 0, Length: S(len(backing)), Free: true})
	blockID := BlockID(blockIdx)
	a.arenas.At(uint32(handle)).Blocks.PushBack(blockID, a.orderLink())
	a.strategy.AddFreeArena(a.blocks, blockID)

	a.stats.ArenasAdded++
	debug.Log(nil, "grow", "arena %d size=%v", handle, S(len(backing)))

	return nil
}

// allocateDedicated satisfies desc with a freshly added arena sized exactly
// to the request, bypassing the strategy's search entirely.
func (a *Allocator[S]) allocateDedicated(desc Desc[S], size S) (Result[S], error) {
	backing, err := a.manager.AddArena(size)
	if err != nil {
		return Result[S]{}, err
	}

	idx, _ := a.arenas.Insert(arenaEntry[S]{Backing: backing, Size: S(len(backing))})
	handle := ArenaHandle(idx)
	a.arenaList.PushBack(handle, a.arenaOrderLink())

	blockIdx, _ := a.blocks.Insert(Block[S]{
		Owner:      handle,
		Offset:     0,
		Length:     size,
		Free:       false,
		UserHandle: desc.UserHandle,
		Flags:      desc.Flags,
	})
	blockID := BlockID(blockIdx)
	entry := a.arenas.At(uint32(handle))
	entry.Blocks.PushBack(blockID, a.orderLink())

	if remainder := S(len(backing)) - size; remainder > 0 {
		leftoverIdx, _ := a.blocks.Insert(Block[S]{Owner: handle, Offset: size, Length: remainder, Free: true})
		leftoverID := BlockID(leftoverIdx)
		entry.Blocks.InsertAfter(blockID, leftoverID, a.orderLink())
		a.strategy.AddFreeArena(a.blocks, leftoverID)
	}

	a.stats.ArenasAdded++
	a.stats.Allocations++

	gen := a.blocks.GenerationAt(uint32(blockID))
	return Result[S]{Arena: handle, Offset: 0, Alloc: AllocHandle(makeHandle(uint32(blockID), gen))}, nil
}

// commit finalizes cur as desc's block: it removes cur from the strategy's
// free structure, splits off any remainder large enough to track on its
// own, and marks the surviving block live.
func (a *Allocator[S]) commit(desc Desc[S], size, align S, cur Cursor[S]) (Result[S], error) {
	blockID := a.strategy.Commit(a.blocks, size, cur)
	block := a.blocks.At(uint32(blockID))

	owner := block.Owner
	rawOffset := block.Offset
	total := block.Length

	usable := alignUp(rawOffset, align)
	padding := usable - rawOffset
	remainder := total - padding - size

	block.Free = false
	block.UserHandle = desc.UserHandle
	block.Flags = desc.Flags

	if remainder == 0 || remainder < a.cfg.MinGranularity {
		// Too small to track on its own; absorb it as slack into this
		// allocation instead of splitting it off.
		block.Length = padding + size + remainder
	} else {
		block.Length = padding + size

		entry := a.arenas.At(uint32(owner))
		leftoverIdx, _ := a.blocks.Insert(Block[S]{
			Owner:  owner,
			Offset: usable + size,
			Length: remainder,
			Free:   true,
		})
		leftoverID := BlockID(leftoverIdx)
		entry.Blocks.InsertAfter(blockID, leftoverID, a.orderLink())
		a.strategy.AddFree(a.blocks, leftoverID)
		debug.Log(nil, "split", "block %d: leftover %d offset=%v size=%v", blockID, leftoverID, usable+size, remainder)
	}

	a.stats.Allocations++
	debug.Log(nil, "alloc", "block %d arena=%d offset=%v size=%v", blockID, owner, usable, size)

	gen := a.blocks.GenerationAt(uint32(blockID))
	return Result[S]{
		Arena:  owner,
		Offset: usable,
		Alloc:  AllocHandle(makeHandle(uint32(blockID), gen)),
	}, nil
}

// Deallocate frees the block named by h, coalescing it with an immediate
// free left and/or right neighbor in the same arena, and reports true on
// success. Every false return carries an error: [ErrInvalidHandle] when h
// does not index a live block, [ErrStaleHandle] (debug builds only) when
// h's generation does not match its slot, and [ErrDoubleFree] when the
// block is already marked free.
func (a *Allocator[S]) Deallocate(h AllocHandle) (bool, error) {
	idx := Handle(h).Index()
	if idx == 0 || !a.blocks.IsAlive(idx) {
		return false, ErrInvalidHandle
	}
	if debug.Enabled && a.blocks.GenerationAt(idx) != Handle(h).Generation() {
		return false, ErrStaleHandle
	}

	block := a.blocks.At(idx)
	if block.Free {
		return false, ErrDoubleFree
	}

	owner := block.Owner
	entry := a.arenas.At(uint32(owner))
	link := a.orderLink()

	survivor := BlockID(idx)
	length := block.Length
	tracked := false // whether survivor is already registered with the strategy

	if left := link(survivor).Prev; left != NullBlock && a.blocks.At(uint32(left)).Free {
		length += a.blocks.At(uint32(left)).Length
		entry.Blocks.Erase2(survivor, link)
		a.blocks.Erase(uint32(survivor))
		debug.Log(nil, "coalesce", "block %d absorbed into left neighbor %d, size=%v", survivor, left, length)
		survivor = left
		a.strategy.GrowFreeNode(a.blocks, survivor, length)
		tracked = true
	}

	if right := link(survivor).Next; right != NullBlock && a.blocks.At(uint32(right)).Free {
		length += a.blocks.At(uint32(right)).Length
		a.strategy.Erase(a.blocks, right)
		entry.Blocks.Erase2(right, link)
		a.blocks.Erase(uint32(right))
		debug.Log(nil, "coalesce", "block %d absorbed right neighbor %d, size=%v", survivor, right, length)

		if tracked {
			a.strategy.GrowFreeNode(a.blocks, survivor, length)
		} else {
			a.blocks.At(uint32(survivor)).Length = length
			a.blocks.At(uint32(survivor)).Free = true
			a.strategy.AddFree(a.blocks, survivor)
			tracked = true
		}
	}

	if !tracked {
		a.blocks.At(uint32(survivor)).Length = length
		a.blocks.At(uint32(survivor)).Free = true
		a.strategy.AddFree(a.blocks, survivor)
	}

	a.stats.Deallocations++
	a.maybeRemoveEmptyArena(owner, entry)

	return true, nil
}

// maybeRemoveEmptyArena tears down owner if its only remaining block is one
// free span covering the whole arena and the manager authorizes it.
func (a *Allocator[S]) maybeRemoveEmptyArena(owner ArenaHandle, entry *arenaEntry[S]) {
	if entry.Blocks.Empty() {
		return
	}
	sole := entry.Blocks.Front()
	if sole != entry.Blocks.Back() {
		return
	}
	if !a.blocks.At(uint32(sole)).Free {
		return
	}
	if !a.manager.DropArena(owner, entry.Backing) {
		return
	}

	a.strategy.Erase(a.blocks, sole)
	a.blocks.Erase(uint32(sole))
	entry.Blocks.Clear()

	backing := entry.Backing
	if err := a.manager.RemoveArena(owner, backing); err != nil {
		return
	}

	a.arenaList.Erase(owner, a.arenaOrderLink())
	a.arenas.Erase(uint32(owner))
	a.stats.ArenasRemoved++
}

// Defragment slides every FlagDefrag-eligible allocated block in each arena
// down to close gaps left by free blocks, without moving blocks across
// arenas and without moving any block lacking FlagDefrag (such a block
// instead pins the compaction at its current offset). It returns the
// number of blocks actually relocated.
func (a *Allocator[S]) Defragment() (int, error) {
	moves := 0

	a.manager.BeginDefragment()
	defer a.manager.EndDefragment()

	link := a.orderLink()
	arenaLink := a.arenaOrderLink()

	type survivor struct {
		id     BlockID
		pinned bool
		offset S
		length S
	}
	type gap struct{ offset, length S }

	for ah := a.arenaList.Front(); ah != ArenaHandle(NullHandle); ah = arenaLink(ah).Next {
		entry := a.arenas.At(uint32(ah))

		var survivors []survivor
		var freeIDs []BlockID

		for id := entry.Blocks.Front(); id != NullBlock; id = link(id).Next {
			b := a.blocks.At(uint32(id))
			if b.Free {
				freeIDs = append(freeIDs, id)
				continue
			}
			survivors = append(survivors, survivor{
				id:     id,
				pinned: !b.Flags.Has(FlagDefrag),
				offset: b.Offset,
				length: b.Length,
			})
		}

		for _, id := range freeIDs {
			a.strategy.Erase(a.blocks, id)
			a.blocks.Erase(uint32(id))
		}
		entry.Blocks.Clear()

		var cursor S
		var gaps []gap

		for _, s := range survivors {
			if s.pinned {
				if cursor < s.offset {
					gaps = append(gaps, gap{cursor, s.offset - cursor})
				}
				cursor = s.offset + s.length
				continue
			}

			if s.offset != cursor {
				a.manager.MoveMemory(ah, ah, entry.Backing, entry.Backing, s.offset, cursor, s.length)
				gen := a.blocks.GenerationAt(uint32(s.id))
				a.manager.RebindAlloc(AllocHandle(makeHandle(uint32(s.id), gen)), cursor)
				a.blocks.At(uint32(s.id)).Offset = cursor
				debug.Log(nil, "defrag-move", "block %d arena=%d %v -> %v, size=%v", s.id, ah, s.offset, cursor, s.length)
				moves++
			}
			cursor += s.length
		}

		if cursor < entry.Size {
			gaps = append(gaps, gap{cursor, entry.Size - cursor})
		}

		// Rebuild the physical order list: survivors in their original
		// relative order (pinned blocks never move; defraggable blocks
		// only slide down, so relative order is preserved), with one
		// fresh free block inserted at each gap identified above.
		gi := 0
		for _, s := range survivors {
			for gi < len(gaps) && gaps[gi].offset < a.blocks.At(uint32(s.id)).Offset {
				a.insertFreeGap(entry, ah, gaps[gi])
				gi++
			}
			entry.Blocks.PushBack(s.id, link)
		}
		for ; gi < len(gaps); gi++ {
			a.insertFreeGap(entry, ah, gaps[gi])
		}
	}

	a.stats.DefragMoves += uint64(moves)

	return moves, nil
}

func (a *Allocator[S]) insertFreeGap(entry *arenaEntry[S], owner ArenaHandle, g struct{ offset, length S }) {
	idx, _ := a.blocks.Insert(Block[S]{Owner: owner, Offset: g.offset, Length: g.length, Free: true})
	id := BlockID(idx)
	entry.Blocks.PushBack(id, a.orderLink())
	a.strategy.AddFreeArena(a.blocks, id)
}

// ValidateIntegrity checks the strategy's internal invariants plus basic
// cross-checks between the block bank and each arena's physical order
// list, returning a descriptive error on the first violation found.
func (a *Allocator[S]) ValidateIntegrity() error {
	if err := a.strategy.ValidateIntegrity(a.blocks); err != nil {
		return err
	}

	link := a.orderLink()
	var err error
	a.arenas.Range(func(idx uint32, entry *arenaEntry[S]) bool {
		var cursor S
		for id := entry.Blocks.Front(); id != NullBlock; id = link(id).Next {
			b := a.blocks.At(uint32(id))
			if b.Owner != ArenaHandle(idx) {
				err = fmt.Errorf("arena: block %d claims owner %d but is listed under arena %d", id, b.Owner, idx)
				return false
			}
			if b.Offset != cursor {
				err = fmt.Errorf("arena: block %d at offset %v, expected %v", id, b.Offset, cursor)
				return false
			}
			cursor += b.Length
		}
		if cursor != entry.Size {
			err = fmt.Errorf("arena %d: blocks cover %v bytes, arena is %v", idx, cursor, entry.Size)
			return false
		}
		return true
	})

	return err
}

// Stats returns the allocator's lifetime operation counts, or the zero
// value if Config.Stats is StatsNone.
func (a *Allocator[S]) Stats() Stats {
	if a.cfg.Stats == StatsNone {
		return Stats{}
	}
	return a.stats
}

// ArenaBacking returns the backing slice registered for arena h, the same
// slice its [MemoryManager.AddArena] call returned.
func (a *Allocator[S]) ArenaBacking(h ArenaHandle) []byte {
	return a.arenas.At(uint32(h)).Backing
}

//go:build go1.22

// Package strategy implements the placement policies an
// [github.com/latticeforge/corekit/pkg/arena.Allocator] delegates free-space
// bookkeeping to: where to find a free block big enough for a request, and
// how to file one back away once a block is deallocated.
package strategy

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/latticeforge/corekit/pkg/arena"
	"github.com/latticeforge/corekit/pkg/opt"
)

// Greedy is a first-fit strategy: it walks its free blocks in whatever
// order they were added and returns the first one large enough.
//
// With Linked set, free blocks are threaded directly through the bank's own
// [arena.Block.FreeLink] field (spec's greedy_v1 — no extra storage, O(1)
// add/erase, O(n) scan). Without it, free blocks are tracked in an
// unsorted slice of (size, block) pairs with a pool-backed free list for
// slice slots (spec's greedy_v0 — an extra indirection, but a scan that
// only touches cache-dense slice memory instead of following bank pointers).
type Greedy[S constraints.Unsigned] struct {
	Linked bool

	list    arena.List[arena.BlockID]
	entries []greedyEntry[S]
	freeIdx []uint32 // free slice slots, unused when Linked
}

type greedyEntry[S constraints.Unsigned] struct {
	block S
	id    arena.BlockID
	alive bool
}

var nullBlockID = arena.NullBlock

func linkOf[S constraints.Unsigned](bank *arena.BlockBank[S]) func(arena.BlockID) *arena.Link[arena.BlockID] {
	return func(id arena.BlockID) *arena.Link[arena.BlockID] {
		return &bank.At(uint32(id)).FreeLink
	}
}

// TryAllocate returns the first tracked free block at least size bytes.
func (g *Greedy[S]) TryAllocate(bank *arena.BlockBank[S], size S) opt.Option[arena.Cursor[S]] {
	if g.Linked {
		link := linkOf(bank)
		for id := g.list.Front(); id != nullBlockID; id = link(id).Next {
			b := bank.At(uint32(id))
			if b.Length >= size {
				return opt.Some(arena.Cursor[S]{Block: id, Size: b.Length})
			}
		}
		return opt.None[arena.Cursor[S]]()
	}

	for i := range g.entries {
		e := &g.entries[i]
		if e.alive && e.block >= size {
			return opt.Some(arena.Cursor[S]{Block: e.id, Size: e.block})
		}
	}
	return opt.None[arena.Cursor[S]]()
}

// Commit removes the chosen block from tracking and returns it.
func (g *Greedy[S]) Commit(bank *arena.BlockBank[S], _ S, cur arena.Cursor[S]) arena.BlockID {
	g.Erase(bank, cur.Block)
	return cur.Block
}

// AddFreeArena registers block as a fresh arena's sole free span.
func (g *Greedy[S]) AddFreeArena(bank *arena.BlockBank[S], block arena.BlockID) {
	g.AddFree(bank, block)
}

// AddFree begins tracking block as free.
func (g *Greedy[S]) AddFree(bank *arena.BlockBank[S], block arena.BlockID) {
	if g.Linked {
		g.list.PushBack(block, linkOf(bank))
		return
	}

	size := bank.At(uint32(block)).Length
	if n := len(g.freeIdx); n > 0 {
		i := g.freeIdx[n-1]
		g.freeIdx = g.freeIdx[:n-1]
		g.entries[i] = greedyEntry[S]{block: size, id: block, alive: true}
		return
	}

	g.entries = append(g.entries, greedyEntry[S]{block: size, id: block, alive: true})
}

// GrowFreeNode updates a tracked block's recorded size after a neighbor
// coalesced into it.
func (g *Greedy[S]) GrowFreeNode(bank *arena.BlockBank[S], block arena.BlockID, newSize S) {
	if !g.Linked {
		for i := range g.entries {
			if g.entries[i].alive && g.entries[i].id == block {
				g.entries[i].block = newSize
				break
			}
		}
	}

	bank.At(uint32(block)).Length = newSize
}

// ReplaceAndGrow swaps old for new in the tracking structure, with new
// already sized to newSize.
func (g *Greedy[S]) ReplaceAndGrow(bank *arena.BlockBank[S], old, newID arena.BlockID, newSize S) {
	g.Erase(bank, old)
	_ = newSize
	g.AddFree(bank, newID)
}

// Erase stops tracking block as free.
func (g *Greedy[S]) Erase(bank *arena.BlockBank[S], block arena.BlockID) {
	if g.Linked {
		g.list.Erase(block, linkOf(bank))
		return
	}

	for i := range g.entries {
		if g.entries[i].alive && g.entries[i].id == block {
			g.entries[i].alive = false
			g.freeIdx = append(g.freeIdx, uint32(i))
			return
		}
	}
}

// TotalFreeNodes returns the number of tracked free blocks.
func (g *Greedy[S]) TotalFreeNodes(bank *arena.BlockBank[S]) uint32 {
	if g.Linked {
		var n uint32
		link := linkOf(bank)
		for id := g.list.Front(); id != nullBlockID; id = link(id).Next {
			n++
		}
		return n
	}

	var n uint32
	for _, e := range g.entries {
		if e.alive {
			n++
		}
	}
	return n
}

// TotalFreeSize returns the sum of every tracked free block's size.
func (g *Greedy[S]) TotalFreeSize(bank *arena.BlockBank[S]) S {
	var total S
	if g.Linked {
		link := linkOf(bank)
		for id := g.list.Front(); id != nullBlockID; id = link(id).Next {
			total += bank.At(uint32(id)).Length
		}
		return total
	}

	for _, e := range g.entries {
		if e.alive {
			total += e.block
		}
	}
	return total
}

// ValidateIntegrity checks that every tracked entry still refers to a live,
// free block of the recorded size.
func (g *Greedy[S]) ValidateIntegrity(bank *arena.BlockBank[S]) error {
	check := func(id arena.BlockID, recorded S) error {
		if !bank.IsAlive(uint32(id)) {
			return fmt.Errorf("strategy: free block %d is not alive", id)
		}
		b := bank.At(uint32(id))
		if !b.Free {
			return fmt.Errorf("strategy: block %d tracked as free but Block.Free is false", id)
		}
		if b.Length != recorded {
			return fmt.Errorf("strategy: block %d size mismatch: tracked %v, actual %v", id, recorded, b.Length)
		}
		return nil
	}

	if g.Linked {
		link := linkOf(bank)
		for id := g.list.Front(); id != nullBlockID; id = link(id).Next {
			if err := check(id, bank.At(uint32(id)).Length); err != nil {
				return err
			}
		}
		return nil
	}

	for _, e := range g.entries {
		if e.alive {
			if err := check(e.id, e.block); err != nil {
				return err
			}
		}
	}
	return nil
}

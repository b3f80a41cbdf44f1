//go:build go1.22

package strategy

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/latticeforge/corekit/pkg/arena"
	"github.com/latticeforge/corekit/pkg/opt"
)

// BucketShape selects the storage each of [Slotted]'s size-class buckets
// uses.
type BucketShape int

const (
	// BucketArray caps each bucket at a fixed number of entries
	// (MaxPerSlot), spilling overflow to the fallback strategy.
	BucketArray BucketShape = iota
	// BucketList threads each bucket through Block.FreeLink with no cap.
	BucketList
)

// Slotted buckets free blocks by size class (size / Granularity, capped at
// the last bucket), trading exactness for a short lookup: a request is
// satisfied from the first bucket at or above its size class that holds a
// block at least as large as the request, taking the first such block found
// in that bucket rather than the tightest fit.
//
// Requests whose size class exceeds MaxBucket, and (with BucketArray)
// buckets that have overflowed MaxPerSlot entries, fall back to a secondary
// [arena.Strategy] — by convention a [BestFitTree] — consulted for both the
// search and the bookkeeping.
type Slotted[S constraints.Unsigned] struct {
	Granularity S
	MaxBucket   int
	Shape       BucketShape
	MaxPerSlot  int // only meaningful with BucketArray

	Fallback arena.Strategy[S]

	buckets []bucket[S]
}

type bucket[S constraints.Unsigned] struct {
	list  arena.List[arena.BlockID] // BucketList
	array []arena.BlockID           // BucketArray
}

func (s *Slotted[S]) ensure() {
	if s.buckets == nil {
		s.buckets = make([]bucket[S], s.MaxBucket+1)
	}
}

func (s *Slotted[S]) classOf(size S) int {
	c := int(size / s.Granularity)
	if c > s.MaxBucket {
		return -1
	}
	return c
}

func bucketLinkOf[S constraints.Unsigned](bank *arena.BlockBank[S]) func(arena.BlockID) *arena.Link[arena.BlockID] {
	return func(id arena.BlockID) *arena.Link[arena.BlockID] {
		return &bank.At(uint32(id)).FreeLink
	}
}

func (s *Slotted[S]) removeFromArray(b *bucket[S], id arena.BlockID) bool {
	for i, v := range b.array {
		if v == id {
			b.array = append(b.array[:i], b.array[i+1:]...)
			return true
		}
	}
	return false
}

// TryAllocate returns a free block at least size bytes from the first
// bucket at or above size's size class that holds one, or defers to
// Fallback when no bucket does or size's class is above MaxBucket.
func (s *Slotted[S]) TryAllocate(bank *arena.BlockBank[S], size S) opt.Option[arena.Cursor[S]] {
	s.ensure()

	class := s.classOf(size)
	if class < 0 {
		return s.Fallback.TryAllocate(bank, size)
	}

	for c := class; c <= s.MaxBucket; c++ {
		b := &s.buckets[c]
		if s.Shape == BucketList {
			link := bucketLinkOf(bank)
			for id := b.list.Front(); id != nullBlockID; id = link(id).Next {
				if l := bank.At(uint32(id)).Length; l >= size {
					return opt.Some(arena.Cursor[S]{Block: id, Size: l})
				}
			}
			continue
		}
		for i := len(b.array) - 1; i >= 0; i-- {
			id := b.array[i]
			if l := bank.At(uint32(id)).Length; l >= size {
				return opt.Some(arena.Cursor[S]{Block: id, Size: l})
			}
		}
	}

	return s.Fallback.TryAllocate(bank, size)
}

// Commit removes the chosen block from whichever structure is tracking it.
func (s *Slotted[S]) Commit(bank *arena.BlockBank[S], size S, cur arena.Cursor[S]) arena.BlockID {
	s.Erase(bank, cur.Block)
	return cur.Block
}

// AddFreeArena registers block as a fresh arena's sole free span.
func (s *Slotted[S]) AddFreeArena(bank *arena.BlockBank[S], block arena.BlockID) {
	s.AddFree(bank, block)
}

// AddFree buckets block by its current size, spilling to Fallback when the
// bucket is full (BucketArray) or the size class is out of range.
func (s *Slotted[S]) AddFree(bank *arena.BlockBank[S], block arena.BlockID) {
	s.ensure()

	size := bank.At(uint32(block)).Length
	class := s.classOf(size)
	if class < 0 {
		s.Fallback.AddFree(bank, block)
		return
	}

	b := &s.buckets[class]
	if s.Shape == BucketList {
		b.list.PushBack(block, bucketLinkOf(bank))
		return
	}

	if len(b.array) >= s.MaxPerSlot {
		s.Fallback.AddFree(bank, block)
		return
	}
	b.array = append(b.array, block)
}

// GrowFreeNode re-buckets block after its size grows.
func (s *Slotted[S]) GrowFreeNode(bank *arena.BlockBank[S], block arena.BlockID, newSize S) {
	s.Erase(bank, block)
	bank.At(uint32(block)).Length = newSize
	s.AddFree(bank, block)
}

// ReplaceAndGrow swaps old for new, with new already sized to newSize.
func (s *Slotted[S]) ReplaceAndGrow(bank *arena.BlockBank[S], old, newID arena.BlockID, newSize S) {
	s.Erase(bank, old)
	_ = newSize
	s.AddFree(bank, newID)
}

// Erase stops tracking block as free, wherever it is currently held.
func (s *Slotted[S]) Erase(bank *arena.BlockBank[S], block arena.BlockID) {
	s.ensure()

	size := bank.At(uint32(block)).Length
	class := s.classOf(size)
	if class < 0 {
		s.Fallback.Erase(bank, block)
		return
	}

	b := &s.buckets[class]
	if s.Shape == BucketList {
		b.list.Erase(block, bucketLinkOf(bank))
		return
	}

	if !s.removeFromArray(b, block) {
		s.Fallback.Erase(bank, block)
	}
}

// TotalFreeNodes returns the number of blocks tracked across every bucket
// plus Fallback.
func (s *Slotted[S]) TotalFreeNodes(bank *arena.BlockBank[S]) uint32 {
	s.ensure()

	n := s.Fallback.TotalFreeNodes(bank)
	for c := range s.buckets {
		b := &s.buckets[c]
		if s.Shape == BucketList {
			link := bucketLinkOf(bank)
			for id := b.list.Front(); id != nullBlockID; id = link(id).Next {
				n++
			}
		} else {
			n += uint32(len(b.array))
		}
	}
	return n
}

// TotalFreeSize returns the sum of every tracked free block's size across
// every bucket plus Fallback.
func (s *Slotted[S]) TotalFreeSize(bank *arena.BlockBank[S]) S {
	s.ensure()

	total := s.Fallback.TotalFreeSize(bank)
	for c := range s.buckets {
		b := &s.buckets[c]
		if s.Shape == BucketList {
			link := bucketLinkOf(bank)
			for id := b.list.Front(); id != nullBlockID; id = link(id).Next {
				total += bank.At(uint32(id)).Length
			}
		} else {
			for _, id := range b.array {
				total += bank.At(uint32(id)).Length
			}
		}
	}
	return total
}

// ValidateIntegrity checks that every bucketed block's size class matches
// the bucket it is held in, every such block is live and free, and
// delegates the same check to Fallback.
func (s *Slotted[S]) ValidateIntegrity(bank *arena.BlockBank[S]) error {
	s.ensure()

	check := func(id arena.BlockID, wantClass int) error {
		if !bank.IsAlive(uint32(id)) {
			return fmt.Errorf("strategy: slotted block %d is not alive", id)
		}
		b := bank.At(uint32(id))
		if !b.Free {
			return fmt.Errorf("strategy: block %d tracked as free but Block.Free is false", id)
		}
		if s.classOf(b.Length) != wantClass {
			return fmt.Errorf("strategy: block %d in bucket %d but its size classifies to %d", id, wantClass, s.classOf(b.Length))
		}
		return nil
	}

	for c := range s.buckets {
		b := &s.buckets[c]
		if s.Shape == BucketList {
			link := bucketLinkOf(bank)
			for id := b.list.Front(); id != nullBlockID; id = link(id).Next {
				if err := check(id, c); err != nil {
					return err
				}
			}
		} else {
			for _, id := range b.array {
				if err := check(id, c); err != nil {
					return err
				}
			}
		}
	}

	return s.Fallback.ValidateIntegrity(bank)
}

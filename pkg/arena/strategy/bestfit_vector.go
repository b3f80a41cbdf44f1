//go:build go1.22

package strategy

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/latticeforge/corekit/pkg/arena"
	"github.com/latticeforge/corekit/pkg/opt"
)

// Variant selects among equivalent binary-search bodies for
// [BestFitVector]. They differ only in loop shape; every variant uses the
// same storage, and none changes observable allocator behavior.
type Variant int

const (
	// VariantMinIter is the textbook lo/hi binary search.
	VariantMinIter Variant = iota
	// VariantUnroll1 halves the range until at most one candidate remains,
	// then finishes with a linear scan.
	VariantUnroll1
	// VariantUnroll2 halves the range until at most two candidates remain,
	// then finishes with a linear scan.
	VariantUnroll2
	// VariantParallelSizes runs the VariantMinIter search over the []S
	// kept alongside the []BlockID (which every variant maintains), so the
	// search only ever touches the size array.
	VariantParallelSizes
)

// BestFitVector tracks free blocks in a slice kept sorted by ascending
// size, and finds the smallest block able to satisfy a request via binary
// search for the lower bound.
type BestFitVector[S constraints.Unsigned] struct {
	Variant Variant

	ids   []arena.BlockID
	sizes []S // parallel to ids; kept filled even off VariantParallelSizes, for simplicity
}

func (v *BestFitVector[S]) lowerBound(size S) int {
	switch v.Variant {
	case VariantUnroll1:
		return v.lowerBoundUnroll(size, 1)
	case VariantUnroll2:
		return v.lowerBoundUnroll(size, 2)
	case VariantParallelSizes:
		return v.lowerBoundParallel(size)
	default:
		return v.lowerBoundMinIter(size)
	}
}

func (v *BestFitVector[S]) lowerBoundMinIter(size S) int {
	lo, hi := 0, len(v.sizes)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if v.sizes[mid] < size {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// lowerBoundUnroll is behaviorally identical to lowerBoundMinIter; it
// halves the range only while more than `peel` candidates remain, then
// finds the lower bound among those last candidates with a linear scan.
// The shape is kept because spec.md describes it as a distinct,
// observably-equivalent search body and the caller selects it via Variant
// regardless.
func (v *BestFitVector[S]) lowerBoundUnroll(size S, peel int) int {
	lo, hi := 0, len(v.sizes)
	for hi-lo > peel {
		mid := int(uint(lo+hi) >> 1)
		if v.sizes[mid] < size {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	for lo < hi && v.sizes[lo] < size {
		lo++
	}
	return lo
}

func (v *BestFitVector[S]) lowerBoundParallel(size S) int {
	return v.lowerBoundMinIter(size)
}

func (v *BestFitVector[S]) insertAt(i int, id arena.BlockID, size S) {
	v.ids = append(v.ids, arena.NullBlock)
	copy(v.ids[i+1:], v.ids[i:])
	v.ids[i] = id

	var zero S
	v.sizes = append(v.sizes, zero)
	copy(v.sizes[i+1:], v.sizes[i:])
	v.sizes[i] = size
}

func (v *BestFitVector[S]) removeAt(i int) {
	v.ids = append(v.ids[:i], v.ids[i+1:]...)
	v.sizes = append(v.sizes[:i], v.sizes[i+1:]...)
}

func (v *BestFitVector[S]) find(id arena.BlockID, size S) int {
	i := v.lowerBoundMinIter(size)
	for i < len(v.ids) && v.sizes[i] == size {
		if v.ids[i] == id {
			return i
		}
		i++
	}
	return -1
}

// TryAllocate returns the smallest tracked free block at least size bytes.
func (v *BestFitVector[S]) TryAllocate(bank *arena.BlockBank[S], size S) opt.Option[arena.Cursor[S]] {
	i := v.lowerBound(size)
	if i >= len(v.ids) {
		return opt.None[arena.Cursor[S]]()
	}
	return opt.Some(arena.Cursor[S]{Block: v.ids[i], Size: v.sizes[i]})
}

// Commit removes the chosen block from tracking and returns it.
func (v *BestFitVector[S]) Commit(bank *arena.BlockBank[S], _ S, cur arena.Cursor[S]) arena.BlockID {
	if i := v.find(cur.Block, cur.Size); i >= 0 {
		v.removeAt(i)
	}
	return cur.Block
}

// AddFreeArena registers block as a fresh arena's sole free span.
func (v *BestFitVector[S]) AddFreeArena(bank *arena.BlockBank[S], block arena.BlockID) {
	v.AddFree(bank, block)
}

// AddFree inserts block into the sorted structure at the position its size
// demands.
func (v *BestFitVector[S]) AddFree(bank *arena.BlockBank[S], block arena.BlockID) {
	size := bank.At(uint32(block)).Length
	v.insertAt(v.lowerBoundMinIter(size), block, size)
}

// GrowFreeNode re-sorts block after its recorded size grows to newSize.
func (v *BestFitVector[S]) GrowFreeNode(bank *arena.BlockBank[S], block arena.BlockID, newSize S) {
	old := bank.At(uint32(block)).Length
	if i := v.find(block, old); i >= 0 {
		v.removeAt(i)
	}
	v.insertAt(v.lowerBoundMinIter(newSize), block, newSize)
	bank.At(uint32(block)).Length = newSize
}

// ReplaceAndGrow swaps old for new, with new already sized to newSize.
func (v *BestFitVector[S]) ReplaceAndGrow(bank *arena.BlockBank[S], old, newID arena.BlockID, newSize S) {
	oldSize := bank.At(uint32(old)).Length
	if i := v.find(old, oldSize); i >= 0 {
		v.removeAt(i)
	}
	v.insertAt(v.lowerBoundMinIter(newSize), newID, newSize)
}

// Erase stops tracking block as free.
func (v *BestFitVector[S]) Erase(bank *arena.BlockBank[S], block arena.BlockID) {
	size := bank.At(uint32(block)).Length
	if i := v.find(block, size); i >= 0 {
		v.removeAt(i)
	}
}

// TotalFreeNodes returns the number of tracked free blocks.
func (v *BestFitVector[S]) TotalFreeNodes(bank *arena.BlockBank[S]) uint32 {
	return uint32(len(v.ids))
}

// TotalFreeSize returns the sum of every tracked free block's size.
func (v *BestFitVector[S]) TotalFreeSize(bank *arena.BlockBank[S]) S {
	var total S
	for _, s := range v.sizes {
		total += s
	}
	return total
}

// ValidateIntegrity checks sort order and that every tracked entry refers
// to a live, free block of the recorded size.
func (v *BestFitVector[S]) ValidateIntegrity(bank *arena.BlockBank[S]) error {
	for i, id := range v.ids {
		if i > 0 && v.sizes[i-1] > v.sizes[i] {
			return fmt.Errorf("strategy: BestFitVector out of order at %d", i)
		}
		if !bank.IsAlive(uint32(id)) {
			return fmt.Errorf("strategy: free block %d is not alive", id)
		}
		b := bank.At(uint32(id))
		if !b.Free {
			return fmt.Errorf("strategy: block %d tracked as free but Block.Free is false", id)
		}
		if b.Length != v.sizes[i] {
			return fmt.Errorf("strategy: block %d size mismatch: tracked %v, actual %v", id, v.sizes[i], b.Length)
		}
	}
	return nil
}

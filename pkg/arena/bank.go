//go:build go1.22

package arena

import "github.com/latticeforge/corekit/internal/debug"

// DefaultPageSize is the page size a [Bank] uses when its owner does not
// specify one. It must be a power of two.
const DefaultPageSize = 256

type slot[T any] struct {
	value      T
	generation uint8
	alive      bool
	nextFree   uint32
}

// Bank is a paged sparse table: entries are addressed by a dense uint32
// index that splits into (page, slot), with pages allocated lazily in
// fixed-size chunks so the table never needs to copy existing entries when
// it grows. Index 0 is reserved as a sentinel and is never handed out by
// [Bank.Insert].
//
// Erasing an entry threads its slot onto an intrusive singly-linked free
// list through the slot's own nextFree field, so insertion after erasure
// does not allocate.
type Bank[T any] struct {
	pageSize int
	pages    [][]slot[T]
	len      uint32 // number of slots ever handed out, including the sentinel
	freeHead uint32 // 0 means empty; otherwise the index of the most recently erased slot
}

// NewBank creates an empty Bank with the given page size (rounded up to the
// next power of two; zero means [DefaultPageSize]).
func NewBank[T any](pageSize int) *Bank[T] {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	} else {
		pageSize = nextPow2(pageSize)
	}

	b := &Bank[T]{pageSize: pageSize}
	// Carve out index 0 as the permanently reserved sentinel.
	b.growTo(1)
	b.len = 1

	return b
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func (b *Bank[T]) page(idx uint32) *slot[T] {
	p := idx / uint32(b.pageSize)
	s := idx % uint32(b.pageSize)
	return &b.pages[p][s]
}

func (b *Bank[T]) growTo(n uint32) {
	for uint32(len(b.pages))*uint32(b.pageSize) < n {
		b.pages = append(b.pages, make([]slot[T], b.pageSize))
	}
}

// Insert allocates a new entry holding value and returns its index and
// debug generation (zero outside debug builds).
func (b *Bank[T]) Insert(value T) (index uint32, generation uint8) {
	if b.freeHead != 0 {
		idx := b.freeHead
		s := b.page(idx)
		b.freeHead = s.nextFree
		s.value = value
		s.alive = true
		return idx, s.generation
	}

	idx := b.len
	b.growTo(idx + 1)
	b.len++

	s := b.page(idx)
	s.value = value
	s.alive = true
	s.generation = 0

	return idx, s.generation
}

// Erase removes the entry at idx, threading its slot onto the free list.
// The debug-only generation counter is bumped so that stale handles can be
// detected by [Bank.GenerationAt] in debug builds.
func (b *Bank[T]) Erase(idx uint32) {
	debug.Assert(idx != 0, "cannot erase the reserved sentinel slot")

	s := b.page(idx)
	debug.Assert(s.alive, "double free of bank slot %d", idx)

	var zero T
	s.value = zero
	s.alive = false
	if debug.Enabled {
		s.generation++
	}
	s.nextFree = b.freeHead
	b.freeHead = idx
}

// At returns a pointer to the live value at idx. Panics in debug builds if
// the slot is not alive.
func (b *Bank[T]) At(idx uint32) *T {
	s := b.page(idx)
	debug.Assert(s.alive, "access to freed bank slot %d", idx)
	return &s.value
}

// IsAlive reports whether idx currently refers to a live entry.
func (b *Bank[T]) IsAlive(idx uint32) bool {
	if idx == 0 || idx >= b.len {
		return false
	}
	return b.page(idx).alive
}

// GenerationAt returns the debug generation stored at idx, regardless of
// whether the slot is currently alive. Always zero outside debug builds.
func (b *Bank[T]) GenerationAt(idx uint32) uint8 {
	return b.page(idx).generation
}

// Len returns the number of slots ever carved out, including the reserved
// sentinel and any currently-free slots. It is an upper bound on live
// entries, not a live count.
func (b *Bank[T]) Len() uint32 { return b.len }

// Range calls fn for every live entry, in index order. fn must not insert
// into or erase from the bank.
func (b *Bank[T]) Range(fn func(idx uint32, value *T) bool) {
	for i := uint32(1); i < b.len; i++ {
		s := b.page(i)
		if s.alive && !fn(i, &s.value) {
			return
		}
	}
}

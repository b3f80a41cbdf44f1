//go:build go1.22

package linear

import (
	"github.com/latticeforge/corekit/internal/debug"
	"github.com/latticeforge/corekit/pkg/xunsafe"
)

// Bump is the simplest allocator in this package: one fixed-size buffer and
// a pointer that only ever moves forward. It never grows and it never frees
// individual blocks; the only way to reclaim space is [Bump.Rewind].
//
// A zero Bump has no backing storage and panics on the first Alloc; call
// [NewBump] to get a usable one.
type Bump struct {
	_ xunsafe.NoCopy

	buf  []byte
	next int
}

var _ Allocator = (*Bump)(nil)

// NewBump creates a Bump backed by a freshly allocated buffer of the given
// size.
func NewBump(size int) *Bump {
	return &Bump{buf: make([]byte, size)}
}

// Alloc allocates size bytes, pointer-aligned. Panics if the buffer does not
// have enough remaining capacity.
func (b *Bump) Alloc(size int) *byte {
	aligned := alignUp(size)

	if b.next+aligned > len(b.buf) {
		panic("linear: Bump exhausted")
	}

	p := &b.buf[b.next]
	b.next += aligned
	debug.Log(nil, "alloc", "bump %d:%d/%d", b.next-aligned, b.next, len(b.buf))

	return p
}

// Release is a no-op: Bump only supports bulk reclamation via Rewind.
func (b *Bump) Release(*byte, int) {}

// Mark returns a cursor that can later be passed to [Bump.Rewind] to
// reclaim everything allocated since this call.
func (b *Bump) Mark() int { return b.next }

// Rewind discards every allocation made since mark was obtained from
// [Bump.Mark]. Pointers into the discarded range must not be used again.
func (b *Bump) Rewind(mark int) {
	debug.Assert(mark >= 0 && mark <= b.next, "Bump.Rewind: mark %d out of range [0,%d]", mark, b.next)

	b.next = mark
}

// Reset discards every allocation, equivalent to Rewind(0).
func (b *Bump) Reset() { b.next = 0 }

// Cap returns the total capacity of the backing buffer.
func (b *Bump) Cap() int { return len(b.buf) }

// Len returns the number of bytes currently allocated.
func (b *Bump) Len() int { return b.next }

//go:build go1.22

package linear

import (
	"github.com/latticeforge/corekit/pkg/xunsafe"
	"github.com/latticeforge/corekit/pkg/xunsafe/layout"
)

// New allocates a value of type T from the given Allocator and initializes
// it to value.
func New[T any](a Allocator, value T) *T {
	l := layout.Of[T]()
	if l.Align > Align {
		panic("linear: over-aligned object")
	}

	p := xunsafe.Cast[T](a.Alloc(l.Size))
	*p = value

	return p
}

// Free releases a value of type T previously allocated from a, deriving its
// size from layout metadata. On [Bump] and [Arena] this is a no-op; it only
// does something useful against allocators with a free list.
func Free[T any](a Allocator, p *T) {
	l := layout.Of[T]()

	a.Release(xunsafe.Cast[byte](p), l.Size)
}

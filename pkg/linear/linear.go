//go:build go1.22

// Package linear provides a family of bump-pointer allocators: a single
// fixed-size buffer, a growable chain of buffers, and a chain with explicit
// rewind points for scoped (stack-discipline) allocation.
//
// These are the "underlying providers" that sit underneath the coalescing
// allocator in [github.com/latticeforge/corekit/pkg/arena]: cheap, LIFO-only
// memory that never individually frees a block, only ever rewinds to a
// previously recorded mark.
package linear

import (
	"unsafe"

	"github.com/latticeforge/corekit/internal/debug"
	"github.com/latticeforge/corekit/pkg/xunsafe"
)

// Allocator is the interface shared by [Bump], [Arena], and [Stack].
//
// It mirrors the bump-allocator contract used throughout this module: Alloc
// hands out size bytes, Release is a hint that those bytes are no longer
// needed (honored only by implementations with a free list; a no-op
// otherwise).
type Allocator interface {
	Alloc(size int) *byte
	Release(p *byte, size int)
}

// Align is the alignment of every allocation returned by this package.
const Align = int(unsafe.Sizeof(uintptr(0)))

func alignUp(size int) int {
	return (size + Align - 1) &^ (Align - 1)
}

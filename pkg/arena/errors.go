//go:build go1.22

package arena

import "errors"

var (
	// ErrOutOfMemory is returned when the configured [MemoryManager]
	// cannot back a new arena large enough to satisfy a request.
	ErrOutOfMemory = errors.New("arena: out of memory")

	// ErrInvalidHandle is returned when a handle does not refer to any
	// entry the allocator currently knows about.
	ErrInvalidHandle = errors.New("arena: invalid handle")

	// ErrStaleHandle is returned, in debug builds only, when a handle's
	// generation does not match the slot it indexes (the slot has since
	// been reused for a different allocation).
	ErrStaleHandle = errors.New("arena: stale handle")

	// ErrDoubleFree is returned when Deallocate is called with a handle
	// whose block is already marked free.
	ErrDoubleFree = errors.New("arena: double free")
)

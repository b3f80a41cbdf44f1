//go:build go1.22

package provider

import (
	"golang.org/x/exp/constraints"

	"github.com/latticeforge/corekit/pkg/arena"
)

// NopManager is a [arena.MemoryManager] whose arenas are plain make()
// slices and whose defragmentation hooks do nothing beyond the copy
// Defragment already performs against the backing slice. It exists for
// tests that want an Allocator without pulling in any provider-specific
// behavior.
type NopManager[S constraints.Unsigned] struct{}

func (NopManager[S]) AddArena(size S) ([]byte, error) { return make([]byte, size), nil }

func (NopManager[S]) DropArena(arena.ArenaHandle, []byte) bool { return true }

func (NopManager[S]) RemoveArena(arena.ArenaHandle, []byte) error { return nil }

func (NopManager[S]) BeginDefragment() {}
func (NopManager[S]) EndDefragment()   {}

func (NopManager[S]) MoveMemory(_, _ arena.ArenaHandle, srcBacking, dstBacking []byte, srcOffset, dstOffset, size S) {
	so, do, n := int(srcOffset), int(dstOffset), int(size)
	copy(dstBacking[do:do+n], srcBacking[so:so+n])
}

func (NopManager[S]) RebindAlloc(arena.AllocHandle, S) {}

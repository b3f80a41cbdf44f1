//go:build go1.22 && (linux || darwin)

package provider

import (
	"fmt"

	"golang.org/x/exp/constraints"
	"golang.org/x/sys/unix"

	"github.com/latticeforge/corekit/pkg/arena"
)

// Virtual backs every arena with an anonymous, private mmap mapping
// (MAP_PRIVATE|MAP_ANON), released with munmap. Relocation is a plain
// copy() within the mapped bytes.
type Virtual[S constraints.Unsigned] struct{}

// NewVirtual creates a Virtual manager.
func NewVirtual[S constraints.Unsigned]() *Virtual[S] { return &Virtual[S]{} }

func (v *Virtual[S]) AddArena(size S) ([]byte, error) {
	data, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, fmt.Errorf("provider: mmap anonymous region: %w", err)
	}
	return data, nil
}

func (v *Virtual[S]) DropArena(arena.ArenaHandle, []byte) bool { return true }

func (v *Virtual[S]) RemoveArena(_ arena.ArenaHandle, backing []byte) error {
	if len(backing) == 0 {
		return nil
	}
	if err := unix.Munmap(backing); err != nil {
		return fmt.Errorf("provider: munmap region: %w", err)
	}
	return nil
}

func (v *Virtual[S]) BeginDefragment() {}
func (v *Virtual[S]) EndDefragment()   {}

func (v *Virtual[S]) MoveMemory(_, _ arena.ArenaHandle, srcBacking, dstBacking []byte, srcOffset, dstOffset, size S) {
	so, do, n := int(srcOffset), int(dstOffset), int(size)
	copy(dstBacking[do:do+n], srcBacking[so:so+n])
}

func (v *Virtual[S]) RebindAlloc(arena.AllocHandle, S) {}

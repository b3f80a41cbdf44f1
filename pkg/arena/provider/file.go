//go:build go1.22 && (linux || darwin)

package provider

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/exp/constraints"
	"golang.org/x/sys/unix"

	"github.com/latticeforge/corekit/pkg/arena"
	"github.com/latticeforge/corekit/pkg/xerrors"
)

// File backs every arena with a region of a single memory-mapped file,
// growing the file and extending the mapping as arenas are added. It never
// shrinks the file when an arena is dropped; RemoveArena only unmaps.
type File[S constraints.Unsigned] struct {
	f    *os.File
	size int64
}

// NewFile opens (creating if necessary) path and memory-maps arenas from
// it as they are requested.
func NewFile[S constraints.Unsigned](path string) (*File[S], error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("provider: open backing file: %w", err)
	}
	return &File[S]{f: f}, nil
}

func (p *File[S]) AddArena(size S) ([]byte, error) {
	offset := p.size
	newSize := offset + int64(size)

	if err := p.f.Truncate(newSize); err != nil {
		if outOfSpace(err) {
			return nil, fmt.Errorf("%w: grow backing file: %v", arena.ErrOutOfMemory, err)
		}
		return nil, fmt.Errorf("provider: grow backing file: %w", err)
	}
	p.size = newSize

	data, err := unix.Mmap(int(p.f.Fd()), offset, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("provider: mmap backing file region: %w", err)
	}
	return data, nil
}

// outOfSpace reports whether err is a filesystem error caused by the
// backing device having no room left, the one Truncate failure AddArena
// maps to arena.ErrOutOfMemory rather than a generic provider error.
func outOfSpace(err error) bool {
	pe, ok := xerrors.AsA[*fs.PathError](err)
	return ok && errors.Is(pe.Err, unix.ENOSPC)
}

func (p *File[S]) DropArena(arena.ArenaHandle, []byte) bool { return true }

func (p *File[S]) RemoveArena(_ arena.ArenaHandle, backing []byte) error {
	if len(backing) == 0 {
		return nil
	}
	if err := unix.Munmap(backing); err != nil {
		return fmt.Errorf("provider: munmap backing file region: %w", err)
	}
	return nil
}

func (p *File[S]) BeginDefragment() {}

func (p *File[S]) EndDefragment() {
	_ = p.f.Sync()
}

func (p *File[S]) MoveMemory(_, _ arena.ArenaHandle, srcBacking, dstBacking []byte, srcOffset, dstOffset, size S) {
	so, do, n := int(srcOffset), int(dstOffset), int(size)
	copy(dstBacking[do:do+n], srcBacking[so:so+n])
}

func (p *File[S]) RebindAlloc(arena.AllocHandle, S) {}

// Close unmaps nothing (arenas own their own mappings) and closes the
// underlying file.
func (p *File[S]) Close() error {
	return p.f.Close()
}

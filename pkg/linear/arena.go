//go:build go1.22

package linear

import (
	"github.com/latticeforge/corekit/internal/debug"
	"github.com/latticeforge/corekit/pkg/xunsafe"
)

// DefaultChunkSize is the chunk size an [Arena] grows by when its Config
// does not specify one.
const DefaultChunkSize = 4096

// ArenaConfig configures an [Arena].
type ArenaConfig struct {
	// Default is the size a freshly appended chunk gets when the request
	// that triggered the append is smaller than this. Zero means
	// DefaultChunkSize.
	Default int
}

func (c ArenaConfig) chunkSize() int {
	if c.Default <= 0 {
		return DefaultChunkSize
	}
	return c.Default
}

type chunk struct {
	buf      []byte
	leftOver int
}

// Arena is a growable chain of bump-allocated chunks.
//
// Allocation scans forward from the current chunk looking for one with
// enough leftover space (mirroring how the chunk that just ran out is
// skipped on future calls without needing to be searched every time);
// on a miss, a new chunk is appended sized to the larger of the request and
// Config.Default. [Arena.SmartRewind] drops chunks appended after a
// previously recorded cursor whenever they are logically empty.
type Arena struct {
	_ xunsafe.NoCopy

	cfg     ArenaConfig
	chunks  []chunk
	current int
}

var _ Allocator = (*Arena)(nil)

// NewArena creates an empty Arena with the given configuration.
func NewArena(cfg ArenaConfig) *Arena {
	return &Arena{cfg: cfg}
}

// Alloc allocates size bytes, pointer-aligned.
func (a *Arena) Alloc(size int) *byte {
	aligned := alignUp(size)

	for i := a.current; i < len(a.chunks); i++ {
		c := &a.chunks[i]
		if len(c.buf)-c.leftOver >= aligned {
			p := &c.buf[c.leftOver]
			c.leftOver += aligned
			a.current = i
			debug.Log(nil, "alloc", "arena chunk %d %d/%d", i, c.leftOver, len(c.buf))
			return p
		}
	}

	return a.grow(aligned)
}

// Release is a no-op: Arena only supports bulk reclamation via SmartRewind.
func (a *Arena) Release(*byte, int) {}

func (a *Arena) grow(size int) *byte {
	n := max(size, a.cfg.chunkSize())
	a.chunks = append(a.chunks, chunk{buf: make([]byte, n)})
	a.current = len(a.chunks) - 1

	c := &a.chunks[a.current]
	c.leftOver = size
	debug.Log(nil, "grow", "arena new chunk %d cap=%d", a.current, n)

	return &c.buf[0]
}

// Mark returns a cursor that can later be passed to [Arena.SmartRewind].
func (a *Arena) Mark() RewindPoint {
	leftOver := 0
	if a.current < len(a.chunks) {
		leftOver = a.chunks[a.current].leftOver
	}
	return RewindPoint{chunk: a.current, leftOver: leftOver}
}

// SmartRewind reclaims every allocation made since mark. Chunks appended
// after mark.chunk are dropped entirely; the chunk mark.chunk was taken from
// has its leftover counter rewound in place (its backing storage is kept for
// reuse by future allocations, it is not cleared).
func (a *Arena) SmartRewind(mark RewindPoint) {
	if mark.chunk >= len(a.chunks) {
		return
	}

	if mark.chunk+1 < len(a.chunks) {
		a.chunks = a.chunks[:mark.chunk+1]
	}

	a.chunks[mark.chunk].leftOver = mark.leftOver
	a.current = mark.chunk
}

// Reset discards every chunk but the largest, which it clears and keeps as
// the sole (empty) chunk, so that the Arena's total footprint shrinks back
// to a single chunk rather than retaining every chunk it ever grew to.
func (a *Arena) Reset() {
	if len(a.chunks) == 0 {
		return
	}

	largest := 0
	for i, c := range a.chunks {
		if len(c.buf) > len(a.chunks[largest].buf) {
			largest = i
		}
		_ = c
	}

	keep := a.chunks[largest]
	clear(keep.buf)
	keep.leftOver = 0
	a.chunks = a.chunks[:1]
	a.chunks[0] = keep
	a.current = 0
}

// NumChunks returns the number of chunks currently held.
func (a *Arena) NumChunks() int { return len(a.chunks) }

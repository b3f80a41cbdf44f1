//go:build go1.22

package arena

import "golang.org/x/exp/constraints"

// StatsMode selects how much bookkeeping [Allocator.Stats] keeps.
type StatsMode int

const (
	// StatsNone disables bookkeeping; Stats always returns the zero value.
	StatsNone StatsMode = iota
	// StatsBasic keeps running counters for every Allocator operation.
	StatsBasic
)

// Config bounds an [Allocator]'s behavior independent of the strategy and
// manager it is constructed with.
type Config[S constraints.Unsigned] struct {
	// Granularity is the unit every allocation request is rounded up to.
	// It is not passed to the strategy: strategy.Slotted's bucket width is
	// set by that strategy's own Granularity field. Defaults to 256.
	Granularity S

	// MinGranularity is the smallest remainder, after a request is placed
	// in a larger free block, worth splitting off into its own free block.
	// A smaller remainder is absorbed as internal slack into the
	// allocation instead. Defaults to Granularity.
	MinGranularity S

	// DefaultArenaSize is the size requested from the [MemoryManager] when
	// no existing arena can satisfy a request and a new one must be added.
	// The manager's returned arena may still be larger, and a single
	// request larger than DefaultArenaSize always requests at least its
	// own size. Defaults to 64 * Granularity.
	DefaultArenaSize S

	// PageSize is the block bank's page size; see [Bank]. Zero means
	// [DefaultPageSize].
	PageSize int

	// Stats selects how much runtime bookkeeping Allocate/Deallocate/
	// Defragment keep. Defaults to StatsNone.
	Stats StatsMode
}

func (c *Config[S]) setDefaults() {
	if c.Granularity == 0 {
		c.Granularity = 256
	}
	if c.MinGranularity == 0 {
		c.MinGranularity = c.Granularity
	}
	if c.DefaultArenaSize == 0 {
		c.DefaultArenaSize = c.Granularity * 64
	}
}

// Stats is a snapshot of an [Allocator]'s lifetime operation counts. It is
// only populated when [Config.Stats] is [StatsBasic].
type Stats struct {
	Allocations   uint64
	Deallocations uint64
	ArenasAdded   uint64
	ArenasRemoved uint64
	DefragMoves   uint64
}

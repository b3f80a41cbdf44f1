//go:build go1.22

package arena_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/latticeforge/corekit/pkg/arena"
	"github.com/latticeforge/corekit/pkg/arena/provider"
	"github.com/latticeforge/corekit/pkg/arena/strategy"
)

func newAllocator(t *testing.T) *arena.Allocator[uint32] {
	t.Helper()
	cfg := arena.Config[uint32]{Granularity: 4, MinGranularity: 4, DefaultArenaSize: 64}
	return arena.NewAllocator[uint32](cfg, provider.NopManager[uint32]{}, &strategy.BestFitTree[uint32]{})
}

func TestAllocateDeallocate(t *testing.T) {
	Convey("Given a fresh allocator backed by a single growable arena", t, func() {
		a := newAllocator(t)

		Convey("When allocating one block", func() {
			res, err := a.Allocate(arena.Desc[uint32]{Size: 10})
			So(err, ShouldBeNil)
			So(res.Offset, ShouldEqual, 0)
			So(a.ValidateIntegrity(), ShouldBeNil)

			Convey("Then deallocating it returns the arena to one free block", func() {
				reclaimed, err := a.Deallocate(res.Alloc)
				So(err, ShouldBeNil)
				So(reclaimed, ShouldBeTrue)
				So(a.ValidateIntegrity(), ShouldBeNil)

				again, err := a.Allocate(arena.Desc[uint32]{Size: 10})
				So(err, ShouldBeNil)
				So(again.Offset, ShouldEqual, 0)
			})
		})

		Convey("When allocating more than fits in one default-sized arena", func() {
			for i := 0; i < 20; i++ {
				_, err := a.Allocate(arena.Desc[uint32]{Size: 10})
				So(err, ShouldBeNil)
			}
			So(a.ValidateIntegrity(), ShouldBeNil)
		})
	})
}

func TestCoalesceAdjacentFrees(t *testing.T) {
	Convey("Given three adjacent live blocks", t, func() {
		a := newAllocator(t)

		r1, err := a.Allocate(arena.Desc[uint32]{Size: 8})
		require.NoError(t, err)
		r2, err := a.Allocate(arena.Desc[uint32]{Size: 8})
		require.NoError(t, err)
		r3, err := a.Allocate(arena.Desc[uint32]{Size: 8})
		require.NoError(t, err)

		Convey("When the middle one is freed", func() {
			_, err := a.Deallocate(r2.Alloc)
			So(err, ShouldBeNil)
			So(a.ValidateIntegrity(), ShouldBeNil)

			Convey("And then a neighbor is freed, they coalesce into one free span", func() {
				_, err := a.Deallocate(r1.Alloc)
				So(err, ShouldBeNil)
				So(a.ValidateIntegrity(), ShouldBeNil)

				_, err = a.Deallocate(r3.Alloc)
				So(err, ShouldBeNil)
				So(a.ValidateIntegrity(), ShouldBeNil)
			})
		})
	})
}

func TestDoubleFree(t *testing.T) {
	Convey("Given a deallocated block", t, func() {
		a := newAllocator(t)
		res, err := a.Allocate(arena.Desc[uint32]{Size: 8})
		require.NoError(t, err)

		_, err = a.Deallocate(res.Alloc)
		require.NoError(t, err)

		Convey("When deallocating it again", func() {
			_, err := a.Deallocate(res.Alloc)
			So(err, ShouldEqual, arena.ErrDoubleFree)
		})
	})
}

func TestDedicatedArena(t *testing.T) {
	Convey("Given an allocator", t, func() {
		a := newAllocator(t)

		Convey("When requesting a dedicated arena", func() {
			res, err := a.Allocate(arena.Desc[uint32]{Size: 100, Flags: arena.FlagDedicatedArena})
			So(err, ShouldBeNil)
			So(res.Offset, ShouldEqual, 0)
			So(a.ValidateIntegrity(), ShouldBeNil)
		})
	})
}

func TestAlignment(t *testing.T) {
	Convey("Given an allocator with a non-trivial alignment request", t, func() {
		a := newAllocator(t)

		_, err := a.Allocate(arena.Desc[uint32]{Size: 6}) // misaligns the next free offset from 16
		require.NoError(t, err)

		res, err := a.Allocate(arena.Desc[uint32]{Size: 8, Align: 16})
		So(err, ShouldBeNil)
		So(res.Offset%16, ShouldEqual, 0)
		So(a.ValidateIntegrity(), ShouldBeNil)
	})
}

func TestDefragment(t *testing.T) {
	Convey("Given a pinned block, a free gap, then a movable block", t, func() {
		a := newAllocator(t)

		pinned, err := a.Allocate(arena.Desc[uint32]{Size: 8})
		require.NoError(t, err)

		gap, err := a.Allocate(arena.Desc[uint32]{Size: 8})
		require.NoError(t, err)

		movable, err := a.Allocate(arena.Desc[uint32]{Size: 8, Flags: arena.FlagDefrag})
		require.NoError(t, err)

		_, err = a.Deallocate(gap.Alloc)
		require.NoError(t, err)
		So(a.ValidateIntegrity(), ShouldBeNil)
		So(movable.Offset, ShouldBeGreaterThan, pinned.Offset)

		Convey("When defragmenting", func() {
			moves, err := a.Defragment()
			So(err, ShouldBeNil)
			So(moves, ShouldEqual, 1)
			So(a.ValidateIntegrity(), ShouldBeNil)
		})
	})
}

func TestStatsDisabledByDefault(t *testing.T) {
	Convey("Given an allocator with StatsNone", t, func() {
		a := newAllocator(t)
		_, err := a.Allocate(arena.Desc[uint32]{Size: 8})
		require.NoError(t, err)

		So(a.Stats(), ShouldResemble, arena.Stats{})
	})
}

func TestStatsBasic(t *testing.T) {
	Convey("Given an allocator with StatsBasic", t, func() {
		cfg := arena.Config[uint32]{Granularity: 4, Stats: arena.StatsBasic}
		a := arena.NewAllocator[uint32](cfg, provider.NopManager[uint32]{}, &strategy.BestFitTree[uint32]{})

		res, err := a.Allocate(arena.Desc[uint32]{Size: 8})
		require.NoError(t, err)
		_, err = a.Deallocate(res.Alloc)
		require.NoError(t, err)

		stats := a.Stats()
		So(stats.Allocations, ShouldEqual, uint64(1))
		So(stats.Deallocations, ShouldEqual, uint64(1))
		So(stats.ArenasAdded, ShouldEqual, uint64(1))
	})
}

//go:build go1.23

package sched_test

import (
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/latticeforge/corekit/pkg/sched"
)

func TestParallelForCoversEveryIndexOnce(t *testing.T) {
	Convey("Given a running scheduler with a 3-worker group", t, func() {
		s := sched.New(sched.Config{
			Workgroups: []sched.GroupConfig{{Name: "g", StartThread: 0, Count: 3}},
		})

		done := make(chan struct{})
		go func() {
			_ = s.BeginExecution(func(sched.WorkerDesc) {}, nil)
			close(done)
		}()

		gid, ok := s.WorkgroupByName("g")
		So(ok, ShouldBeTrue)

		const n = 1000
		var mu sync.Mutex
		seen := make([]bool, n)

		sched.ParallelFor(s, 0, gid, 0, n, sched.Traits{BatchesPerWorker: 4}, func(ctx *sched.WorkerContext, begin, end int) {
			mu.Lock()
			for i := begin; i < end; i++ {
				seen[i] = true
			}
			mu.Unlock()
		})

		s.EndExecution()
		<-done

		Convey("Every index in range was visited", func() {
			for _, ok := range seen {
				So(ok, ShouldBeTrue)
			}
		})
	})
}

func TestParallelForBelowThresholdRunsInline(t *testing.T) {
	Convey("Given a range at or under the parallel-execution threshold", t, func() {
		s := sched.New(sched.Config{
			Workgroups: []sched.GroupConfig{{Name: "g", StartThread: 0, Count: 2}},
		})
		gid, _ := s.WorkgroupByName("g")

		var calls int
		sched.ParallelFor(s, 0, gid, 0, 4, sched.Traits{ParallelExecutionThreshold: 8}, func(ctx *sched.WorkerContext, begin, end int) {
			calls++
			So(begin, ShouldEqual, 0)
			So(end, ShouldEqual, 4)
		})

		Convey("fn runs exactly once, synchronously", func() {
			So(calls, ShouldEqual, 1)
		})
	})
}

//go:build go1.23

package sched_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/latticeforge/corekit/pkg/sched"
)

func TestWorkItemGroupTag(t *testing.T) {
	Convey("Given a WorkItem built for a specific group", t, func() {
		item := sched.NewWorkItem(sched.GroupID(4), func(*sched.WorkerContext, int) {}, 1)

		Convey("Group reports the target it was built with", func() {
			So(item.Group(), ShouldEqual, sched.GroupID(4))
		})
	})
}

func TestWorkItemCaptureRoundTrip(t *testing.T) {
	Convey("Given a WorkItem capturing a small struct", t, func() {
		type payload struct{ A, B int32 }

		s := sched.New(sched.Config{Workgroups: []sched.GroupConfig{{StartThread: 0, Count: 1}}})
		got := make(chan payload, 1)

		item := sched.NewWorkItem(sched.GroupID(-1), func(ctx *sched.WorkerContext, p payload) {
			got <- p
		}, payload{A: 3, B: 9})

		Convey("Running it passes the captured value through unchanged", func() {
			s.Submit(0, 0, item)
			So(<-got, ShouldResemble, payload{A: 3, B: 9})
		})
	})
}

package queue_test

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/latticeforge/corekit/pkg/sched/queue"
)

func TestInboxPushPop(t *testing.T) {
	Convey("Given an inbox of capacity 2", t, func() {
		b := queue.NewInbox[string](2)

		Convey("Pop on empty reports not ok", func() {
			_, ok := b.Pop()
			So(ok, ShouldBeFalse)
		})

		Convey("Pushed items pop in FIFO order", func() {
			So(b.Push("a"), ShouldBeNil)
			So(b.Push("b"), ShouldBeNil)
			So(b.Len(), ShouldEqual, 2)

			v, ok := b.Pop()
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, "a")

			v, ok = b.Pop()
			So(ok, ShouldBeTrue)
			So(v, ShouldEqual, "b")

			So(b.Len(), ShouldEqual, 0)
		})

		Convey("Pushing past capacity returns ErrWouldBlock", func() {
			So(b.Push("a"), ShouldBeNil)
			So(b.Push("b"), ShouldBeNil)
			So(b.Push("c"), ShouldEqual, queue.ErrWouldBlock)
		})

		Convey("The ring wraps correctly after pop and push", func() {
			So(b.Push("a"), ShouldBeNil)
			So(b.Push("b"), ShouldBeNil)
			_, _ = b.Pop()
			So(b.Push("c"), ShouldBeNil)

			v, _ := b.Pop()
			So(v, ShouldEqual, "b")
			v, _ = b.Pop()
			So(v, ShouldEqual, "c")
		})
	})
}

package queue_test

import (
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"

	"github.com/latticeforge/corekit/pkg/sched/queue"
)

func TestMPMCEnqueueDequeue(t *testing.T) {
	Convey("Given an MPMC ring of capacity 4", t, func() {
		q := queue.NewMPMC[int](4)
		So(q.Cap(), ShouldEqual, 4)

		Convey("Enqueued items dequeue in FIFO order", func() {
			for i := 0; i < 4; i++ {
				require.NoError(t, q.Enqueue(i))
			}

			for i := 0; i < 4; i++ {
				v, err := q.Dequeue()
				So(err, ShouldBeNil)
				So(v, ShouldEqual, i)
			}
		})

		Convey("Enqueue past capacity returns ErrWouldBlock", func() {
			for i := 0; i < 4; i++ {
				require.NoError(t, q.Enqueue(i))
			}
			So(q.Enqueue(99), ShouldEqual, queue.ErrWouldBlock)
		})

		Convey("Dequeue on empty returns ErrWouldBlock", func() {
			_, err := q.Dequeue()
			So(err, ShouldEqual, queue.ErrWouldBlock)
		})
	})
}

func TestMPMCConcurrentProducersConsumers(t *testing.T) {
	Convey("Given many concurrent producers and consumers", t, func() {
		q := queue.NewMPMC[int](64)
		const perProducer = 200
		const producers = 8

		var wg sync.WaitGroup
		wg.Add(producers)
		for p := 0; p < producers; p++ {
			go func() {
				defer wg.Done()
				for i := 0; i < perProducer; i++ {
					for q.Enqueue(1) != nil {
					}
				}
			}()
		}

		received := 0
		done := make(chan struct{})
		go func() {
			for received < producers*perProducer {
				if _, err := q.Dequeue(); err == nil {
					received++
				}
			}
			close(done)
		}()

		wg.Wait()
		<-done

		Convey("Every enqueued item is eventually dequeued", func() {
			So(received, ShouldEqual, producers*perProducer)
		})
	})
}

func TestMPMCDrain(t *testing.T) {
	Convey("Given a queue near its livelock threshold", t, func() {
		q := queue.NewMPMC[int](4)
		require.NoError(t, q.Enqueue(1))

		Convey("Drain lets Dequeue succeed without producer activity", func() {
			q.Drain()
			v, err := q.Dequeue()
			So(err, ShouldBeNil)
			So(v, ShouldEqual, 1)
		})
	})
}

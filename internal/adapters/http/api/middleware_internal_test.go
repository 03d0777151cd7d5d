package api

import (
	"sync"
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestClientLimiter(t *testing.T) {
	Convey("Given a limiter with a burst of one", t, func() {
		l := newClientLimiter(0.001, 1)

		Convey("When a new client sends many requests at once", func() {
			var allowed atomic.Int32
			var wg sync.WaitGroup
			for range 64 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if l.allow("198.51.100.7") {
						allowed.Add(1)
					}
				}()
			}
			wg.Wait()

			Convey("Then they share one bucket", func() {
				So(allowed.Load(), ShouldEqual, 1)
				So(l.clients.Len(), ShouldEqual, 1)
			})
		})

		Convey("Then a disabled limiter allows everything", func() {
			var none *clientLimiter
			So(newClientLimiter(0, 5), ShouldBeNil)
			So(none.allow("x"), ShouldBeTrue)
		})
	})
}

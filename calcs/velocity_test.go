package calcs

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestVelocityTracker(t *testing.T) {
	Convey("alpha of 1 passes samples straight through", t, func() {
		tracker := NewVelocityTracker(1)
		So(tracker.Sample(200), ShouldEqual, 200)
		So(tracker.Sample(0), ShouldEqual, 0)
	})

	Convey("out of range alpha falls back to raw samples", t, func() {
		So(NewVelocityTracker(0).Alpha, ShouldEqual, 1)
		So(NewVelocityTracker(1.5).Alpha, ShouldEqual, 1)
	})

	Convey("first sample primes the average", t, func() {
		tracker := NewVelocityTracker(0.5)
		So(tracker.Sample(100), ShouldEqual, 100)

		Convey("subsequent samples blend", func() {
			So(tracker.Sample(0), ShouldEqual, 50)
			So(tracker.Value(), ShouldEqual, 50)
		})

		Convey("reset drops the history", func() {
			tracker.Reset()
			So(tracker.Sample(20), ShouldEqual, 20)
		})
	})
}

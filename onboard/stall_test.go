package onboard

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	dserrors "github.com/ridgebots/gosorter/onboard/errors"
)

var testStallParams = StallParams{
	DesiredRPM:       150,
	ThresholdRPM:     50,
	ReverseDegrees:   90,
	ReverseRPM:       100,
	SpinUpGrace:      5 * time.Millisecond,
	PollInterval:     time.Millisecond,
	SettlePoll:       time.Millisecond,
	RecoverSettleRPM: 1,
	SmoothingAlpha:   1,
}

func TestStallGuard(t *testing.T) {
	Convey("guarding a commanded motor", t, func() {
		motor := new(taskMotor)
		screen := NewSimulatedScreen()
		guard := NewStallGuard(motor, screen, testStallParams)

		Reset(func() {
			if guard.Running() {
				guard.Stop()
			}
		})

		motor.SetVelocity(150)

		Convey("healthy motor never triggers a reversal", func() {
			So(guard.Start(), ShouldBeNil)
			time.Sleep(25 * time.Millisecond)

			So(guard.Stalls(), ShouldEqual, 0)
			So(motor.moveCount(), ShouldEqual, 0)
		})

		Convey("jammed motor is reversed and resumed", func() {
			motor.jam()
			So(guard.Start(), ShouldBeNil)
			time.Sleep(30 * time.Millisecond)

			So(guard.Stalls(), ShouldBeGreaterThanOrEqualTo, 1)
			So(motor.moveCount(), ShouldBeGreaterThanOrEqualTo, 1)
			So(screen.Line(STALL_SCREEN_LINE), ShouldEqual, "Intake stuck! Reversing...")

			// reverse went out as a negative relative angle, then the
			// desired velocity came back
			motor.lock.Lock()
			firstMove := motor.moves[0]
			motor.lock.Unlock()
			So(firstMove, ShouldEqual, -90)

			calls := motor.calls()
			So(calls[len(calls)-1], ShouldEqual, 150)
			So(motor.Jammed(), ShouldBeFalse)
		})

		Convey("no check happens inside the spin-up grace", func() {
			motor.jam()
			So(guard.Start(), ShouldBeNil)

			time.Sleep(2 * time.Millisecond)
			So(motor.moveCount(), ShouldEqual, 0)

			time.Sleep(15 * time.Millisecond)
			So(motor.moveCount(), ShouldBeGreaterThanOrEqualTo, 1)
		})

		Convey("idle motor is never treated as stalled", func() {
			motor.Stop()
			motor.jam()
			So(guard.Start(), ShouldBeNil)
			time.Sleep(20 * time.Millisecond)

			So(motor.moveCount(), ShouldEqual, 0)
		})

		Convey("an unsettled reversal blocks further triggers", func() {
			motor.sticky = true
			motor.jam()
			So(guard.Start(), ShouldBeNil)
			time.Sleep(25 * time.Millisecond)

			// one recovery in flight, still waiting on the motor to settle
			So(guard.Reversing(), ShouldBeTrue)
			So(motor.moveCount(), ShouldEqual, 1)
			So(guard.Stalls(), ShouldEqual, 1)

			Convey("stop interrupts the settle wait", func() {
				So(guard.Stop(), ShouldBeNil)
				So(guard.Running(), ShouldBeFalse)
			})
		})
	})
}

func TestStallGuardSmoothing(t *testing.T) {
	Convey("a single noisy sample does not trigger recovery", t, func() {
		motor := new(taskMotor)
		params := testStallParams
		params.SmoothingAlpha = 0.1
		guard := NewStallGuard(motor, nil, params)

		Reset(func() {
			if guard.Running() {
				guard.Stop()
			}
		})

		motor.SetVelocity(150)
		So(guard.Start(), ShouldBeNil)
		time.Sleep(10 * time.Millisecond)

		// one glitched reading well under the threshold
		motor.lock.Lock()
		motor.actual = 0
		motor.lock.Unlock()
		time.Sleep(2 * time.Millisecond)
		motor.lock.Lock()
		motor.actual = 150
		motor.lock.Unlock()

		time.Sleep(10 * time.Millisecond)
		So(guard.Stalls(), ShouldEqual, 0)
		So(motor.moveCount(), ShouldEqual, 0)
	})
}

func TestStallGuardLifecycle(t *testing.T) {
	Convey("start and stop are explicit", t, func() {
		guard := NewStallGuard(new(taskMotor), nil, testStallParams)

		Reset(func() {
			if guard.Running() {
				guard.Stop()
			}
		})

		So(guard.Start(), ShouldBeNil)

		Convey("double start errors", func() {
			err := guard.Start()
			So(err, ShouldHaveSameTypeAs, dserrors.TaskStateError{})
		})

		Convey("stop then restart works", func() {
			So(guard.Stop(), ShouldBeNil)
			So(guard.Start(), ShouldBeNil)
			So(guard.Stop(), ShouldBeNil)

			err := guard.Stop()
			So(err, ShouldHaveSameTypeAs, dserrors.TaskStateError{})
		})

		Convey("desired speed can be retuned while running", func() {
			guard.SetDesired(80)
			So(guard.Stalls(), ShouldEqual, 0)
		})
	})
}

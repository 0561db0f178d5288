package onboard

import (
	"log"
	"math"
	"sync"
	"time"

	"github.com/ridgebots/gosorter/calcs"
	dserrors "github.com/ridgebots/gosorter/onboard/errors"
	"github.com/ridgebots/gosorter/onboard/hardware"
)

const (
	STALL_DESIRED_RPM     = 200
	STALL_THRESHOLD_RPM   = 50
	STALL_REVERSE_DEGREES = 90
	STALL_REVERSE_RPM     = 100
	STALL_SPINUP_GRACE    = 200 * time.Millisecond
	STALL_POLL_INTERVAL   = 20 * time.Millisecond
	STALL_SETTLE_POLL     = 10 * time.Millisecond
	STALL_SETTLE_RPM      = 1

	STALL_SCREEN_LINE = 0
)

type StallParams struct {
	DesiredRPM       int16
	ThresholdRPM     float64
	ReverseDegrees   float64
	ReverseRPM       int16
	SpinUpGrace      time.Duration
	PollInterval     time.Duration
	SettlePoll       time.Duration
	RecoverSettleRPM float64
	SmoothingAlpha   float64 // 1 = raw samples
}

func (p *StallParams) applyDefaults() {
	if p.DesiredRPM == 0 {
		p.DesiredRPM = STALL_DESIRED_RPM
	}
	if p.ThresholdRPM == 0 {
		p.ThresholdRPM = STALL_THRESHOLD_RPM
	}
	if p.ReverseDegrees == 0 {
		p.ReverseDegrees = STALL_REVERSE_DEGREES
	}
	if p.ReverseRPM == 0 {
		p.ReverseRPM = STALL_REVERSE_RPM
	}
	if p.SpinUpGrace == 0 {
		p.SpinUpGrace = STALL_SPINUP_GRACE
	}
	if p.PollInterval == 0 {
		p.PollInterval = STALL_POLL_INTERVAL
	}
	if p.SettlePoll == 0 {
		p.SettlePoll = STALL_SETTLE_POLL
	}
	if p.RecoverSettleRPM == 0 {
		p.RecoverSettleRPM = STALL_SETTLE_RPM
	}
}

// StallGuard watches the intake motor for jams. A stall is a commanded
// motor whose actual velocity sits below the threshold once the spin-up
// grace period has passed; recovery backs the motor off a fixed angle,
// waits for it to settle and resumes the desired velocity. A recovery in
// flight suppresses further stall checks until it completes.
type StallGuard struct {
	Motor  hardware.MotorInterface
	Screen hardware.DisplayInterface

	params  StallParams
	tracker *calcs.VelocityTracker

	lock      sync.Mutex
	reversing bool
	stalls    int

	quit chan struct{}
	done chan struct{}
}

func NewStallGuard(motor hardware.MotorInterface, screen hardware.DisplayInterface, params StallParams) *StallGuard {
	params.applyDefaults()

	return &StallGuard{
		Motor:   motor,
		Screen:  screen,
		params:  params,
		tracker: calcs.NewVelocityTracker(params.SmoothingAlpha),
	}
}

// SetDesired retunes the velocity restored after a recovery. Used when the
// operator changes the intake speed while the guard is running.
func (g *StallGuard) SetDesired(rpm int16) {
	g.lock.Lock()
	g.params.DesiredRPM = rpm
	g.lock.Unlock()
}

// Stalls reports how many times the guard has reversed out of a jam.
func (g *StallGuard) Stalls() int {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.stalls
}

// Reversing reports whether a recovery move is in flight.
func (g *StallGuard) Reversing() bool {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.reversing
}

func (g *StallGuard) Running() bool {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.quit != nil
}

func (g *StallGuard) Start() error {
	g.lock.Lock()
	defer g.lock.Unlock()

	if g.quit != nil {
		return dserrors.TaskStateError{Task: "stall guard", Running: true}
	}

	g.tracker.Reset()
	g.quit = make(chan struct{})
	g.done = make(chan struct{})
	go g.run(g.quit, g.done)

	return nil
}

func (g *StallGuard) Stop() error {
	g.lock.Lock()
	if g.quit == nil {
		g.lock.Unlock()
		return dserrors.TaskStateError{Task: "stall guard", Running: false}
	}

	quit, done := g.quit, g.done
	g.quit = nil
	g.lock.Unlock()

	close(quit)
	<-done
	return nil
}

func (g *StallGuard) run(quit, done chan struct{}) {
	defer close(done)

	// spin-up grace: the motor reads as stalled until it spools
	select {
	case <-quit:
		return
	case <-time.After(g.params.SpinUpGrace):
	}

	ticker := time.NewTicker(g.params.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			g.check(quit)
		}
	}
}

func (g *StallGuard) check(quit chan struct{}) {
	vel, err := g.Motor.Velocity()
	if err != nil {
		log.Println("stall guard: velocity read failed:", err)
		return
	}

	smoothed := g.tracker.Sample(vel)

	g.lock.Lock()
	reversing := g.reversing
	threshold := g.params.ThresholdRPM
	g.lock.Unlock()

	if !reversing && math.Abs(smoothed) < threshold && g.Motor.TargetVelocity() != 0 {
		g.recover(quit)
	}
}

func (g *StallGuard) recover(quit chan struct{}) {
	g.lock.Lock()
	g.reversing = true
	g.stalls++
	degrees := g.params.ReverseDegrees
	rpm := g.params.ReverseRPM
	g.lock.Unlock()

	defer func() {
		g.lock.Lock()
		g.reversing = false
		g.lock.Unlock()
	}()

	if g.Screen != nil {
		g.Screen.SetText(STALL_SCREEN_LINE, 0, "Intake stuck! Reversing...")
	}

	if err := g.Motor.MoveRelative(-degrees, rpm); err != nil {
		log.Println("stall guard: reverse failed:", err)
		return
	}

	// wait for the reverse motion to complete
	for {
		select {
		case <-quit:
			return
		case <-time.After(g.params.SettlePoll):
		}

		vel, err := g.Motor.Velocity()
		if err != nil {
			continue
		}
		if math.Abs(vel) <= g.params.RecoverSettleRPM {
			break
		}
	}

	// resume normal intake operation
	g.lock.Lock()
	desired := g.params.DesiredRPM
	g.lock.Unlock()

	if err := g.Motor.SetVelocity(desired); err != nil {
		log.Println("stall guard: resume failed:", err)
	}
	g.tracker.Reset()
}

package onboard

import (
	"log"
	"sync"
	"time"

	dserrors "github.com/ridgebots/gosorter/onboard/errors"
	"github.com/ridgebots/gosorter/onboard/hardware"
)

const (
	SORTER_POLL_INTERVAL = 50 * time.Millisecond
	SORTER_TRAVEL_DELAY  = 100 * time.Millisecond // let the ring reach the eject position
	SORTER_STOP_DELAY    = 200 * time.Millisecond // ejection via inertia
	SORTER_INTAKE_RPM    = 200

	SORTER_SCREEN_LINE = 2
)

type SorterParams struct {
	PollInterval time.Duration
	TravelDelay  time.Duration
	StopDelay    time.Duration
	IntakeRPM    int16
}

func (p *SorterParams) applyDefaults() {
	if p.PollInterval == 0 {
		p.PollInterval = SORTER_POLL_INTERVAL
	}
	if p.TravelDelay == 0 {
		p.TravelDelay = SORTER_TRAVEL_DELAY
	}
	if p.StopDelay == 0 {
		p.StopDelay = SORTER_STOP_DELAY
	}
	if p.IntakeRPM == 0 {
		p.IntakeRPM = SORTER_INTAKE_RPM
	}
}

// ColorSorter watches the optical sensor and ejects rings that do not
// match the alliance color: the intake halts long enough for the ring to
// fly off under its own inertia, then resumes. It owns its polling
// goroutine; Start and Stop are explicit and safe to call from any
// goroutine.
type ColorSorter struct {
	Intake  hardware.MotorInterface
	Optical hardware.OpticalInterface
	Screen  hardware.DisplayInterface

	params   SorterParams
	alliance AllianceColor

	lock     sync.Mutex
	lastHue  float64
	lastSeen AllianceColor
	ejected  int

	quit chan struct{}
	done chan struct{}
}

func NewColorSorter(
	intake hardware.MotorInterface,
	optical hardware.OpticalInterface,
	screen hardware.DisplayInterface,
	alliance AllianceColor,
	params SorterParams) *ColorSorter {
	params.applyDefaults()

	return &ColorSorter{
		Intake:   intake,
		Optical:  optical,
		Screen:   screen,
		params:   params,
		alliance: alliance,
	}
}

func (s *ColorSorter) SetAlliance(c AllianceColor) {
	s.lock.Lock()
	s.alliance = c
	s.lock.Unlock()
}

func (s *ColorSorter) Alliance() AllianceColor {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.alliance
}

// LastDetected reports the most recent sensor classification and raw hue.
func (s *ColorSorter) LastDetected() (AllianceColor, float64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.lastSeen, s.lastHue
}

// Ejected reports how many mismatched rings have been thrown since start.
func (s *ColorSorter) Ejected() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.ejected
}

func (s *ColorSorter) Running() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.quit != nil
}

func (s *ColorSorter) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.quit != nil {
		return dserrors.TaskStateError{Task: "sorter", Running: true}
	}

	s.quit = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(s.quit, s.done)

	return nil
}

// Stop halts the sorting loop and waits for it to exit. The intake motor
// is left in whatever state the loop last commanded.
func (s *ColorSorter) Stop() error {
	s.lock.Lock()
	if s.quit == nil {
		s.lock.Unlock()
		return dserrors.TaskStateError{Task: "sorter", Running: false}
	}

	quit, done := s.quit, s.done
	s.quit = nil
	s.lock.Unlock()

	close(quit)
	<-done
	return nil
}

func (s *ColorSorter) run(quit, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.params.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			s.step(quit)
		}
	}
}

func (s *ColorSorter) step(quit chan struct{}) {
	hue, err := s.Optical.Hue()
	if err != nil {
		log.Println("sorter: hue read failed:", err)
		return
	}

	detected := ClassifyHue(hue)

	s.lock.Lock()
	s.lastHue = hue
	s.lastSeen = detected
	alliance := s.alliance
	s.lock.Unlock()

	switch {
	case detected == Unknown:
		// nothing in front of the sensor; intake stays under external
		// control
		s.Screen.SetText(SORTER_SCREEN_LINE, 0, "No Ring!")

	case detected == alliance:
		s.Screen.SetText(SORTER_SCREEN_LINE, 0, "Color Match!")

	default:
		// wrong color: let it travel to the eject position, halt so it
		// flies off, then resume
		if !s.wait(quit, s.params.TravelDelay) {
			return
		}
		s.Intake.SetVelocity(0)
		s.Screen.SetText(SORTER_SCREEN_LINE, 0, "Color Mismatch!")
		if !s.wait(quit, s.params.StopDelay) {
			return
		}
		s.Intake.SetVelocity(s.params.IntakeRPM)

		s.lock.Lock()
		s.ejected++
		s.lock.Unlock()
	}
}

// wait sleeps for d unless the task is stopped first.
func (s *ColorSorter) wait(quit chan struct{}, d time.Duration) bool {
	select {
	case <-quit:
		return false
	case <-time.After(d):
		return true
	}
}

package onboard

import (
	"math/rand"
	"sync"
	"time"

	"github.com/ridgebots/gosorter/onboard/hardware"
)

const (
	SIM_INTERVAL      = 10 * time.Millisecond
	SIM_JITTER_RPM    = 5
	SIM_REVERSE_TICKS = 3
)

// SimulatedMotor tracks its commanded velocity with a little lag and
// jitter. Jam freezes it near zero until a relative move shakes the jam
// loose, mirroring how the real intake behaves when a ring wedges.
type SimulatedMotor struct {
	lock      sync.Mutex
	target    int16
	actual    float64
	jammed    bool
	reversing int // update ticks left on a relative move
	revRPM    int16
}

func NewSimulatedMotor() (m *SimulatedMotor) {
	m = new(SimulatedMotor)
	go m.update()
	return
}

func (m *SimulatedMotor) update() {
	for {
		m.lock.Lock()
		switch {
		case m.reversing > 0:
			m.reversing--
			m.actual = -float64(m.revRPM)
			if m.reversing == 0 {
				m.actual = 0
				m.jammed = false // backing off clears the jam
			}

		case m.jammed:
			m.actual *= 0.3 // grind down to nothing

		default:
			diff := float64(m.target) - m.actual
			m.actual += diff * 0.5
			if m.target != 0 {
				m.actual += float64(rand.Intn(SIM_JITTER_RPM*2) - SIM_JITTER_RPM)
			}
		}
		m.lock.Unlock()

		time.Sleep(SIM_INTERVAL)
	}
}

func (m *SimulatedMotor) SetVelocity(rpm int16) error {
	m.lock.Lock()
	m.target = rpm
	m.lock.Unlock()
	return nil
}

func (m *SimulatedMotor) Stop() error {
	return m.SetVelocity(0)
}

func (m *SimulatedMotor) MoveRelative(degrees float64, rpm int16) error {
	m.lock.Lock()
	m.reversing = SIM_REVERSE_TICKS
	m.revRPM = rpm
	m.lock.Unlock()
	return nil
}

func (m *SimulatedMotor) Velocity() (float64, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.actual, nil
}

func (m *SimulatedMotor) TargetVelocity() int16 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.target
}

func (m *SimulatedMotor) GetState() (state hardware.MotorState) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return hardware.MotorState{
		Target:  m.target,
		Current: int16(m.actual),
	}
}

// Jam wedges the motor: velocity decays to zero regardless of the target.
func (m *SimulatedMotor) Jam() {
	m.lock.Lock()
	m.jammed = true
	m.lock.Unlock()
}

func (m *SimulatedMotor) Jammed() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.jammed
}

// SimulatedOptical reports whatever hue the test or sim driver sets.
type SimulatedOptical struct {
	lock sync.Mutex
	hue  float64
	prox uint8
}

func (o *SimulatedOptical) SetHue(hue float64) {
	o.lock.Lock()
	o.hue = hue
	o.lock.Unlock()
}

func (o *SimulatedOptical) SetProximity(prox uint8) {
	o.lock.Lock()
	o.prox = prox
	o.lock.Unlock()
}

func (o *SimulatedOptical) Hue() (float64, error) {
	o.lock.Lock()
	defer o.lock.Unlock()
	return o.hue, nil
}

func (o *SimulatedOptical) Proximity() (uint8, error) {
	o.lock.Lock()
	defer o.lock.Unlock()
	return o.prox, nil
}

// SimulatedScreen records what the tasks write so tests and the simulator
// shell can read it back.
type SimulatedScreen struct {
	lock  sync.Mutex
	lines map[uint8]string
}

func NewSimulatedScreen() *SimulatedScreen {
	return &SimulatedScreen{lines: make(map[uint8]string)}
}

func (s *SimulatedScreen) SetText(line, col uint8, text string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if col == 0 {
		s.lines[line] = text
	} else {
		s.lines[line] += text
	}
	return nil
}

func (s *SimulatedScreen) ClearLine(line uint8) error {
	s.lock.Lock()
	delete(s.lines, line)
	s.lock.Unlock()
	return nil
}

func (s *SimulatedScreen) Line(line uint8) string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.lines[line]
}

// NewSorterBotSimulator builds a SorterBot backed entirely by simulated
// devices so the full stack runs without a robot on the bench.
func NewSorterBotSimulator(config SorterBotConfig) (bot *SorterBot) {
	bot = new(SorterBot)
	bot.Intake = NewSimulatedMotor()
	bot.Optical = new(SimulatedOptical)
	bot.Screen = NewSimulatedScreen()

	bot.assemble(config)
	return
}

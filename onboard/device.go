package onboard

import (
	"fmt"

	"github.com/ridgebots/gosorter/onboard/hardware"
	"github.com/ridgebots/gosorter/onboard/vexlink"
)

// RingBot is the surface the operator layers (shell, dashboard, websocket
// conductor) drive the robot through.
type RingBot interface {
	SetAlliance(c AllianceColor)
	Alliance() AllianceColor
	SetIntake(rpm int16) error
	StartSorter() error
	StopSorter() error
	StartStallGuard() error
	StopStallGuard() error
	GetState() (state SorterBotState)
}

type SorterBotState struct {
	Alliance     string              `json:"alliance"`
	Motor        hardware.MotorState `json:"motor"`
	Hue          float64             `json:"hue"`
	Detected     string              `json:"detected"`
	Ejected      int                 `json:"ejected"`
	Stalls       int                 `json:"stalls"`
	SorterOn     bool                `json:"sorter_on"`
	StallGuardOn bool                `json:"stall_guard_on"`
}

// SorterBot assembles the intake, optical sensor and controller screen
// into one device plus its two background tasks.
type SorterBot struct {
	Intake  hardware.MotorInterface
	Optical hardware.OpticalInterface
	Screen  hardware.DisplayInterface

	sorter *ColorSorter
	guard  *StallGuard
	nodes  []*hardware.DeviceNode
	links  map[string]*vexlink.SerialBus
}

func NewSorterBot(config SorterBotConfig) (bot *SorterBot, err error) {
	bot = new(SorterBot)
	bot.links = make(map[string]*vexlink.SerialBus)

	switch config.Version {
	case 1:
		var bus *vexlink.SerialBus
		bus, err = bot.getBus(config.Link)
		if err != nil {
			return
		}

		var node *hardware.DeviceNode
		if node, err = hardware.NewDeviceNode(bus, config.Devices.Intake); err != nil {
			return
		}
		bot.Intake = &hardware.SmartMotor{Node: node}
		bot.nodes = append(bot.nodes, node)

		if node, err = hardware.NewDeviceNode(bus, config.Devices.Optical); err != nil {
			return
		}
		bot.Optical = &hardware.OpticalSensor{Node: node}
		bot.nodes = append(bot.nodes, node)

		if node, err = hardware.NewDeviceNode(bus, config.Devices.Screen); err != nil {
			return
		}
		bot.Screen = &hardware.ControllerScreen{Node: node}
		bot.nodes = append(bot.nodes, node)

	default:
		return nil, fmt.Errorf("unable to work with version %d", config.Version)
	}

	bot.assemble(config)
	return
}

func (bot *SorterBot) assemble(config SorterBotConfig) {
	bot.sorter = NewColorSorter(bot.Intake, bot.Optical, bot.Screen, config.Alliance, config.Sorter)
	bot.guard = NewStallGuard(bot.Intake, bot.Screen, config.Stall)
}

func (bot *SorterBot) getBus(name string) (bus *vexlink.SerialBus, err error) {
	bus, ok := bot.links[name]
	if !ok {
		// need to create bus
		bus, err = vexlink.NewSerialBus(name)
		if err != nil {
			return
		}
		bot.links[name] = bus
	}

	return
}

func (bot *SorterBot) SetAlliance(c AllianceColor) {
	bot.sorter.SetAlliance(c)
}

func (bot *SorterBot) Alliance() AllianceColor {
	return bot.sorter.Alliance()
}

// SetIntake commands the intake velocity and keeps the stall guard's
// resume speed in step with it.
func (bot *SorterBot) SetIntake(rpm int16) error {
	if err := bot.Intake.SetVelocity(rpm); err != nil {
		return err
	}

	if rpm != 0 {
		bot.guard.SetDesired(rpm)
	}
	return nil
}

func (bot *SorterBot) StartSorter() error {
	return bot.sorter.Start()
}

func (bot *SorterBot) StopSorter() error {
	return bot.sorter.Stop()
}

func (bot *SorterBot) StartStallGuard() error {
	return bot.guard.Start()
}

func (bot *SorterBot) StopStallGuard() error {
	return bot.guard.Stop()
}

// Close stops both tasks, abandons any commands still waiting on a
// device and releases the serial links.
func (bot *SorterBot) Close() error {
	if bot.sorter.Running() {
		bot.sorter.Stop()
	}
	if bot.guard.Running() {
		bot.guard.Stop()
	}

	for _, node := range bot.nodes {
		node.AbortPending()
	}

	var err error
	for _, bus := range bot.links {
		if cerr := bus.Close(); cerr != nil {
			err = cerr
		}
	}
	return err
}

func (bot *SorterBot) GetState() (state SorterBotState) {
	detected, hue := bot.sorter.LastDetected()

	state.Alliance = bot.sorter.Alliance().String()
	state.Motor = bot.Intake.GetState()
	state.Hue = hue
	state.Detected = detected.String()
	state.Ejected = bot.sorter.Ejected()
	state.Stalls = bot.guard.Stalls()
	state.SorterOn = bot.sorter.Running()
	state.StallGuardOn = bot.guard.Running()
	return
}

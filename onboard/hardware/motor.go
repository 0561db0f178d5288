package hardware

import (
	"encoding/binary"
	"sync"
)

type MotorState struct {
	Target  int16 // commanded velocity in rpm
	Current int16 // last velocity read back from the device
}

type MotorInterface interface {
	SetVelocity(rpm int16) error
	Stop() error
	MoveRelative(degrees float64, rpm int16) error
	Velocity() (float64, error)
	TargetVelocity() int16
	GetState() (state MotorState)
}

// SmartMotor drives a V5 smart motor through its device node.
type SmartMotor struct {
	Node *DeviceNode

	lock  sync.Mutex
	state MotorState
}

func (m *SmartMotor) SetVelocity(rpm int16) error {
	cmd := &CMDSpin{
		BaseCommand: &BaseCommand{node: m.Node},
		rpm:         rpm,
	}

	if _, err := m.Node.Process(cmd); err != nil {
		return err
	}

	m.lock.Lock()
	m.state.Target = rpm
	m.lock.Unlock()
	return nil
}

func (m *SmartMotor) Stop() error {
	return m.SetVelocity(0)
}

// MoveRelative turns the motor through the given angle at the given speed.
// The velocity setpoint is left untouched; a relative move is a position
// command on the device.
func (m *SmartMotor) MoveRelative(degrees float64, rpm int16) error {
	cmd := &CMDMoveRel{
		BaseCommand: &BaseCommand{node: m.Node},
		degrees:     degrees,
		rpm:         rpm,
	}

	_, err := m.Node.Process(cmd)
	return err
}

// Velocity reads the actual velocity back from the device in rpm.
func (m *SmartMotor) Velocity() (float64, error) {
	cmd := &CMDReadVel{
		&BaseCommand{node: m.Node},
	}

	resp, err := m.Node.Process(cmd)
	if err != nil {
		return 0, err
	}
	if len(resp.Data) < 2 {
		return 0, ERR_SHORT_RESP
	}

	vel := int16(binary.BigEndian.Uint16(resp.Data[0:2]))

	m.lock.Lock()
	m.state.Current = vel
	m.lock.Unlock()

	return float64(vel), nil
}

func (m *SmartMotor) TargetVelocity() int16 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state.Target
}

func (m *SmartMotor) GetState() (state MotorState) {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state
}

package hardware

import (
	"encoding/binary"
)

type OpticalInterface interface {
	Hue() (float64, error)
	Proximity() (uint8, error)
}

// OpticalSensor reads hue and proximity from a V5 optical sensor.
type OpticalSensor struct {
	Node *DeviceNode
}

// Hue returns the detected color wheel angle in degrees (0-360). The
// device reports tenths of a degree.
func (o *OpticalSensor) Hue() (float64, error) {
	cmd := &CMDReadHue{
		&BaseCommand{node: o.Node},
	}

	resp, err := o.Node.Process(cmd)
	if err != nil {
		return 0, err
	}
	if len(resp.Data) < 2 {
		return 0, ERR_SHORT_RESP
	}

	return float64(binary.BigEndian.Uint16(resp.Data[0:2])) / 10, nil
}

// Proximity returns how close an object is to the sensor, 0-255. Near 255
// means an object is right at the aperture.
func (o *OpticalSensor) Proximity() (uint8, error) {
	cmd := &CMDReadProx{
		&BaseCommand{node: o.Node},
	}

	resp, err := o.Node.Process(cmd)
	if err != nil {
		return 0, err
	}
	if len(resp.Data) < 1 {
		return 0, ERR_SHORT_RESP
	}

	return resp.Data[0], nil
}

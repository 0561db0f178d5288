package vexlink

import (
	"errors"
)

const (
	// Frame layout constants. Every frame on the wire is exactly FRAME_LEN
	// bytes: SOF, port, cmd (2 bytes), DLC, up to MAX_DATA data bytes and a
	// trailing xor checksum.
	FRAME_SOF    = 0xA5
	FRAME_LEN    = 12
	MAX_DATA_LEN = 6

	// HostPort marks frames originating from the brain rather than a device.
	HostPort = 0xFF
)

// errors
var (
	ERR_DATA_TOO_LONG = errors.New("data length exceeds 6 bytes")
	ERR_BAD_FRAME     = errors.New("malformed frame")
	ERR_BAD_CHECKSUM  = errors.New("frame checksum mismatch")
	ERR_BUS_CLOSED    = errors.New("bus is closed")
)

type Msg struct {
	Port uint8  // smart port the target device is plugged into
	Cmd  uint16 // command being issued in this message
	Data []byte // raw data up to six bytes. DLC is taken from len(Data).
}

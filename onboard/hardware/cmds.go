package hardware

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"

	"github.com/ridgebots/gosorter/onboard/vexlink"
)

const (
	CMD_ALLSTOP     = 0x0000
	CMD_DEVICE_TYPE = 0x0010
	CMD_SPIN        = 0x0020
	CMD_MOVE_REL    = 0x0030
	CMD_READ_VEL    = 0x0040
	CMD_READ_HUE    = 0x0050
	CMD_READ_PROX   = 0x0060
	CMD_SET_TEXT    = 0x0070
	CMD_CLEAR_LINE  = 0x0080
	CMD_VERSION     = 0x03E0

	CMD_MAX_RETRIES = 5
	CMD_TIMEOUT     = 5 * time.Millisecond
)

var (
	ERR_MAX_RETRIES = errors.New("CMD_MAX_RETRIES reached while attempting to send")
	ERR_SEND_ABORT  = errors.New("send has been aborted")
	ERR_SHORT_RESP  = errors.New("response data too short")
)

type NodeCommand interface {
	ID() uint16
	Msg() vexlink.Msg
	Ack(msg vexlink.Msg)
	Abort() error
	base() *BaseCommand
}

type BaseCommand struct {
	node  *DeviceNode
	msg   vexlink.Msg
	ack   chan vexlink.Msg
	abort chan struct{}
}

func (c *BaseCommand) base() *BaseCommand {
	return c
}

func (c *BaseCommand) ID() uint16 {
	return c.Msg().Cmd
}

func (c *BaseCommand) Msg() vexlink.Msg {
	return c.msg
}

func (c *BaseCommand) Abort() error {
	if c.abort == nil {
		return errors.New("send not yet attempted")
	}

	close(c.abort)
	return nil
}

func (c *BaseCommand) Ack(msg vexlink.Msg) {
	c.ack <- msg
}

func (c *BaseCommand) verify(resp vexlink.Msg) bool {
	// acknowledgements echo the original payload; reads carry fresh data
	// and are accepted as-is
	if len(c.msg.Data) == 0 {
		return true
	}
	return bytes.Equal(c.msg.Data, resp.Data)
}

// Issues a motor velocity command in rpm.
type CMDSpin struct {
	*BaseCommand
	rpm int16
}

func (c *CMDSpin) Msg() (msg vexlink.Msg) {
	c.msg.Cmd = CMD_SPIN
	c.msg.Port = c.node.port
	c.msg.Data = make([]byte, 2)
	binary.BigEndian.PutUint16(c.msg.Data, uint16(c.rpm))

	return c.msg
}

// Issues a relative move. Degrees travel on the wire as centidegrees so a
// quarter turn survives the integer payload.
type CMDMoveRel struct {
	*BaseCommand
	degrees float64
	rpm     int16
}

func (c *CMDMoveRel) Msg() (msg vexlink.Msg) {
	c.msg.Cmd = CMD_MOVE_REL
	c.msg.Port = c.node.port
	c.msg.Data = make([]byte, 6)
	binary.BigEndian.PutUint32(c.msg.Data[0:4], uint32(int32(c.degrees*100)))
	binary.BigEndian.PutUint16(c.msg.Data[4:6], uint16(c.rpm))

	return c.msg
}

// Requests the actual and target velocity of a motor.
type CMDReadVel struct {
	*BaseCommand
}

func (c *CMDReadVel) Msg() (msg vexlink.Msg) {
	c.msg.Cmd = CMD_READ_VEL
	c.msg.Port = c.node.port

	return c.msg
}

// Requests the current hue from an optical sensor. The reply carries the
// hue in tenths of a degree.
type CMDReadHue struct {
	*BaseCommand
}

func (c *CMDReadHue) Msg() (msg vexlink.Msg) {
	c.msg.Cmd = CMD_READ_HUE
	c.msg.Port = c.node.port

	return c.msg
}

// Requests the proximity reading from an optical sensor.
type CMDReadProx struct {
	*BaseCommand
}

func (c *CMDReadProx) Msg() (msg vexlink.Msg) {
	c.msg.Cmd = CMD_READ_PROX
	c.msg.Port = c.node.port

	return c.msg
}

// Writes a text fragment to the controller screen. ID is based on msg.Cmd
// and the target line so writes to different lines can be in flight at
// once.
type CMDSetText struct {
	*BaseCommand
	line, col uint8
	text      string
}

func (c *CMDSetText) ID() uint16 {
	return CMD_SET_TEXT | uint16(c.line)
}

func (c *CMDSetText) Msg() (msg vexlink.Msg) {
	if len(c.text) > 4 {
		c.text = c.text[:4]
	}

	c.msg.Cmd = CMD_SET_TEXT
	c.msg.Port = c.node.port
	c.msg.Data = make([]byte, 2+len(c.text))
	c.msg.Data[0] = c.line
	c.msg.Data[1] = c.col
	copy(c.msg.Data[2:], c.text)

	return c.msg
}

// Clears a single controller screen line.
type CMDClearLine struct {
	*BaseCommand
	line uint8
}

func (c *CMDClearLine) ID() uint16 {
	return CMD_CLEAR_LINE | uint16(c.line)
}

func (c *CMDClearLine) Msg() (msg vexlink.Msg) {
	c.msg.Cmd = CMD_CLEAR_LINE
	c.msg.Port = c.node.port
	c.msg.Data = []byte{c.line}

	return c.msg
}

// Requests the device firmware version.
type CMDVersion struct {
	*BaseCommand
}

func (c *CMDVersion) Msg() (msg vexlink.Msg) {
	c.msg.Cmd = CMD_VERSION
	c.msg.Port = c.node.port

	return c.msg
}

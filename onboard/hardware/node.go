package hardware

import (
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/semver"
	"github.com/ridgebots/gosorter/onboard/vexlink"
)

const (
	FIRMWARE_VERSION = "~1.0.0"
)

// DeviceNode brokers commands for a single smart port device. Commands
// block in Process until the device acknowledges them; the listen loop
// routes incoming frames back to whichever command is waiting on them.
type DeviceNode struct {
	port       uint8
	bus        vexlink.BusInterface
	lock       *sync.Mutex
	pending    sync.WaitGroup
	cmdLock    sync.Mutex
	pendingCmd map[uint16]NodeCommand
	rx         chan vexlink.Msg
}

func NewDeviceNode(bus vexlink.BusInterface, port uint8) (n *DeviceNode, err error) {
	n = &DeviceNode{
		port:       port,
		bus:        bus,
		lock:       new(sync.Mutex),
		pending:    sync.WaitGroup{},
		pendingCmd: make(map[uint16]NodeCommand),
		rx:         make(chan vexlink.Msg),
	}

	// the listener must be on the bus before the handshake frame goes out,
	// or a fast device reply is dropped on the floor
	bus.AddListener(port, n.rx)
	go n.listen()

	// check the device firmware is acceptable before handing it out
	vc := &CMDVersion{
		&BaseCommand{
			node: n,
		},
	}

	resp, err := n.Process(vc)
	if err != nil {
		return
	}

	versionString := string(resp.Data)
	semVer, err := semver.NewVersion(versionString)
	if err != nil {
		if versionString == "DEV" {
			// bench firmware built straight from the tree, let it through
			return n, nil
		}
		return nil, fmt.Errorf("port %d reports unusable firmware %q", port, versionString)
	}

	semVerConstraint, err := semver.NewConstraint(FIRMWARE_VERSION)
	if err != nil {
		return
	}

	if !semVerConstraint.Check(semVer) {
		err = fmt.Errorf("unable to use port %d: recieved version %s - require %s", port, versionString, FIRMWARE_VERSION)
	}

	return
}

func (n *DeviceNode) Port() uint8 {
	return n.port
}

func (n *DeviceNode) SendMsg(msg vexlink.Msg) error {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.bus.SendMsg(msg)
}

// Process sends the command and waits for an acknowledgement from the
// device. Commands that are not acknowledged within CMD_TIMEOUT are resent
// up to CMD_MAX_RETRIES times; a send can be cancelled via Abort. The
// response frame is returned for commands that carry data back.
func (n *DeviceNode) Process(cmd NodeCommand) (resp vexlink.Msg, err error) {
	b := cmd.base()

	n.pending.Add(1)
	defer n.pending.Done()

	if b.ack == nil {
		b.ack = make(chan vexlink.Msg)
	}
	if b.abort == nil {
		b.abort = make(chan struct{})
	}

	// register the callback before the first send so a fast ACK cannot slip
	// past us
	msg := cmd.Msg()
	n.registerCmd(cmd)
	defer n.releaseCmd(cmd)

	err = n.SendMsg(msg)
	if err != nil {
		return resp, err
	}

	for i := 1; i < CMD_MAX_RETRIES; i++ {
		select {
		case resp := <-b.ack:
			if b.verify(resp) {
				return resp, nil
			}

		case <-b.abort:
			return resp, ERR_SEND_ABORT

		case <-time.After(CMD_TIMEOUT):
			err = n.SendMsg(msg)
			if err != nil {
				return resp, err
			}
		}
	}

	// we have exhausted MAX_RETRIES
	return resp, ERR_MAX_RETRIES
}

// AbortPending cancels every command currently waiting on the device.
func (n *DeviceNode) AbortPending() {
	n.cmdLock.Lock()
	defer n.cmdLock.Unlock()

	for _, cmd := range n.pendingCmd {
		cmd.Abort()
	}
}

func (n *DeviceNode) registerCmd(cmd NodeCommand) {
	n.cmdLock.Lock()
	n.pendingCmd[cmd.ID()] = cmd
	n.cmdLock.Unlock()
}

func (n *DeviceNode) releaseCmd(cmd NodeCommand) {
	n.cmdLock.Lock()
	delete(n.pendingCmd, cmd.ID())
	n.cmdLock.Unlock()
}

func (n *DeviceNode) listen() {
	for msg := range n.rx {
		n.routeACK(msg)
	}
}

// ackID reconstructs the pending command key from a response frame. Screen
// commands fold the target line into their ID so the echoed line byte is
// folded back in here.
func ackID(msg vexlink.Msg) uint16 {
	switch msg.Cmd {
	case CMD_SET_TEXT, CMD_CLEAR_LINE:
		if len(msg.Data) > 0 {
			return msg.Cmd | uint16(msg.Data[0])
		}
	}
	return msg.Cmd
}

func (n *DeviceNode) routeACK(msg vexlink.Msg) {
	n.cmdLock.Lock()
	cmd, ok := n.pendingCmd[ackID(msg)]
	n.cmdLock.Unlock()

	if !ok {
		// unsolicited frame, nothing is waiting on it
		return
	}

	cmd.Ack(msg)
}

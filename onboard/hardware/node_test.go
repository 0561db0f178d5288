package hardware

import (
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/ridgebots/gosorter/onboard/vexlink"
)

type testBus struct {
	txerr, rxecho bool
	respond       func(msg vexlink.Msg) vexlink.Msg
	txCount       int
	lastTx        vexlink.Msg
	listeners     map[uint8]chan vexlink.Msg
}

func (t *testBus) AddListener(port uint8, rxchan chan vexlink.Msg) {
	t.listeners[port] = rxchan
}

func (t *testBus) SendMsg(msg vexlink.Msg) error {
	t.lastTx = msg
	t.txCount++
	if t.txerr {
		return errors.New("this is a simulated tx error")
	}

	if t.rxecho {
		c, ok := t.listeners[msg.Port]
		if !ok || c == nil {
			return errors.New("unable to find listener")
		}

		resp := msg
		if t.respond != nil {
			resp = t.respond(msg)
		}
		c <- resp // echo back for ACK
	}

	return nil
}

func createTestNodeBus() (tBus *testBus, tNode *DeviceNode) {
	tBus = &testBus{
		listeners: make(map[uint8]chan vexlink.Msg),
	}

	tNode = &DeviceNode{
		port:       4,
		bus:        tBus,
		lock:       new(sync.Mutex),
		pending:    sync.WaitGroup{},
		pendingCmd: make(map[uint16]NodeCommand),
		rx:         make(chan vexlink.Msg),
	}

	tBus.AddListener(tNode.port, tNode.rx)
	go tNode.listen()

	return
}

func TestDeviceNode(t *testing.T) {
	tBus, node := createTestNodeBus()

	Convey("sending a message goes through correctly", t, func() {
		msg := vexlink.Msg{
			Port: 4,
			Cmd:  0xBEEF,
		}

		node.SendMsg(msg)

		So(tBus.lastTx, ShouldResemble, msg)
	})

	Convey("listener is added", t, func() {
		So(tBus.listeners[node.port], ShouldNotBeNil)
	})

	Convey("unsolicited frames are dropped without blocking", t, func() {
		tBus.rxecho = true
		node.SendMsg(vexlink.Msg{Port: 4, Cmd: 0x0999})

		// a second send still works, the listen loop did not wedge
		err := node.SendMsg(vexlink.Msg{Port: 4, Cmd: 0x0999})
		So(err, ShouldBeNil)
	})
}

func TestAbortPending(t *testing.T) {
	Convey("AbortPending cancels a command waiting on the device", t, func() {
		// no echo: the device never answers, so the command sits in the
		// retry loop until something cuts it loose
		_, node := createTestNodeBus()

		result := make(chan error)
		go func() {
			cmd := &CMDReadVel{&BaseCommand{node: node}}
			_, err := node.Process(cmd)
			result <- err
		}()

		// wait for the command to land on the pending table
		for {
			node.cmdLock.Lock()
			waiting := len(node.pendingCmd)
			node.cmdLock.Unlock()
			if waiting > 0 {
				break
			}
			time.Sleep(100 * time.Microsecond)
		}

		node.AbortPending()
		So(<-result, ShouldEqual, ERR_SEND_ABORT)
	})
}

func TestNewDeviceNode(t *testing.T) {
	Convey("firmware handshake", t, func() {
		tBus := &testBus{
			listeners: make(map[uint8]chan vexlink.Msg),
			rxecho:    true,
		}

		Convey("matching semver is accepted", func() {
			tBus.respond = func(msg vexlink.Msg) vexlink.Msg {
				msg.Data = []byte("1.0.2")
				return msg
			}

			node, err := NewDeviceNode(tBus, 1)
			So(err, ShouldBeNil)
			So(node, ShouldNotBeNil)
			So(node.Port(), ShouldEqual, 1)

			// the listener was registered before the version request went
			// out, so the immediate reply landed without a retry
			So(tBus.txCount, ShouldEqual, 1)
		})

		Convey("DEV firmware is accepted", func() {
			tBus.respond = func(msg vexlink.Msg) vexlink.Msg {
				msg.Data = []byte("DEV")
				return msg
			}

			_, err := NewDeviceNode(tBus, 2)
			So(err, ShouldBeNil)
		})

		Convey("out of range semver is rejected", func() {
			tBus.respond = func(msg vexlink.Msg) vexlink.Msg {
				msg.Data = []byte("2.0.0")
				return msg
			}

			_, err := NewDeviceNode(tBus, 3)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "require")
		})

		Convey("garbage version is rejected", func() {
			tBus.respond = func(msg vexlink.Msg) vexlink.Msg {
				msg.Data = []byte("0xDEADBEEF")
				return msg
			}

			_, err := NewDeviceNode(tBus, 5)
			So(err, ShouldNotBeNil)
		})
	})
}

package hardware

import (
	"encoding/binary"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/ridgebots/gosorter/onboard/vexlink"
)

func TestBaseCommand(t *testing.T) {
	tBus, tNode := createTestNodeBus()

	Convey("without sending abort errors", t, func() {
		cmd := &BaseCommand{}
		err := cmd.Abort()
		So(err, ShouldNotBeNil)
	})

	Convey("Process tries multiple times before timing out", t, func() {
		cmd := &BaseCommand{
			node: tNode,
			msg: vexlink.Msg{
				Port: tNode.port,
				Cmd:  0x0123,
			},
		}
		tBus.txCount = 0
		_, err := tNode.Process(cmd)
		So(err, ShouldEqual, ERR_MAX_RETRIES)
		So(tBus.txCount, ShouldEqual, CMD_MAX_RETRIES)

		Convey("aborting returns correct error and does not send till max", func() {
			// need to create the channel manually else Abort will error
			cmd.abort = make(chan struct{})
			go cmd.Abort() // trigger the abort first
			tBus.txCount = 0
			_, err := tNode.Process(cmd)
			So(err, ShouldEqual, ERR_SEND_ABORT)
			So(tBus.txCount, ShouldBeLessThan, CMD_MAX_RETRIES)
		})

		Convey("successful send with ACK returns without an err", func() {
			cmd := &BaseCommand{
				node: tNode,
				msg: vexlink.Msg{
					Port: tNode.port,
					Cmd:  0x0124,
				},
			}
			tBus.rxecho = true
			resp, err := tNode.Process(cmd)
			So(err, ShouldBeNil)
			So(resp.Port, ShouldEqual, tNode.port)
			So(tBus.lastTx, ShouldResemble, cmd.msg)
		})
	})
}

func TestCommandEncoding(t *testing.T) {
	_, tNode := createTestNodeBus()

	Convey("spin command carries the rpm", t, func() {
		cmd := &CMDSpin{
			BaseCommand: &BaseCommand{node: tNode},
			rpm:         -200,
		}
		msg := cmd.Msg()

		So(msg.Cmd, ShouldEqual, CMD_SPIN)
		So(msg.Port, ShouldEqual, tNode.port)
		So(int16(binary.BigEndian.Uint16(msg.Data)), ShouldEqual, -200)
	})

	Convey("relative move carries centidegrees and rpm", t, func() {
		cmd := &CMDMoveRel{
			BaseCommand: &BaseCommand{node: tNode},
			degrees:     -90,
			rpm:         100,
		}
		msg := cmd.Msg()

		So(msg.Cmd, ShouldEqual, CMD_MOVE_REL)
		So(int32(binary.BigEndian.Uint32(msg.Data[0:4])), ShouldEqual, -9000)
		So(int16(binary.BigEndian.Uint16(msg.Data[4:6])), ShouldEqual, 100)
	})

	Convey("screen text folds the line into the command ID", t, func() {
		cmd := &CMDSetText{
			BaseCommand: &BaseCommand{node: tNode},
			line:        2,
			col:         1,
			text:        "Hi!",
		}
		msg := cmd.Msg()

		So(cmd.ID(), ShouldEqual, CMD_SET_TEXT|2)
		So(msg.Data[0], ShouldEqual, 2)
		So(msg.Data[1], ShouldEqual, 1)
		So(string(msg.Data[2:]), ShouldEqual, "Hi!")

		Convey("oversized fragments are clamped to the payload", func() {
			cmd := &CMDSetText{
				BaseCommand: &BaseCommand{node: tNode},
				text:        "too long for one frame",
			}
			msg := cmd.Msg()
			So(len(msg.Data), ShouldBeLessThanOrEqualTo, vexlink.MAX_DATA_LEN)
		})
	})
}

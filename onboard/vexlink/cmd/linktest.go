package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/ridgebots/gosorter/onboard/vexlink"
)

// Loopback diagnostic for the smart port link. Wire tx to rx on the tty,
// send a probe frame and watch it come back.
func main() {
	tty := flag.String("tty", "/dev/ttyACM1", "serial device for the smart port link")
	port := flag.Uint("port", 1, "smart port to probe")
	flag.Parse()

	fmt.Println("Opening listener on", *tty)
	bus, err := vexlink.NewSerialBus(*tty)
	if err != nil {
		panic(err)
	}

	rxc := make(chan vexlink.Msg)
	bus.AddListener(uint8(*port), rxc)

	go func(rxc chan vexlink.Msg) {
		for {
			msg := <-rxc

			fmt.Printf("port %d \t0x%04x \t[%d] \t", msg.Port, msg.Cmd, len(msg.Data))
			for i := 0; i < len(msg.Data); i++ {
				fmt.Printf("%02x ", msg.Data[i])
			}
			fmt.Printf("\n")
		}
	}(rxc)

	msg := vexlink.Msg{
		Port: uint8(*port),
		Cmd:  0x03E0, // version probe
	}

	if err := bus.SendMsg(msg); err != nil {
		panic(err)
	}

	time.Sleep(1 * time.Second)
}

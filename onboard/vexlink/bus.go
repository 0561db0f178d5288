package vexlink

import (
	"log"
	"sync"
	"time"

	"github.com/goburrow/serial"
)

const LINK_BAUD = 115200

type BusInterface interface {
	SendMsg(msg Msg) error
	AddListener(port uint8, rxchan chan Msg)
}

// SerialBus frames messages over the smart port serial link. One bus per
// tty; devices are addressed by port and replies are routed back to the
// listener registered for that port.
type SerialBus struct {
	port serial.Port
	Tx   chan Msg
	rx   map[uint8]chan Msg
	lock sync.Mutex
	quit chan struct{}
}

func NewSerialBus(ttyName string) (bus *SerialBus, err error) {
	port, err := serial.Open(&serial.Config{
		Address:  ttyName,
		BaudRate: LINK_BAUD,
		Timeout:  500 * time.Millisecond,
	})
	if err != nil {
		return
	}

	bus = &SerialBus{
		port: port,
		Tx:   make(chan Msg),
		rx:   make(map[uint8]chan Msg),
		quit: make(chan struct{}),
	}

	go bus.reader()
	go bus.writer()

	return
}

// Close releases the tty and winds down the reader and writer loops.
// Closing the port also unblocks a reader parked in Read.
func (b *SerialBus) Close() error {
	select {
	case <-b.quit:
		return nil // already closed
	default:
	}

	close(b.quit)
	return b.port.Close()
}

func (b *SerialBus) AddListener(port uint8, rxchan chan Msg) {
	b.lock.Lock()
	b.rx[port] = rxchan
	b.lock.Unlock()
}

func (b *SerialBus) SendMsg(msg Msg) error {
	if len(msg.Data) > MAX_DATA_LEN {
		return ERR_DATA_TOO_LONG
	}

	select {
	case b.Tx <- msg:
		return nil
	case <-b.quit:
		return ERR_BUS_CLOSED
	}
}

func (b *SerialBus) writer() {
	for {
		select {
		case <-b.quit:
			return
		case msg := <-b.Tx:
			raw, err := msg.ToByteArray()
			if err != nil {
				log.Println("vexlink tx:", err)
				continue
			}
			if _, err = b.port.Write(raw); err != nil {
				log.Println("vexlink tx:", err)
			}
		}
	}
}

func (b *SerialBus) reader() {
	var pending []byte
	buf := make([]byte, FRAME_LEN)

	for {
		select {
		case <-b.quit:
			return
		default:
		}

		n, err := b.port.Read(buf)
		if err != nil || n == 0 {
			continue
		}
		pending = append(pending, buf[:n]...)

		// resync on SOF and drain every complete frame in the buffer
		for {
			for len(pending) > 0 && pending[0] != FRAME_SOF {
				pending = pending[1:]
			}
			if len(pending) < FRAME_LEN {
				break
			}

			msg, err := MsgFromByteArray(pending[:FRAME_LEN])
			if err != nil {
				// bad frame, skip the SOF byte and resync
				pending = pending[1:]
				continue
			}
			pending = pending[FRAME_LEN:]

			b.lock.Lock()
			c, ok := b.rx[msg.Port]
			b.lock.Unlock()
			if ok && c != nil {
				c <- msg
			}
		}
	}
}

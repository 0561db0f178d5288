package comms

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ridgebots/gosorter/onboard"
)

const FRAMERATE = 20

// Conductor owns the device on behalf of every connected dashboard
// client: commands come in over their websockets, telemetry fans back
// out at a fixed framerate.
type Conductor struct {
	Device onboard.RingBot

	lock    sync.Mutex
	clients []*websocket.Conn
}

func (c *Conductor) AddClient(ws *websocket.Conn) {
	c.lock.Lock()
	c.clients = append(c.clients, ws)
	c.lock.Unlock()
}

// Reply sends a text frame to a single client. Writes go out under the
// same lock as the state broadcast; a websocket connection tolerates only
// one writer at a time.
func (c *Conductor) Reply(ws *websocket.Conn, text string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	ws.WriteMessage(websocket.TextMessage, []byte(text))
}

// ProcessCommand applies a single client instruction to the device.
func (c *Conductor) ProcessCommand(cmd Cmd) error {
	switch cmd.Cmd {
	case "alliance":
		color, err := onboard.ParseAllianceColor(cmd.Name)
		if err != nil {
			return err
		}
		c.Device.SetAlliance(color)
		return nil

	case "intake":
		return c.Device.SetIntake(int16(cmd.Value))

	case "sorter":
		switch cmd.Name {
		case "start":
			return c.Device.StartSorter()
		case "stop":
			return c.Device.StopSorter()
		}
		return fmt.Errorf("bad sorter action %q", cmd.Name)

	case "stall":
		switch cmd.Name {
		case "start":
			return c.Device.StartStallGuard()
		case "stop":
			return c.Device.StopStallGuard()
		}
		return fmt.Errorf("bad stall action %q", cmd.Name)

	default:
		return fmt.Errorf("unknown command %q", cmd.Cmd)
	}
}

// ReceiveCommand decodes a raw client frame and applies it.
func (c *Conductor) ReceiveCommand(raw []byte) error {
	var cmd Cmd
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return err
	}

	return c.ProcessCommand(cmd)
}

// UpdateClients pushes device state to every client at FRAMERATE frames
// per second. Clients whose sockets fail are dropped. Runs until the
// process exits.
func (c *Conductor) UpdateClients() {
	for {
		c.broadcastState()
		time.Sleep(time.Second / FRAMERATE)
	}
}

func (c *Conductor) broadcastState() {
	c.lock.Lock()
	defer c.lock.Unlock()

	if len(c.clients) == 0 {
		return
	}

	payload := StatePayload{
		SorterBotState: c.Device.GetState(),
		Clients:        len(c.clients),
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		log.Println("conductor: marshal state:", err)
		return
	}

	live := c.clients[:0]
	for _, ws := range c.clients {
		if err := ws.WriteMessage(websocket.TextMessage, buf); err != nil {
			ws.Close()
			continue
		}
		live = append(live, ws)
	}
	c.clients = live
}

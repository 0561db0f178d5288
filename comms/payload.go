package comms

import (
	"github.com/ridgebots/gosorter/onboard"
)

// StatePayload is the telemetry frame pushed to every dashboard client.
type StatePayload struct {
	onboard.SorterBotState
	Clients int `json:"clients"`
}

// Cmd is a single instruction from a dashboard client.
type Cmd struct {
	Cmd   string
	Name  string
	Value float64
}

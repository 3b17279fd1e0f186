// Package wiz speaks the WiZ bulb UDP control protocol: compact JSON
// datagrams on port 38899, best-effort, no delivery guarantee.
package wiz

import (
	"encoding/json"

	"github.com/guidoenr/wizsync/internal/lighting"
)

// DefaultPort is the WiZ control port.
const DefaultPort = 38899

// Command is the wire-level envelope. Stateless and single-use: built fresh
// for every emission.
type Command struct {
	ID     int    `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// PilotParams carries a color/brightness target.
type PilotParams struct {
	R       int `json:"r"`
	G       int `json:"g"`
	B       int `json:"b"`
	Dimming int `json:"dimming"`
}

// StateParams switches a bulb on or off.
type StateParams struct {
	State bool `json:"state"`
}

// SetPilot builds the control command for a lighting state.
func SetPilot(s lighting.State) Command {
	return Command{
		ID:     1,
		Method: "setPilot",
		Params: PilotParams{
			R:       int(s.R),
			G:       int(s.G),
			B:       int(s.B),
			Dimming: s.Dimming,
		},
	}
}

// SetPower builds an on/off command.
func SetPower(on bool) Command {
	return Command{ID: 1, Method: "setState", Params: StateParams{State: on}}
}

// GetPilot builds the status/discovery probe.
func GetPilot() Command {
	return Command{ID: 1, Method: "getPilot"}
}

// Encode marshals the command for the wire.
func (c Command) Encode() ([]byte, error) {
	return json.Marshal(c)
}

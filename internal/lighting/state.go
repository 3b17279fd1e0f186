// Package lighting turns the live feature stream and the active track profile
// into target color/brightness states at the output cadence.
package lighting

import (
	"time"

	"github.com/guidoenr/wizsync/internal/profile"
)

// State is one lighting decision: RGB plus a 0-100 dimming level. Only the
// most recent State matters; stale ones are superseded, never queued.
type State struct {
	R, G, B uint8
	Dimming int
	At      time.Time
}

// Blackout is the all-off state emitted while idle or silent.
func Blackout() State { return State{} }

// Phase of the generator state machine.
type Phase int

const (
	// PhaseIdle: no playback, no output beyond blackout.
	PhaseIdle Phase = iota
	// PhaseTracking: normal playback-synchronized output.
	PhaseTracking
	// PhaseTransition: blending across a track boundary.
	PhaseTransition
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseTracking:
		return "tracking"
	case PhaseTransition:
		return "transition"
	}
	return "unknown"
}

// GenState carries everything the transition function needs between ticks.
// It is a value: Step returns a new one instead of mutating.
type GenState struct {
	Phase   Phase
	Profile profile.TrackProfile

	// Smoothed output channels, 0..1 for color and 0..100 for brightness.
	Red, Green, Blue float64
	Bright           float64

	// Hue drift phase for the gradient mode, degrees.
	Hue float64

	// PrevDim is the dimming emitted on the previous tick; the per-tick
	// brightness bound applies to the emitted value, blending included.
	PrevDim int

	// Transition bookkeeping.
	TransitionLeft int
	TransitionFrom State
}

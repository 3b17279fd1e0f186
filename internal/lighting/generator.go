package lighting

import (
	"math"
	"time"

	"github.com/guidoenr/wizsync/internal/analyzer"
	"github.com/guidoenr/wizsync/internal/profile"
)

// Config holds the generator tunables. The zero value uses the defaults.
type Config struct {
	// SilenceRMS is the normalized RMS below which output goes dark.
	SilenceRMS float64
	// TransitionTicks is the length of the track-boundary blend.
	TransitionTicks int
	// MaxBrightnessStep bounds the per-tick dimming change so no single tick
	// produces a visible jump.
	MaxBrightnessStep float64
}

func (c Config) withDefaults() Config {
	if c.SilenceRMS <= 0 {
		c.SilenceRMS = 0.005
	}
	if c.TransitionTicks <= 0 {
		c.TransitionTicks = 14
	}
	if c.MaxBrightnessStep <= 0 {
		c.MaxBrightnessStep = 12
	}
	return c
}

// Step is the pure state-transition function: given the previous generator
// state and the most recent feature sample, it produces the next state and
// the lighting decision for this tick. No timing, no I/O.
func Step(cfg Config, gs GenState, feat analyzer.FeatureSample) (GenState, State) {
	cfg = cfg.withDefaults()

	if gs.Phase == PhaseIdle {
		gs.Red, gs.Green, gs.Blue, gs.Bright = 0, 0, 0, 0
		gs.PrevDim = 0
		return gs, Blackout()
	}

	var tgt target
	if feat.RMS < cfg.SilenceRMS {
		tgt = target{hue: gs.Hue}
	} else {
		switch gs.Profile.Mode {
		case profile.ModeSpectrumPulse:
			tgt = mapPulse(feat, gs.Profile)
		default:
			tgt = mapGradient(gs.Hue, feat, gs.Profile)
			gs.Hue = tgt.hue
		}
	}

	// Exponential smoothing: higher smoothness keeps more of the previous
	// output, lower snaps to the new target.
	s := clampF(gs.Profile.Smoothness, 0, 0.99)
	gs.Red = s*gs.Red + (1-s)*tgt.r
	gs.Green = s*gs.Green + (1-s)*tgt.g
	gs.Blue = s*gs.Blue + (1-s)*tgt.b

	bright := s*gs.Bright + (1-s)*tgt.bright
	if delta := bright - gs.Bright; math.Abs(delta) > cfg.MaxBrightnessStep {
		if delta > 0 {
			bright = gs.Bright + cfg.MaxBrightnessStep
		} else {
			bright = gs.Bright - cfg.MaxBrightnessStep
		}
	}
	gs.Bright = bright

	out := State{
		R:       channel(gs.Red),
		G:       channel(gs.Green),
		B:       channel(gs.Blue),
		Dimming: int(math.Round(gs.Bright)),
	}

	if gs.Phase == PhaseTransition {
		// Fade the old track's last state out over the transition window.
		w := float64(gs.TransitionLeft) / float64(cfg.TransitionTicks)
		out = blend(gs.TransitionFrom, out, w)
		gs.TransitionLeft--
		if gs.TransitionLeft <= 0 {
			gs.Phase = PhaseTracking
		}
	}

	// The step bound holds on the emitted value: blending adds its own
	// movement on top of the smoothed channel, so the clamp comes last.
	maxStep := int(cfg.MaxBrightnessStep)
	if d := out.Dimming - gs.PrevDim; d > maxStep {
		out.Dimming = gs.PrevDim + maxStep
	} else if d < -maxStep {
		out.Dimming = gs.PrevDim - maxStep
	}
	gs.PrevDim = out.Dimming

	return gs, out
}

// blend mixes a into b with weight w on a.
func blend(a, b State, w float64) State {
	w = clampF(w, 0, 1)
	mix := func(x, y float64) float64 { return x*w + y*(1-w) }
	return State{
		R:       channel(mix(float64(a.R), float64(b.R)) / 255.0),
		G:       channel(mix(float64(a.G), float64(b.G)) / 255.0),
		B:       channel(mix(float64(a.B), float64(b.B)) / 255.0),
		Dimming: int(math.Round(mix(float64(a.Dimming), float64(b.Dimming)))),
	}
}

func channel(v float64) uint8 {
	return uint8(math.Round(clamp01(v) * 255.0))
}

// Generator owns a GenState and applies Step at the session's tick cadence.
// It is the only writer of its state; the session calls it from one goroutine.
type Generator struct {
	cfg  Config
	gs   GenState
	last State
}

// NewGenerator creates an idle generator.
func NewGenerator(cfg Config) *Generator {
	return &Generator{cfg: cfg.withDefaults()}
}

// SetProfile activates a track profile. From Idle this starts tracking
// directly; during tracking it enters a short transition that blends the old
// track's output into the new one.
func (g *Generator) SetProfile(p profile.TrackProfile) {
	switch g.gs.Phase {
	case PhaseIdle:
		g.gs.Phase = PhaseTracking
	default:
		g.gs.Phase = PhaseTransition
		g.gs.TransitionLeft = g.cfg.TransitionTicks
		g.gs.TransitionFrom = g.last
	}
	g.gs.Profile = p
}

// Stop resets the machine to Idle from any phase.
func (g *Generator) Stop() {
	g.gs = GenState{}
	g.last = Blackout()
}

// Phase reports the current state-machine phase.
func (g *Generator) Phase() Phase { return g.gs.Phase }

// Tick advances the machine one output tick using the most recent feature
// sample and stamps the emitted state.
func (g *Generator) Tick(feat analyzer.FeatureSample) State {
	gs, out := Step(g.cfg, g.gs, feat)
	out.At = time.Now()
	g.gs = gs
	g.last = out
	return out
}

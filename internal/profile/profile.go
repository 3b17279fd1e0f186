// Package profile classifies whole-track feature sequences into a lighting
// mode and parameter set.
package profile

import "fmt"

// Mode selects the lighting response character for a track.
type Mode string

const (
	// ModeSpectrumPulse is the discrete, percussive response for
	// transient-rich or bass-heavy material.
	ModeSpectrumPulse Mode = "spectrum_pulse"
	// ModeSpectrumGradient is the smooth, continuous color drift for dense,
	// compressed material. Also the safe default.
	ModeSpectrumGradient Mode = "spectrum_gradient"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeSpectrumPulse, ModeSpectrumGradient:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown lighting mode %q", s)
}

// TrackProfile is the classification result for one track. It is created once
// after the pre-pass, immutable for the track's playback, and replaced
// wholesale when a new track begins.
type TrackProfile struct {
	Mode Mode
	// Sensitivity is the inverse-loudness gain applied to per-block RMS so
	// quiet and loud tracks land in a comparable output range.
	Sensitivity float64
	// Smoothness is the exponential-smoothing weight on the previous lighting
	// output. Higher means slower, softer response.
	Smoothness float64
	// BrightnessBoost scales the brightness range of the color mapping.
	BrightnessBoost float64
	// Reason is a human-readable explanation of the decision.
	Reason string
}

// Default is the fallback profile when no pre-pass data is available:
// the gradient mode with mid-range parameters.
func Default() TrackProfile {
	return TrackProfile{
		Mode:            ModeSpectrumGradient,
		Sensitivity:     1.5,
		Smoothness:      0.85,
		BrightnessBoost: 1.2,
		Reason:          "no pre-pass data, safe default",
	}
}

package lighting

import (
	"math"

	"github.com/guidoenr/wizsync/internal/analyzer"
	"github.com/guidoenr/wizsync/internal/profile"
)

// target is an unsmoothed per-tick color decision.
type target struct {
	r, g, b float64 // 0..1
	bright  float64 // 0..100
	hue     float64 // advanced drift phase, gradient mode only
}

const minBrightness = 10.0

// mapPulse is the discrete, percussive mapping: frequency bands drive the
// channels directly (bass red, mids green, treble blue) and brightness rides
// the low end so kicks translate into visible swings.
func mapPulse(feat analyzer.FeatureSample, p profile.TrackProfile) target {
	level := clamp01(feat.RMS * p.Sensitivity)

	// Power curve compresses weak bands and emphasizes strong ones.
	r := math.Pow(feat.Bass, 1.5)
	g := math.Pow(feat.Mid, 1.5)
	b := math.Pow(feat.Treble, 1.5)

	drive := clamp01(0.6*feat.Bass + 0.4*level)
	bright := clampF(minBrightness+drive*90.0*p.BrightnessBoost, 0, 100)

	return target{r: r, g: g, b: b, bright: bright}
}

// mapGradient is the smooth mapping: a slowly drifting hue whose speed leans
// on the low end, with brightness following overall level.
func mapGradient(hue float64, feat analyzer.FeatureSample, p profile.TrackProfile) target {
	level := clamp01(feat.RMS * p.Sensitivity)

	hue = math.Mod(hue+0.8+feat.Bass*4.0+feat.Treble*1.5, 360.0)
	r, g, b := hsvToRGB(hue, 0.85+0.15*feat.Bass, 0.4+0.6*level)

	bright := clampF(minBrightness+level*90.0*p.BrightnessBoost, 0, 100)

	return target{r: r, g: g, b: b, bright: bright, hue: hue}
}

// hsvToRGB converts hue (degrees), saturation and value in [0,1] to RGB in
// [0,1].
func hsvToRGB(h, s, v float64) (float64, float64, float64) {
	s = clamp01(s)
	v = clamp01(v)
	h = math.Mod(h, 360.0)
	if h < 0 {
		h += 360.0
	}

	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60.0, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return r + m, g + m, b + m
}

func clamp01(v float64) float64 {
	return clampF(v, 0, 1)
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

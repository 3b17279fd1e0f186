package analyzer

import (
	"math"

	"github.com/guidoenr/wizsync/internal/source"
)

// FeatureSample is the per-block feature set handed to the classifier and the
// lighting generator. One per block, in block order.
type FeatureSample struct {
	// CrestFactor is peak over RMS amplitude, >= 1. Silent blocks report 1.0
	// by convention (flat, no dynamics).
	CrestFactor float64
	// RMS is the linear RMS amplitude of the block, >= 0.
	RMS float64
	// BassRatio is the share of spectral energy in the bass band, in [0, 1].
	BassRatio float64

	// Band levels in [0, 1] for color mapping.
	Bass   float64
	Mid    float64
	Treble float64

	Seq uint64
}

// RMS computes root-mean-square amplitude of a sample run.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// CrestFactor computes peak over RMS amplitude. Silence yields 1.0.
func CrestFactor(samples []float32) float64 {
	rms := RMS(samples)
	if rms == 0 {
		return 1.0
	}
	peak := 0.0
	for _, s := range samples {
		v := math.Abs(float64(s))
		if v > peak {
			peak = v
		}
	}
	cf := peak / rms
	if cf < 1.0 {
		return 1.0
	}
	return cf
}

// Extract combines a spectral frame with its source block into a feature
// sample. gain pre-scales the RMS; the pipeline passes 1.0 and leaves
// loudness normalization to the color mapper, which applies the track
// sensitivity exactly once. Pure function of its inputs.
func Extract(f Frame, b source.Block, gain float64) FeatureSample {
	if gain <= 0 {
		gain = 1.0
	}

	// Band levels scale against the frame's own peak so quiet passages still
	// produce usable color spread.
	scale := 2.0 / (f.Peak + 10.0)

	return FeatureSample{
		CrestFactor: CrestFactor(b.Samples),
		RMS:         RMS(b.Samples) * gain,
		BassRatio:   f.BassRatio(),
		Bass:        clamp01(f.BassSum * scale),
		Mid:         clamp01(f.MidSum * scale),
		Treble:      clamp01(f.TrebleSum * scale),
		Seq:         b.Seq,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

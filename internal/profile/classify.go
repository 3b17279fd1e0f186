package profile

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/guidoenr/wizsync/internal/analyzer"
)

// Config holds the tunable classification thresholds. The zero value uses the
// defaults below.
type Config struct {
	// BassDominant is the mean bass-ratio above which a track is considered
	// bass-driven.
	BassDominant float64
	// PunchyCrest is the aggregated crest factor above which a track counts
	// as transient-rich.
	PunchyCrest float64
	// CrestQuantile picks the high percentile used to aggregate per-block
	// crest factors, robust against quiet intros and outros.
	CrestQuantile float64
	// ReferenceLoudness is the RMS target the sensitivity gain normalizes to.
	ReferenceLoudness float64
	// MinSensitivity and MaxSensitivity clamp the derived gain.
	MinSensitivity float64
	MaxSensitivity float64
}

func (c Config) withDefaults() Config {
	if c.BassDominant <= 0 {
		c.BassDominant = 0.40
	}
	if c.PunchyCrest <= 0 {
		c.PunchyCrest = 3.0
	}
	if c.CrestQuantile <= 0 || c.CrestQuantile >= 1 {
		c.CrestQuantile = 0.85
	}
	if c.ReferenceLoudness <= 0 {
		c.ReferenceLoudness = 0.16
	}
	if c.MinSensitivity <= 0 {
		c.MinSensitivity = 0.5
	}
	if c.MaxSensitivity <= c.MinSensitivity {
		c.MaxSensitivity = 6.0
	}
	return c
}

// Stats aggregates a track's feature sequence.
type Stats struct {
	CrestHigh     float64 // high-quantile crest factor
	CrestMean     float64
	CrestVariance float64
	BassMean      float64
	RMSMean       float64
	Blocks        int
}

// Classifier turns whole-track feature sequences into TrackProfiles. It runs
// once per track, before synchronized output starts.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a Classifier with the given thresholds.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg.withDefaults()}
}

// Aggregate computes track-level statistics from an ordered feature sequence.
func (c *Classifier) Aggregate(samples []analyzer.FeatureSample) Stats {
	if len(samples) == 0 {
		return Stats{}
	}

	crests := make([]float64, len(samples))
	ratios := make([]float64, len(samples))
	levels := make([]float64, len(samples))
	for i, s := range samples {
		crests[i] = s.CrestFactor
		ratios[i] = s.BassRatio
		levels[i] = s.RMS
	}

	sorted := append([]float64(nil), crests...)
	sort.Float64s(sorted)

	return Stats{
		CrestHigh:     stat.Quantile(c.cfg.CrestQuantile, stat.Empirical, sorted, nil),
		CrestMean:     stat.Mean(crests, nil),
		CrestVariance: stat.Variance(crests, nil),
		BassMean:      stat.Mean(ratios, nil),
		RMSMean:       stat.Mean(levels, nil),
		Blocks:        len(samples),
	}
}

// Classify maps a track's feature sequence to a TrackProfile. Deterministic:
// identical sequences yield identical profiles. An empty sequence falls back
// to the safe default rather than blocking playback.
func (c *Classifier) Classify(samples []analyzer.FeatureSample) TrackProfile {
	if len(samples) == 0 {
		return Default()
	}

	st := c.Aggregate(samples)
	sensitivity := clampRange(
		c.cfg.ReferenceLoudness/(st.RMSMean+0.001),
		c.cfg.MinSensitivity, c.cfg.MaxSensitivity,
	)

	switch {
	case st.BassMean > c.cfg.BassDominant:
		return TrackProfile{
			Mode:            ModeSpectrumPulse,
			Sensitivity:     sensitivity,
			Smoothness:      0.78,
			BrightnessBoost: 1.0,
			Reason:          fmt.Sprintf("bass-dominant (ratio %.2f)", st.BassMean),
		}
	case st.CrestHigh > c.cfg.PunchyCrest:
		return TrackProfile{
			Mode:            ModeSpectrumPulse,
			Sensitivity:     sensitivity,
			Smoothness:      0.80,
			BrightnessBoost: 1.1,
			Reason:          fmt.Sprintf("punchy dynamics (crest %.2f)", st.CrestHigh),
		}
	default:
		// Dense, limited dynamic range: smooth drift, lifted gain.
		return TrackProfile{
			Mode:            ModeSpectrumGradient,
			Sensitivity:     clampRange(sensitivity*1.5, c.cfg.MinSensitivity, c.cfg.MaxSensitivity),
			Smoothness:      0.90,
			BrightnessBoost: 1.4,
			Reason:          fmt.Sprintf("compressed wall of sound (crest %.2f)", st.CrestHigh),
		}
	}
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

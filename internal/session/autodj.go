package session

import (
	"time"

	"github.com/guidoenr/wizsync/internal/analyzer"
	"github.com/guidoenr/wizsync/internal/profile"
)

// AutoDJ is the live-capture counterpart of the pre-pass classifier: with no
// track boundary to scan ahead of, it keeps a sliding crest-factor window and
// re-picks the mode with hysteresis plus a hold time, so the lights do not
// flap between modes on borderline material.
type AutoDJ struct {
	classifier *profile.Classifier

	crests  []float64
	maxHist int

	current    profile.Mode
	lastSwitch time.Time
	hold       time.Duration
	now        func() time.Time
}

// NewAutoDJ builds a live mode tracker starting in the gradient mode.
func NewAutoDJ(classifier *profile.Classifier) *AutoDJ {
	return &AutoDJ{
		classifier: classifier,
		maxHist:    40,
		current:    profile.ModeSpectrumGradient,
		hold:       3 * time.Second,
		now:        time.Now,
	}
}

// Observe folds one feature sample into the window. It returns a fresh
// profile and true when the mode flipped; otherwise false.
func (d *AutoDJ) Observe(feat analyzer.FeatureSample) (profile.TrackProfile, bool) {
	d.crests = append(d.crests, feat.CrestFactor)
	if len(d.crests) > d.maxHist {
		copy(d.crests, d.crests[1:])
		d.crests = d.crests[:len(d.crests)-1]
	}

	now := d.now()
	if now.Sub(d.lastSwitch) < d.hold || len(d.crests) == 0 {
		return profile.TrackProfile{}, false
	}

	avg := 0.0
	for _, c := range d.crests {
		avg += c
	}
	avg /= float64(len(d.crests))

	// Hysteresis band between 2.8 and 3.0 keeps the current mode.
	next := d.current
	switch {
	case avg > 3.0:
		next = profile.ModeSpectrumPulse
	case avg < 2.8:
		next = profile.ModeSpectrumGradient
	}
	if next == d.current {
		return profile.TrackProfile{}, false
	}

	d.current = next
	d.lastSwitch = now
	return d.Profile(), true
}

// Profile returns a track profile matching the currently selected mode.
func (d *AutoDJ) Profile() profile.TrackProfile {
	p := profile.Default()
	p.Mode = d.current
	if d.current == profile.ModeSpectrumPulse {
		p.Smoothness = 0.80
		p.BrightnessBoost = 1.1
	}
	return p
}

// Mode reports the currently selected mode.
func (d *AutoDJ) Mode() profile.Mode { return d.current }

package lighting

import (
	"math"
	"testing"

	"github.com/guidoenr/wizsync/internal/analyzer"
	"github.com/guidoenr/wizsync/internal/profile"
)

func pulseProfile(sensitivity float64) profile.TrackProfile {
	return profile.TrackProfile{
		Mode:            profile.ModeSpectrumPulse,
		Sensitivity:     sensitivity,
		Smoothness:      0.5,
		BrightnessBoost: 1.0,
	}
}

func gradientProfile(sensitivity float64) profile.TrackProfile {
	return profile.TrackProfile{
		Mode:            profile.ModeSpectrumGradient,
		Sensitivity:     sensitivity,
		Smoothness:      0.9,
		BrightnessBoost: 1.4,
	}
}

func loudFeature(bass float64) analyzer.FeatureSample {
	return analyzer.FeatureSample{
		CrestFactor: 3.0,
		RMS:         0.4,
		BassRatio:   bass,
		Bass:        bass,
		Mid:         0.4,
		Treble:      0.3,
	}
}

func TestIdleEmitsBlackout(t *testing.T) {
	g := NewGenerator(Config{})
	out := g.Tick(loudFeature(0.9))
	if out.R != 0 || out.G != 0 || out.B != 0 || out.Dimming != 0 {
		t.Fatalf("idle output=%+v, want blackout", out)
	}
	if g.Phase() != PhaseIdle {
		t.Fatalf("phase=%s, want idle", g.Phase())
	}
}

func TestStepIsPure(t *testing.T) {
	cfg := Config{}
	gs := GenState{Phase: PhaseTracking, Profile: pulseProfile(1.0)}
	feat := loudFeature(0.8)

	gs1, out1 := Step(cfg, gs, feat)
	gs2, out2 := Step(cfg, gs, feat)
	if gs1 != gs2 || out1 != out2 {
		t.Fatalf("step not deterministic: (%+v,%+v) vs (%+v,%+v)", gs1, out1, gs2, out2)
	}
}

func TestPulseTracksBass(t *testing.T) {
	heavy := NewGenerator(Config{})
	heavy.SetProfile(pulseProfile(1.0))
	light := NewGenerator(Config{})
	light.SetProfile(pulseProfile(1.0))

	var heavyOut, lightOut State
	for i := 0; i < 40; i++ {
		heavyOut = heavy.Tick(loudFeature(0.95))
		lightOut = light.Tick(loudFeature(0.05))
	}
	if heavyOut.R <= lightOut.R {
		t.Fatalf("bass-heavy red=%d <= bass-light red=%d", heavyOut.R, lightOut.R)
	}
	if heavyOut.Dimming <= lightOut.Dimming {
		t.Fatalf("bass-heavy dimming=%d <= bass-light dimming=%d", heavyOut.Dimming, lightOut.Dimming)
	}
}

func TestSilenceFadesToDark(t *testing.T) {
	g := NewGenerator(Config{})
	g.SetProfile(pulseProfile(1.0))
	for i := 0; i < 30; i++ {
		g.Tick(loudFeature(0.8))
	}

	silent := analyzer.FeatureSample{CrestFactor: 1.0}
	var out State
	for i := 0; i < 100; i++ {
		out = g.Tick(silent)
	}
	if out.Dimming != 0 {
		t.Fatalf("after sustained silence dimming=%d, want 0", out.Dimming)
	}
}

func TestTransitionHasNoDiscontinuity(t *testing.T) {
	cfg := Config{TransitionTicks: 14, MaxBrightnessStep: 12}
	g := NewGenerator(cfg)
	g.SetProfile(pulseProfile(0.8))

	feat := loudFeature(0.9)
	var prev State
	for i := 0; i < 60; i++ {
		prev = g.Tick(feat)
	}

	g.SetProfile(gradientProfile(0.3))
	if g.Phase() != PhaseTransition {
		t.Fatalf("phase=%s, want transition", g.Phase())
	}

	quiet := loudFeature(0.1)
	quiet.RMS = 0.1
	for i := 0; i < 40; i++ {
		out := g.Tick(quiet)
		if delta := math.Abs(float64(out.Dimming - prev.Dimming)); delta > cfg.MaxBrightnessStep {
			t.Fatalf("tick %d: brightness jump %f exceeds configured max %f", i, delta, cfg.MaxBrightnessStep)
		}
		prev = out
	}
	if g.Phase() != PhaseTracking {
		t.Fatalf("phase after transition window=%s, want tracking", g.Phase())
	}
}

func TestTransitionBoundHoldsWithSnappyProfile(t *testing.T) {
	cfg := Config{TransitionTicks: 14, MaxBrightnessStep: 12}
	g := NewGenerator(cfg)
	g.SetProfile(pulseProfile(1.0))

	var prev State
	for i := 0; i < 40; i++ {
		prev = g.Tick(loudFeature(1.0))
	}

	// Zero smoothing makes the smoothed channel fall as fast as it can while
	// the blend weight adds its own movement on top.
	next := pulseProfile(1.0)
	next.Smoothness = 0
	g.SetProfile(next)

	silent := analyzer.FeatureSample{CrestFactor: 1.0}
	for i := 0; i < 30; i++ {
		out := g.Tick(silent)
		if delta := math.Abs(float64(out.Dimming - prev.Dimming)); delta > cfg.MaxBrightnessStep {
			t.Fatalf("tick %d: dimming step %f, want <= %f", i, delta, cfg.MaxBrightnessStep)
		}
		prev = out
	}
}

func TestStopResetsToIdle(t *testing.T) {
	g := NewGenerator(Config{})
	g.SetProfile(gradientProfile(1.0))
	g.Tick(loudFeature(0.5))

	g.Stop()
	if g.Phase() != PhaseIdle {
		t.Fatalf("phase=%s, want idle", g.Phase())
	}
	if out := g.Tick(loudFeature(0.5)); out.Dimming != 0 {
		t.Fatalf("post-stop output=%+v, want blackout", out)
	}
}

func TestBrightnessStepBound(t *testing.T) {
	cfg := Config{MaxBrightnessStep: 5}
	g := NewGenerator(cfg)
	p := pulseProfile(2.0)
	p.Smoothness = 0 // snappiest possible response
	g.SetProfile(p)

	var prev State
	for i := 0; i < 30; i++ {
		out := g.Tick(loudFeature(1.0))
		if delta := math.Abs(float64(out.Dimming - prev.Dimming)); delta > cfg.MaxBrightnessStep {
			t.Fatalf("tick %d: dimming step %f, want <= %f", i, delta, cfg.MaxBrightnessStep)
		}
		prev = out
	}
}

func TestHSVPrimaries(t *testing.T) {
	r, g, b := hsvToRGB(0, 1, 1)
	if r != 1 || g != 0 || b != 0 {
		t.Fatalf("hue 0: got (%f,%f,%f), want red", r, g, b)
	}
	r, g, b = hsvToRGB(120, 1, 1)
	if r != 0 || g != 1 || b != 0 {
		t.Fatalf("hue 120: got (%f,%f,%f), want green", r, g, b)
	}
	r, g, b = hsvToRGB(240, 1, 1)
	if r != 0 || g != 0 || b != 1 {
		t.Fatalf("hue 240: got (%f,%f,%f), want blue", r, g, b)
	}
}

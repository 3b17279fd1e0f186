package analyzer

import (
	"math"
	"testing"

	"github.com/guidoenr/wizsync/internal/source"
)

func TestSilentBlockConventions(t *testing.T) {
	a := New(Config{})
	block := source.Block{Samples: make([]float32, 2048), SampleRate: 44100, Channels: 1}
	frame, err := a.Analyze(block)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	feat := Extract(frame, block, 1.0)
	if feat.CrestFactor != 1.0 {
		t.Fatalf("silent crest factor=%f, want 1.0", feat.CrestFactor)
	}
	if feat.RMS != 0.0 {
		t.Fatalf("silent rms=%f, want 0.0", feat.RMS)
	}
	if feat.BassRatio != 0.0 {
		t.Fatalf("silent bass ratio=%f, want 0.0", feat.BassRatio)
	}
}

func TestCrestFactorOfSine(t *testing.T) {
	block := sineBlock(100, 44100, 44100, 0)
	// A full-scale sine has crest factor sqrt(2).
	if got := CrestFactor(block.Samples); math.Abs(got-math.Sqrt2) > 0.01 {
		t.Fatalf("sine crest factor=%f, want ~%f", got, math.Sqrt2)
	}
}

func TestCrestFactorNeverBelowOne(t *testing.T) {
	samples := []float32{0.5, 0.5, 0.5, 0.5}
	if got := CrestFactor(samples); got != 1.0 {
		t.Fatalf("dc crest factor=%f, want 1.0", got)
	}
}

func TestRMSGainNormalization(t *testing.T) {
	block := sineBlock(100, 44100, 2048, 0)
	a := New(Config{})
	frame, err := a.Analyze(block)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	base := Extract(frame, block, 1.0)
	boosted := Extract(frame, block, 2.0)
	if math.Abs(boosted.RMS-2*base.RMS) > 1e-9 {
		t.Fatalf("gain 2.0: rms=%f, want %f", boosted.RMS, 2*base.RMS)
	}

	// Non-positive gain falls back to unity rather than zeroing the signal.
	fallback := Extract(frame, block, 0)
	if fallback.RMS != base.RMS {
		t.Fatalf("zero gain: rms=%f, want %f", fallback.RMS, base.RMS)
	}
}

func TestExtractIsDeterministic(t *testing.T) {
	block := sineBlock(440, 44100, 2048, 7)
	a := New(Config{})
	frame, err := a.Analyze(block)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	first := Extract(frame, block, 1.3)
	second := Extract(frame, block, 1.3)
	if first != second {
		t.Fatalf("extract not deterministic: %+v vs %+v", first, second)
	}
	if first.Seq != 7 {
		t.Fatalf("seq=%d, want 7", first.Seq)
	}
}

package analyzer

import (
	"errors"
	"math"
	"testing"

	"github.com/guidoenr/wizsync/internal/source"
)

func sineBlock(freq float64, rate, n int, seq uint64) source.Block {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(math.Sin(2 * math.Pi * freq * float64(i) / float64(rate)))
	}
	return source.Block{Samples: samples, SampleRate: rate, Channels: 1, Seq: seq}
}

func TestAnalyzeBassToneConcentratesEnergy(t *testing.T) {
	a := New(Config{})
	frame, err := a.Analyze(sineBlock(100, 44100, 2048, 0))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if ratio := frame.BassRatio(); ratio < 0.85 {
		t.Fatalf("100 Hz tone: bass ratio=%f, want >= 0.85", ratio)
	}
	if frame.LowConfidence {
		t.Fatalf("unexpected low-confidence flag at 44100 Hz")
	}
}

func TestAnalyzeTrebleToneAvoidsBassBand(t *testing.T) {
	a := New(Config{})
	frame, err := a.Analyze(sineBlock(5000, 44100, 2048, 0))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if ratio := frame.BassRatio(); ratio > 0.05 {
		t.Fatalf("5 kHz tone: bass ratio=%f, want <= 0.05", ratio)
	}
}

func TestAnalyzeEmptyBlockFails(t *testing.T) {
	a := New(Config{})
	_, err := a.Analyze(source.Block{SampleRate: 44100})
	if !errors.Is(err, ErrInvalidBlock) {
		t.Fatalf("empty block: err=%v, want ErrInvalidBlock", err)
	}
}

func TestAnalyzeBadSampleRateFails(t *testing.T) {
	a := New(Config{})
	_, err := a.Analyze(source.Block{Samples: make([]float32, 512)})
	if !errors.Is(err, ErrInvalidBlock) {
		t.Fatalf("zero sample rate: err=%v, want ErrInvalidBlock", err)
	}
}

func TestAnalyzeRecoversAfterInvalidBlock(t *testing.T) {
	a := New(Config{})
	if _, err := a.Analyze(source.Block{SampleRate: 44100}); err == nil {
		t.Fatalf("expected error for empty block")
	}
	if _, err := a.Analyze(sineBlock(100, 44100, 2048, 1)); err != nil {
		t.Fatalf("valid block after invalid one: %v", err)
	}
}

func TestAnalyzeShortBlockZeroPads(t *testing.T) {
	a := New(Config{})
	frame, err := a.Analyze(sineBlock(100, 44100, 1000, 0))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	// 1000 samples pad up to a 1024-point transform.
	if got, want := len(frame.Magnitudes), 1024/2+1; got != want {
		t.Fatalf("bin count=%d, want %d", got, want)
	}
}

func TestAnalyzeDegenerateRate(t *testing.T) {
	a := New(Config{})
	frame, err := a.Analyze(sineBlock(30, 200, 512, 0))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !frame.LowConfidence {
		t.Fatalf("expected low-confidence flag at 200 Hz sample rate")
	}
}

func TestBinForClamps(t *testing.T) {
	if got := binFor(-10, 1024, 44100); got != 0 {
		t.Fatalf("negative freq: bin=%d, want 0", got)
	}
	if got := binFor(40000, 1024, 44100); got != 512 {
		t.Fatalf("above nyquist: bin=%d, want 512", got)
	}
	// 150 Hz at 44100/2048 lands on bin 7.
	if got := binFor(150, 2048, 44100); got != 7 {
		t.Fatalf("150 Hz: bin=%d, want 7", got)
	}
}

func TestNextPow2(t *testing.T) {
	cases := map[int]int{
		0:    1,
		1:    1,
		2:    2,
		3:    4,
		1000: 1024,
		2048: 2048,
	}
	for input, want := range cases {
		if got := nextPow2(input); got != want {
			t.Fatalf("nextPow2(%d)=%d want=%d", input, got, want)
		}
	}
}

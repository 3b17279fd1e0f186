// Package analyzer performs FFT-based spectral analysis on sample blocks and
// extracts the features that drive lighting decisions.
package analyzer

import (
	"errors"
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"

	"github.com/guidoenr/wizsync/internal/source"
)

// ErrInvalidBlock reports a block the analyzer cannot work with: zero length
// or a non-positive sample rate. The pipeline skips the block and continues.
var ErrInvalidBlock = errors.New("invalid sample block")

// Band frequency defaults in Hz.
const (
	DefaultBassLow  = 20.0
	DefaultBassHigh = 150.0
	midHigh         = 4000.0
)

// degenerateRate is the sample rate below which the bass band collapses to
// bin 0 and frames are flagged low-confidence.
const degenerateRate = 300

// Frame holds the spectral decomposition of one block. Its lifetime ends once
// features are extracted.
type Frame struct {
	// Magnitudes per frequency bin, indices 0..N/2.
	Magnitudes []float64
	// BinWidth is the bin-to-frequency step in Hz (R/N).
	BinWidth float64

	// BassEnergy is the bass sub-band magnitude sum normalized by band width,
	// comparable across block size / sample rate configurations.
	BassEnergy float64

	// Raw magnitude sums per band, used for ratios and color levels.
	BassSum   float64
	MidSum    float64
	TrebleSum float64
	TotalSum  float64
	// Peak is the largest single-bin magnitude.
	Peak float64

	// LowConfidence is set when the sample rate is too low for the bass band
	// to exist at all.
	LowConfidence bool

	Seq uint64
}

// BassRatio is the fraction of total spectral energy inside the bass band,
// clamped to [0, 1]. Zero total energy yields 0.
func (f Frame) BassRatio() float64 {
	if f.TotalSum <= 0 {
		return 0
	}
	r := f.BassSum / f.TotalSum
	if r > 1 {
		return 1
	}
	return r
}

// Config controls Analyzer behavior.
type Config struct {
	// BassLow and BassHigh bound the bass sub-band in Hz.
	BassLow  float64
	BassHigh float64
}

// Analyzer windows sample blocks, transforms them to the frequency domain and
// aggregates per-band energy. It owns a cached Hann window and FFT workspace
// sized to the last block seen.
type Analyzer struct {
	bassLow  float64
	bassHigh float64

	buffer []complex128
	window []float64
}

// New creates an Analyzer. Zero config fields fall back to the defaults.
func New(cfg Config) *Analyzer {
	if cfg.BassLow <= 0 {
		cfg.BassLow = DefaultBassLow
	}
	if cfg.BassHigh <= cfg.BassLow {
		cfg.BassHigh = DefaultBassHigh
	}
	return &Analyzer{
		bassLow:  cfg.BassLow,
		bassHigh: cfg.BassHigh,
	}
}

// Analyze produces the spectral frame for one block. Blocks shorter than the
// transform size are zero-padded; block sizes that are not powers of two are
// padded up to the next one.
func (a *Analyzer) Analyze(b source.Block) (Frame, error) {
	if len(b.Samples) == 0 {
		return Frame{}, fmt.Errorf("%w: empty block (seq %d)", ErrInvalidBlock, b.Seq)
	}
	if b.SampleRate <= 0 {
		return Frame{}, fmt.Errorf("%w: sample rate %d", ErrInvalidBlock, b.SampleRate)
	}

	size := nextPow2(len(b.Samples))
	if size < 256 {
		size = 256
	}
	a.ensureWorkspace(size)

	buffer := a.buffer[:size]
	window := a.window[:size]
	for i := 0; i < size; i++ {
		if i < len(b.Samples) {
			buffer[i] = complex(float64(b.Samples[i])*window[i], 0)
			continue
		}
		buffer[i] = 0
	}

	spectrum := fft.FFT(buffer)
	binWidth := float64(b.SampleRate) / float64(size)
	half := size / 2

	mags := make([]float64, half+1)
	peak := 0.0
	total := 0.0
	for i := range mags {
		m := cmag(spectrum[i])
		mags[i] = m
		total += m
		if m > peak {
			peak = m
		}
	}

	frame := Frame{
		Magnitudes: mags,
		BinWidth:   binWidth,
		TotalSum:   total,
		Peak:       peak,
		Seq:        b.Seq,
	}

	if b.SampleRate < degenerateRate {
		// Nyquist sits below the bass band; the only meaningful content is DC.
		frame.LowConfidence = true
		frame.BassSum = mags[0]
		frame.BassEnergy = mags[0]
		return frame, nil
	}

	bassLo := binFor(a.bassLow, size, b.SampleRate)
	bassHi := binFor(a.bassHigh, size, b.SampleRate)
	midHi := binFor(midHigh, size, b.SampleRate)

	frame.BassSum = sumRange(mags, bassLo, bassHi)
	frame.MidSum = sumRange(mags, bassHi+1, midHi)
	frame.TrebleSum = sumRange(mags, midHi+1, half)
	frame.BassEnergy = frame.BassSum / float64(bassHi-bassLo+1)
	return frame, nil
}

// binFor maps a frequency to its nearest bin, clamped to [0, N/2].
func binFor(freq float64, size, rate int) int {
	bin := int(math.Round(freq * float64(size) / float64(rate)))
	if bin < 0 {
		return 0
	}
	if bin > size/2 {
		return size / 2
	}
	return bin
}

func sumRange(mags []float64, lo, hi int) float64 {
	if lo < 0 {
		lo = 0
	}
	if hi > len(mags)-1 {
		hi = len(mags) - 1
	}
	sum := 0.0
	for i := lo; i <= hi; i++ {
		sum += mags[i]
	}
	return sum
}

func (a *Analyzer) ensureWorkspace(size int) {
	if len(a.buffer) != size {
		a.buffer = make([]complex128, size)
	}
	if len(a.window) != size {
		a.window = make([]float64, size)
		sizeF := float64(size)
		for i := range a.window {
			a.window[i] = hann(float64(i), sizeF)
		}
	}
}

func hann(i, size float64) float64 {
	return 0.5 * (1.0 - math.Cos(2.0*math.Pi*i/size))
}

func cmag(c complex128) float64 {
	return math.Sqrt(real(c)*real(c) + imag(c)*imag(c))
}

func nextPow2(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	return n + 1
}

package source

import (
	"io"
	"testing"
)

// memSource serves a fixed run of interleaved samples.
type memSource struct {
	samples  []float32
	pos      int
	rate     int
	channels int
}

func (m *memSource) SampleRate() int { return m.rate }
func (m *memSource) Channels() int   { return m.channels }
func (m *memSource) Close() error    { return nil }

func (m *memSource) ReadSamples(dst []float32) (int, error) {
	if m.pos >= len(m.samples) {
		return 0, io.EOF
	}
	n := copy(dst, m.samples[m.pos:])
	m.pos += n
	return n, nil
}

func TestBlockerSplitsMono(t *testing.T) {
	src := &memSource{samples: make([]float32, 100), rate: 44100, channels: 1}
	b, err := NewBlocker(src, 40)
	if err != nil {
		t.Fatalf("NewBlocker: %v", err)
	}

	sizes := []int{40, 40, 20}
	for i, want := range sizes {
		blk, err := b.Next()
		if err != nil {
			t.Fatalf("block %d: %v", i, err)
		}
		if len(blk.Samples) != want {
			t.Fatalf("block %d: len=%d, want %d", i, len(blk.Samples), want)
		}
		if blk.Seq != uint64(i) {
			t.Fatalf("block %d: seq=%d", i, blk.Seq)
		}
		if blk.SampleRate != 44100 || blk.Channels != 1 {
			t.Fatalf("block %d: rate=%d channels=%d", i, blk.SampleRate, blk.Channels)
		}
	}
	if _, err := b.Next(); err != io.EOF {
		t.Fatalf("after last block: err=%v, want io.EOF", err)
	}
}

func TestBlockerDownmixesStereo(t *testing.T) {
	// Left channel 1.0, right channel 0.0 -> mono 0.5.
	interleaved := make([]float32, 16)
	for i := 0; i < len(interleaved); i += 2 {
		interleaved[i] = 1.0
	}
	src := &memSource{samples: interleaved, rate: 48000, channels: 2}
	b, err := NewBlocker(src, 8)
	if err != nil {
		t.Fatalf("NewBlocker: %v", err)
	}

	blk, err := b.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(blk.Samples) != 8 {
		t.Fatalf("len=%d, want 8", len(blk.Samples))
	}
	for i, s := range blk.Samples {
		if s != 0.5 {
			t.Fatalf("sample %d: %f, want 0.5", i, s)
		}
	}
}

func TestBlockerRejectsBadSize(t *testing.T) {
	src := &memSource{rate: 44100, channels: 1}
	if _, err := NewBlocker(src, 0); err == nil {
		t.Fatalf("expected error for zero block size")
	}
}

// Package source adapts PCM streams (decoded files or live capture) into
// fixed-size mono sample blocks for the analysis pipeline.
package source

import (
	"errors"
	"fmt"
	"io"
)

// Source is a stream of interleaved float32 PCM samples in [-1, 1].
type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (1=mono, 2=stereo).
	Channels() int
	// ReadSamples fills dst with interleaved samples and returns the number
	// of float32 values written. n == 0 with io.EOF means the stream ended.
	ReadSamples(dst []float32) (n int, err error)
	// Close releases any resources held by the stream.
	Close() error
}

// Block is one fixed-size run of mono samples handed to the analyzer.
// Immutable once produced.
type Block struct {
	Samples    []float32
	SampleRate int
	Channels   int
	Seq        uint64
}

// ErrBlockSize reports a non-positive block size.
var ErrBlockSize = errors.New("block size must be positive")

// Blocker consumes a Source and produces consecutive mono Blocks of a fixed
// size. Multi-channel input is downmixed by averaging interleaved frames.
type Blocker struct {
	src       Source
	blockSize int
	buf       []float32
	seq       uint64
	done      bool
}

// NewBlocker wraps src into blocks of blockSize mono samples.
func NewBlocker(src Source, blockSize int) (*Blocker, error) {
	if blockSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrBlockSize, blockSize)
	}
	return &Blocker{
		src:       src,
		blockSize: blockSize,
		buf:       make([]float32, blockSize*src.Channels()),
	}, nil
}

// Next returns the next block in strict stream order. The final block may be
// shorter than the configured size; afterwards Next returns io.EOF.
func (b *Blocker) Next() (Block, error) {
	if b.done {
		return Block{}, io.EOF
	}

	filled := 0
	for filled < len(b.buf) {
		n, err := b.src.ReadSamples(b.buf[filled:])
		filled += n
		if err != nil {
			if err == io.EOF {
				b.done = true
				break
			}
			return Block{}, fmt.Errorf("read samples: %w", err)
		}
		if n == 0 {
			b.done = true
			break
		}
	}
	if filled == 0 {
		return Block{}, io.EOF
	}

	channels := b.src.Channels()
	frames := filled / channels
	mono := make([]float32, frames)
	if channels == 1 {
		copy(mono, b.buf[:frames])
	} else {
		for i := 0; i < frames; i++ {
			sum := float32(0)
			base := i * channels
			for ch := 0; ch < channels; ch++ {
				sum += b.buf[base+ch]
			}
			mono[i] = sum / float32(channels)
		}
	}

	blk := Block{
		Samples:    mono,
		SampleRate: b.src.SampleRate(),
		Channels:   1,
		Seq:        b.seq,
	}
	b.seq++
	return blk, nil
}

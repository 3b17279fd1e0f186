package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// Open decodes an audio file into a Source, dispatching on the extension.
// Supported: .wav, .mp3, .ogg.
func Open(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}

	var src Source
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		src, err = newWavSource(f)
	case ".mp3":
		src, err = newMP3Source(f)
	case ".ogg":
		src, err = newOggSource(f)
	default:
		err = fmt.Errorf("unsupported audio format %q", filepath.Ext(path))
	}
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return src, nil
}

type wavSource struct {
	f   *os.File
	dec *wav.Decoder
	buf *audio.IntBuffer
}

func newWavSource(f *os.File) (*wavSource, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("not a valid wav file: %s", f.Name())
	}
	return &wavSource{f: f, dec: dec}, nil
}

func (s *wavSource) SampleRate() int { return int(s.dec.SampleRate) }
func (s *wavSource) Channels() int   { return int(s.dec.NumChans) }
func (s *wavSource) Close() error    { return s.f.Close() }

func (s *wavSource) ReadSamples(dst []float32) (int, error) {
	if s.buf == nil || len(s.buf.Data) != len(dst) {
		s.buf = &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: s.Channels(),
				SampleRate:  s.SampleRate(),
			},
			Data:           make([]int, len(dst)),
			SourceBitDepth: int(s.dec.BitDepth),
		}
	}

	n, err := s.dec.PCMBuffer(s.buf)
	if err != nil {
		return 0, fmt.Errorf("decode wav: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	scale := float32(int(1) << (s.dec.BitDepth - 1))
	for i := 0; i < n; i++ {
		dst[i] = float32(s.buf.Data[i]) / scale
	}
	return n, nil
}

type mp3Source struct {
	f   *os.File
	dec *mp3.Decoder
	buf []byte
}

func newMP3Source(f *os.File) (*mp3Source, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}
	return &mp3Source{f: f, dec: dec}, nil
}

func (s *mp3Source) SampleRate() int { return s.dec.SampleRate() }

// Channels is always 2: go-mp3 emits stereo 16-bit little-endian PCM.
func (s *mp3Source) Channels() int { return 2 }

func (s *mp3Source) Close() error { return s.f.Close() }

func (s *mp3Source) ReadSamples(dst []float32) (int, error) {
	need := len(dst) * 2
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	s.buf = s.buf[:need]

	n, err := s.dec.Read(s.buf)
	if n == 0 {
		if err != nil {
			return 0, err
		}
		return 0, io.EOF
	}

	samples := n / 2
	for i := 0; i < samples; i++ {
		v := int16(uint16(s.buf[2*i]) | uint16(s.buf[2*i+1])<<8)
		dst[i] = float32(v) / 32768.0
	}
	return samples, nil
}

type oggSource struct {
	f *os.File
	r *oggvorbis.Reader
}

func newOggSource(f *os.File) (*oggSource, error) {
	r, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decode ogg: %w", err)
	}
	return &oggSource{f: f, r: r}, nil
}

func (s *oggSource) SampleRate() int { return s.r.SampleRate() }
func (s *oggSource) Channels() int   { return s.r.Channels() }
func (s *oggSource) Close() error    { return s.f.Close() }

func (s *oggSource) ReadSamples(dst []float32) (int, error) {
	return s.r.Read(dst)
}

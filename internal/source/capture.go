package source

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// Capture records from a PortAudio input device into a ring buffer and
// exposes the most recent window of mono samples. Unlike file sources it is
// pull-based: the session grabs Latest() once per tick and older samples are
// simply overwritten (last value wins).
type Capture struct {
	stream     *portaudio.Stream
	sampleRate int
	deviceName string

	mu    sync.RWMutex
	ring  []float32
	index int
	seq   uint64
}

// CaptureConfig controls device selection and window size.
type CaptureConfig struct {
	// DeviceName selects an input device by substring match. Empty picks the
	// default input, preferring loopback/monitor devices so system playback
	// (not just the microphone) drives the lights.
	DeviceName string
	// WindowSize is the number of mono samples kept for analysis.
	WindowSize int
	Channels   int
}

const defaultWindowSize = 4096

var (
	paOnce sync.Once
	paErr  error
)

// InitAudio initializes PortAudio once per process.
func InitAudio() error {
	paOnce.Do(func() {
		paErr = portaudio.Initialize()
	})
	return paErr
}

// TerminateAudio balances InitAudio. Safe to call when init failed.
func TerminateAudio() {
	if paErr == nil {
		_ = portaudio.Terminate()
	}
}

// NewCapture opens and starts an input stream. InitAudio must have succeeded.
func NewCapture(cfg CaptureConfig) (*Capture, error) {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = defaultWindowSize
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 2
	}

	dev, err := findInputDevice(cfg.DeviceName)
	if err != nil {
		return nil, err
	}

	c := &Capture{
		sampleRate: int(dev.DefaultSampleRate),
		deviceName: dev.Name,
		ring:       make([]float32, cfg.WindowSize),
	}

	channels := cfg.Channels
	if dev.MaxInputChannels < channels {
		channels = dev.MaxInputChannels
	}

	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   dev,
			Channels: channels,
			Latency:  dev.DefaultLowInputLatency,
		},
		SampleRate:      dev.DefaultSampleRate,
		FramesPerBuffer: portaudio.FramesPerBufferUnspecified,
	}, func(in []float32) { c.push(in, channels) })
	if err != nil {
		return nil, fmt.Errorf("open input stream: %w", err)
	}
	c.stream = stream

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("start input stream: %w", err)
	}
	return c, nil
}

// SampleRate of the capture stream in Hz.
func (c *Capture) SampleRate() int { return c.sampleRate }

// DeviceName of the opened input device.
func (c *Capture) DeviceName() string { return c.deviceName }

// Close stops and closes the stream.
func (c *Capture) Close() error {
	if c.stream == nil {
		return nil
	}
	_ = c.stream.Stop()
	return c.stream.Close()
}

// Latest returns the most recent window as a Block. The returned samples are
// a copy; the ring keeps filling behind it. Takes the write lock: each call
// advances the block sequence.
func (c *Capture) Latest() Block {
	c.mu.Lock()
	defer c.mu.Unlock()

	samples := make([]float32, len(c.ring))
	copy(samples, c.ring[c.index:])
	copy(samples[len(c.ring)-c.index:], c.ring[:c.index])

	c.seq++
	return Block{
		Samples:    samples,
		SampleRate: c.sampleRate,
		Channels:   1,
		Seq:        c.seq,
	}
}

func (c *Capture) push(in []float32, channels int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	frames := len(in) / channels
	for i := 0; i < frames; i++ {
		sum := float32(0)
		base := i * channels
		for ch := 0; ch < channels; ch++ {
			sum += in[base+ch]
		}
		c.ring[c.index] = sum / float32(channels)
		c.index++
		if c.index == len(c.ring) {
			c.index = 0
		}
	}
}

// Device describes a PortAudio input device.
type Device struct {
	Name       string
	HostAPI    string
	MaxInput   int
	SampleRate float64
	IsDefault  bool
}

// ListInputDevices returns all devices that can record, sorted by PortAudio
// enumeration order.
func ListInputDevices() ([]Device, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}

	defaultIndex := -1
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultIndex = def.Index
	}

	out := make([]Device, 0, len(devices))
	for _, d := range devices {
		if d == nil || d.MaxInputChannels <= 0 {
			continue
		}
		host := ""
		if d.HostApi != nil {
			host = d.HostApi.Name
		}
		out = append(out, Device{
			Name:       d.Name,
			HostAPI:    host,
			MaxInput:   d.MaxInputChannels,
			SampleRate: d.DefaultSampleRate,
			IsDefault:  d.Index == defaultIndex,
		})
	}
	return out, nil
}

func findInputDevice(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}

	if name != "" {
		name = strings.ToLower(name)
		for _, d := range devices {
			if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), name) {
				return d, nil
			}
		}
		return nil, fmt.Errorf("audio device %q not found", name)
	}

	// Loopback/monitor devices carry the system mix, which is what we want
	// to sync lights against.
	best := (*portaudio.DeviceInfo)(nil)
	bestScore := -1
	defaultIndex := -1
	if def, err := portaudio.DefaultInputDevice(); err == nil && def != nil {
		defaultIndex = def.Index
	}
	for _, d := range devices {
		if d == nil || d.MaxInputChannels <= 0 {
			continue
		}
		score := d.MaxInputChannels
		if d.Index == defaultIndex {
			score += 40
		}
		lower := strings.ToLower(d.Name)
		for _, kw := range []string{"monitor", "loopback", "stereo mix", "what u hear"} {
			if strings.Contains(lower, kw) {
				score += 60
				break
			}
		}
		if score > bestScore {
			best, bestScore = d, score
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no suitable audio input device found")
	}
	return best, nil
}

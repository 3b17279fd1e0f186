// Package session wires the analysis pipeline together: sample blocks in,
// lighting commands out. A Session is an explicit context object so multiple
// independent sessions can coexist in one process.
package session

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/guidoenr/wizsync/internal/analyzer"
	"github.com/guidoenr/wizsync/internal/lighting"
	"github.com/guidoenr/wizsync/internal/profile"
	"github.com/guidoenr/wizsync/internal/source"
	"github.com/guidoenr/wizsync/internal/wiz"
)

// Sender dispatches one lighting state to one target. Satisfied by
// *wiz.Transport; tests substitute a recorder.
type Sender interface {
	// Send is the rate-limited hot path; a false return means the state was
	// coalesced or lost.
	Send(addr string, s lighting.State) bool
	// SendNow bypasses the rate limiter. Used for the final blackout, which
	// must not be coalesced behind the last tick's frame.
	SendNow(addr string, s lighting.State) error
}

// Config assembles a Session.
type Config struct {
	// Lights are the target bulb addresses.
	Lights []string
	// CadenceHz is the output tick rate. Default 28.
	CadenceHz float64
	// BlockSize is the number of mono samples per analysis block. Default 2048.
	BlockSize int
	Analyzer  analyzer.Config
	Classify  profile.Config
	Generator lighting.Config
	Log       *log.Logger
}

func (c Config) withDefaults() Config {
	if c.CadenceHz <= 0 {
		c.CadenceHz = 28
	}
	if c.BlockSize <= 0 {
		c.BlockSize = 2048
	}
	if c.Log == nil {
		c.Log = log.New(os.Stdout, "[wizsync] ", log.LstdFlags)
	}
	return c
}

// Status is a read-only snapshot for displays and the pairing server.
type Status struct {
	Phase   string               `json:"phase"`
	State   lighting.State       `json:"state"`
	Profile profile.TrackProfile `json:"profile"`
	Artist  string               `json:"artist,omitempty"`
	Track   string               `json:"track,omitempty"`
	Paused  bool                 `json:"paused"`
}

// Session owns the live pipeline: analyzer, generator, transport targets and
// the single active TrackProfile. The profile is replaced atomically, never
// mutated, so the generator (reader) and classifier (writer) need no lock
// beyond the handoff point.
type Session struct {
	cfg        Config
	an         *analyzer.Analyzer
	classifier *profile.Classifier
	gen        *lighting.Generator
	sender     Sender
	log        *log.Logger

	// latest is the single-slot handoff between the producer (block feed)
	// and the tick loop: last value wins, stale values are dropped.
	latest  atomic.Value // analyzer.FeatureSample
	track   atomic.Pointer[profile.TrackProfile]
	paused  atomic.Bool
	stopped atomic.Bool

	mu      sync.RWMutex
	status  Status
	artist  string
	trackNm string
}

// New builds a Session around a sender.
func New(cfg Config, sender Sender) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		cfg:        cfg,
		an:         analyzer.New(cfg.Analyzer),
		classifier: profile.NewClassifier(cfg.Classify),
		gen:        lighting.NewGenerator(cfg.Generator),
		sender:     sender,
		log:        cfg.Log,
	}
}

// NewWithTransport builds a Session and its own wiz transport sized to the
// output cadence.
func NewWithTransport(cfg Config) (*Session, *wiz.Transport, error) {
	cfg = cfg.withDefaults()
	tr, err := wiz.NewTransport(wiz.TransportConfig{
		MinInterval: time.Duration(float64(time.Second) / cfg.CadenceHz),
		Log:         cfg.Log,
	})
	if err != nil {
		return nil, nil, err
	}
	return New(cfg, tr), tr, nil
}

// Classifier exposes the session's classifier for pre-pass reporting.
func (s *Session) Classifier() *profile.Classifier { return s.classifier }

// SetTrack activates a new track profile. The generator leaves Idle (or
// enters Transition when a track was already playing).
func (s *Session) SetTrack(p profile.TrackProfile) {
	s.track.Store(&p)
	s.gen.SetProfile(p)
}

// ActiveProfile returns the current track profile, or the safe default when
// no track is active.
func (s *Session) ActiveProfile() profile.TrackProfile {
	if p := s.track.Load(); p != nil {
		return *p
	}
	return profile.Default()
}

// SetNowPlaying records track metadata reported by a paired playback client.
func (s *Session) SetNowPlaying(artist, track string) {
	s.mu.Lock()
	s.artist, s.trackNm = artist, track
	s.mu.Unlock()
}

// SetPaused pauses or resumes output. Paused ticks emit nothing, leaving the
// bulbs at their last state.
func (s *Session) SetPaused(paused bool) { s.paused.Store(paused) }

// Paused reports the pause flag.
func (s *Session) Paused() bool { return s.paused.Load() }

// Feed analyzes one block and publishes its features as the most recent
// sample. Invalid blocks are logged and skipped; the pipeline continues with
// the next one.
func (s *Session) Feed(b source.Block) error {
	frame, err := s.an.Analyze(b)
	if err != nil {
		if errors.Is(err, analyzer.ErrInvalidBlock) {
			s.log.Printf("skip block %d: %v", b.Seq, err)
			return err
		}
		return err
	}
	// Unity gain: the color mappers apply the profile's sensitivity, exactly
	// once, when the feature is consumed.
	feat := analyzer.Extract(frame, b, 1.0)
	s.latest.Store(feat)
	return nil
}

// LatestFeature returns the most recent published feature sample, if any.
func (s *Session) LatestFeature() (analyzer.FeatureSample, bool) {
	if v := s.latest.Load(); v != nil {
		return v.(analyzer.FeatureSample), true
	}
	return analyzer.FeatureSample{}, false
}

// Run drives the fixed output cadence until ctx is canceled. Each tick uses
// whatever feature sample is most recent (never waiting for a late one) and
// hands the decision to the transport for every configured light.
func (s *Session) Run(ctx context.Context) error {
	interval := time.Duration(float64(time.Second) / s.cfg.CadenceHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return ctx.Err()
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Session) tick() {
	if s.paused.Load() {
		return
	}

	var feat analyzer.FeatureSample
	if v := s.latest.Load(); v != nil {
		feat = v.(analyzer.FeatureSample)
	}

	state := s.gen.Tick(feat)
	for _, addr := range s.cfg.Lights {
		s.sender.Send(addr, state)
	}

	s.mu.Lock()
	s.status = Status{
		Phase:   s.gen.Phase().String(),
		State:   state,
		Profile: s.ActiveProfile(),
		Artist:  s.artist,
		Track:   s.trackNm,
		Paused:  false,
	}
	s.mu.Unlock()
}

// Snapshot returns the latest status for displays.
func (s *Session) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.status
	st.Paused = s.paused.Load()
	return st
}

// shutdown resets the machine and darkens the bulbs. In-flight sends are not
// canceled; new sends simply cease.
func (s *Session) shutdown() {
	if s.stopped.Swap(true) {
		return
	}
	s.gen.Stop()
	for _, addr := range s.cfg.Lights {
		if err := s.sender.SendNow(addr, lighting.Blackout()); err != nil {
			s.log.Printf("blackout %s: %v", addr, err)
		}
	}
}

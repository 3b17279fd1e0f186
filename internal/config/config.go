// Package config holds the viper-backed application configuration.
package config

import (
	"fmt"
	"log"

	"github.com/spf13/viper"

	"github.com/guidoenr/wizsync/internal/analyzer"
	"github.com/guidoenr/wizsync/internal/lighting"
	"github.com/guidoenr/wizsync/internal/profile"
	"github.com/guidoenr/wizsync/internal/session"
)

// Config is the application configuration.
type Config struct {
	// Lights are the target bulb addresses (IP or ip:port).
	Lights []string `mapstructure:"lights" yaml:"lights"`
	// CadenceHz is the lighting output rate.
	CadenceHz float64 `mapstructure:"cadence_hz" yaml:"cadence_hz"`
	// BlockSize is the number of mono samples per analysis block.
	BlockSize int  `mapstructure:"block_size" yaml:"block_size"`
	Verbose   bool `mapstructure:"verbose" yaml:"verbose"`

	Audio    AudioConfig    `mapstructure:"audio" yaml:"audio"`
	Classify ClassifyConfig `mapstructure:"classify" yaml:"classify"`
	Lighting LightingConfig `mapstructure:"lighting" yaml:"lighting"`
	Capture  CaptureConfig  `mapstructure:"capture" yaml:"capture"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
}

// AudioConfig bounds the analysis bands.
type AudioConfig struct {
	BassLowHz  float64 `mapstructure:"bass_low_hz" yaml:"bass_low_hz"`
	BassHighHz float64 `mapstructure:"bass_high_hz" yaml:"bass_high_hz"`
}

// ClassifyConfig holds the tunable classification thresholds.
type ClassifyConfig struct {
	BassDominant      float64 `mapstructure:"bass_dominant" yaml:"bass_dominant"`
	PunchyCrest       float64 `mapstructure:"punchy_crest" yaml:"punchy_crest"`
	CrestQuantile     float64 `mapstructure:"crest_quantile" yaml:"crest_quantile"`
	ReferenceLoudness float64 `mapstructure:"reference_loudness" yaml:"reference_loudness"`
	MinSensitivity    float64 `mapstructure:"min_sensitivity" yaml:"min_sensitivity"`
	MaxSensitivity    float64 `mapstructure:"max_sensitivity" yaml:"max_sensitivity"`
}

// LightingConfig holds the generator tunables.
type LightingConfig struct {
	SilenceRMS        float64 `mapstructure:"silence_rms" yaml:"silence_rms"`
	TransitionTicks   int     `mapstructure:"transition_ticks" yaml:"transition_ticks"`
	MaxBrightnessStep float64 `mapstructure:"max_brightness_step" yaml:"max_brightness_step"`
}

// CaptureConfig selects the live input device.
type CaptureConfig struct {
	Device     string `mapstructure:"device" yaml:"device"`
	WindowSize int    `mapstructure:"window_size" yaml:"window_size"`
}

// ServerConfig controls the pairing server.
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr"`
}

// SetDefaults registers every default on the given viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("cadence_hz", 28.0)
	v.SetDefault("block_size", 2048)
	v.SetDefault("verbose", false)

	v.SetDefault("audio.bass_low_hz", 20.0)
	v.SetDefault("audio.bass_high_hz", 150.0)

	v.SetDefault("classify.bass_dominant", 0.40)
	v.SetDefault("classify.punchy_crest", 3.0)
	v.SetDefault("classify.crest_quantile", 0.85)
	v.SetDefault("classify.reference_loudness", 0.16)
	v.SetDefault("classify.min_sensitivity", 0.5)
	v.SetDefault("classify.max_sensitivity", 6.0)

	v.SetDefault("lighting.silence_rms", 0.005)
	v.SetDefault("lighting.transition_ticks", 14)
	v.SetDefault("lighting.max_brightness_step", 12.0)

	v.SetDefault("capture.device", "")
	v.SetDefault("capture.window_size", 4096)

	v.SetDefault("server.enabled", false)
	v.SetDefault("server.addr", "127.0.0.1:5000")
}

// Load unmarshals and validates the effective configuration.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.CadenceHz <= 0 {
		return fmt.Errorf("cadence_hz must be positive, got %f", c.CadenceHz)
	}
	if c.CadenceHz > 60 {
		return fmt.Errorf("cadence_hz %f exceeds what bulbs keep up with (max 60)", c.CadenceHz)
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("block_size must be positive, got %d", c.BlockSize)
	}
	if c.Audio.BassLowHz >= c.Audio.BassHighHz {
		return fmt.Errorf("bass band [%f, %f] is empty", c.Audio.BassLowHz, c.Audio.BassHighHz)
	}
	return nil
}

// SessionConfig assembles the session wiring from the loaded config.
func (c *Config) SessionConfig(logger *log.Logger) session.Config {
	return session.Config{
		Lights:    c.Lights,
		CadenceHz: c.CadenceHz,
		BlockSize: c.BlockSize,
		Analyzer: analyzer.Config{
			BassLow:  c.Audio.BassLowHz,
			BassHigh: c.Audio.BassHighHz,
		},
		Classify: profile.Config{
			BassDominant:      c.Classify.BassDominant,
			PunchyCrest:       c.Classify.PunchyCrest,
			CrestQuantile:     c.Classify.CrestQuantile,
			ReferenceLoudness: c.Classify.ReferenceLoudness,
			MinSensitivity:    c.Classify.MinSensitivity,
			MaxSensitivity:    c.Classify.MaxSensitivity,
		},
		Generator: lighting.Config{
			SilenceRMS:        c.Lighting.SilenceRMS,
			TransitionTicks:   c.Lighting.TransitionTicks,
			MaxBrightnessStep: c.Lighting.MaxBrightnessStep,
		},
		Log: logger,
	}
}

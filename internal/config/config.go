// Package config provides configuration management for fukivoice.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Preload mode values. The mode selects which sides of a unit must have
// audio before the all-ready signal may fire.
const (
	ModeOff    = "off"
	ModeSource = "source"
	ModeTarget = "target"
	ModeBoth   = "both"
)

// ErrInvalidMode is returned when preload.mode is not a known value.
var ErrInvalidMode = errors.New("config: invalid preload mode")

// Config holds all application configuration.
type Config struct {
	LogLevel string             `mapstructure:"log_level"`
	Listen   string             `mapstructure:"listen"`
	Services map[string]Service `mapstructure:"services"`
	Source   Direction          `mapstructure:"source"`
	Target   Direction          `mapstructure:"target"`
	Preload  Preload            `mapstructure:"preload"`
}

// Service holds per-provider credentials.
type Service struct {
	APIKey string `mapstructure:"api_key"`
}

// Direction selects the service and voice used for one side of a unit.
type Direction struct {
	Service string `mapstructure:"service"`
	Voice   string `mapstructure:"voice"`
	// CustomVoice, when set, overrides Voice. Used for cloned voices.
	CustomVoice string `mapstructure:"custom_voice"`
}

// EffectiveVoice returns the custom voice if one is configured.
func (d Direction) EffectiveVoice() string {
	if d.CustomVoice != "" {
		return d.CustomVoice
	}
	return d.Voice
}

// Preload configures the audio-preload orchestrator.
type Preload struct {
	Mode        string        `mapstructure:"mode"` // off, source, target, both
	AutoPlayAll bool          `mapstructure:"auto_play_all"`
	CacheDir    string        `mapstructure:"cache_dir"`
	MaxParallel int           `mapstructure:"max_parallel"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	BackoffBase time.Duration `mapstructure:"backoff_base"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Listen:   ":8930",
		Services: map[string]Service{},
		Source: Direction{
			Service: "Google Cloud TTS",
			Voice:   "ja-JP-Neural2-B",
		},
		Target: Direction{
			Service: "Google Cloud TTS",
			Voice:   "en-US-Neural2-D",
		},
		Preload: Preload{
			Mode:        ModeOff,
			AutoPlayAll: false,
			MaxParallel: 3,
			MaxAttempts: 3,
			BackoffBase: time.Second,
		},
	}
}

// Load reads configuration from file and environment.
// An empty path searches ~/.fukivoice and the working directory.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return cfg, err
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(homeDir, ".fukivoice"))
		v.AddConfigPath(".")
	}

	// Environment variable overrides, e.g. FUKIVOICE_LOG_LEVEL.
	v.SetEnvPrefix("FUKIVOICE")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return cfg, err
		}
		// No config file: run on defaults and env.
	}

	if err := v.Unmarshal(cfg); err != nil {
		return cfg, err
	}

	if cfg.Preload.CacheDir == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return cfg, err
		}
		cfg.Preload.CacheDir = filepath.Join(cacheDir, "fukivoice", "audio")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks mode and limit values.
func (c *Config) Validate() error {
	switch c.Preload.Mode {
	case ModeOff, ModeSource, ModeTarget, ModeBoth:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Preload.Mode)
	}
	if c.Preload.MaxParallel < 1 {
		return fmt.Errorf("config: max_parallel must be at least 1, got %d", c.Preload.MaxParallel)
	}
	if c.Preload.MaxAttempts < 1 {
		return fmt.Errorf("config: max_attempts must be at least 1, got %d", c.Preload.MaxAttempts)
	}
	return nil
}

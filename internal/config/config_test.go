package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fukivoice/fukivoice/internal/config"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8930", cfg.Listen)
	assert.Equal(t, config.ModeOff, cfg.Preload.Mode)
	assert.Equal(t, 3, cfg.Preload.MaxParallel)
	assert.Equal(t, 3, cfg.Preload.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Preload.BackoffBase)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfigFile(t, `
log_level: debug
listen: ":9000"
services:
  ElevenLabs:
    api_key: el-key
  Google Cloud TTS:
    api_key: gc-key
source:
  service: ElevenLabs
  voice: base-voice
  custom_voice: cloned-voice
target:
  service: Google Cloud TTS
  voice: en-US-Neural2-D
preload:
  mode: both
  auto_play_all: true
  cache_dir: /tmp/fukivoice-test-audio
  max_parallel: 2
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9000", cfg.Listen)
	// viper lowercases map keys.
	assert.Equal(t, "el-key", cfg.Services["elevenlabs"].APIKey)
	assert.Equal(t, "gc-key", cfg.Services["google cloud tts"].APIKey)
	assert.Equal(t, "ElevenLabs", cfg.Source.Service)
	assert.Equal(t, config.ModeBoth, cfg.Preload.Mode)
	assert.True(t, cfg.Preload.AutoPlayAll)
	assert.Equal(t, "/tmp/fukivoice-test-audio", cfg.Preload.CacheDir)
	assert.Equal(t, 2, cfg.Preload.MaxParallel)

	// Unset values keep their defaults.
	assert.Equal(t, 3, cfg.Preload.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Preload.BackoffBase)
}

func TestLoadFillsCacheDir(t *testing.T) {
	path := writeConfigFile(t, `log_level: info`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Preload.CacheDir)
	assert.Contains(t, cfg.Preload.CacheDir, "fukivoice")
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	path := writeConfigFile(t, `
preload:
  mode: sideways
`)

	_, err := config.Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidMode)
}

func TestValidateLimits(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Preload.MaxParallel = 0
	assert.Error(t, cfg.Validate())

	cfg = config.DefaultConfig()
	cfg.Preload.MaxAttempts = 0
	assert.Error(t, cfg.Validate())
}

func TestEffectiveVoice(t *testing.T) {
	d := config.Direction{Voice: "base"}
	assert.Equal(t, "base", d.EffectiveVoice())

	d.CustomVoice = "cloned"
	assert.Equal(t, "cloned", d.EffectiveVoice())
}

package preload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/fukivoice/fukivoice/pkg/tts"
)

// Synthesizer binds the provider registry to an on-disk audio directory.
// Providers return encoded bytes; file placement is handled here so every
// artifact lands under one directory the cache can clear.
type Synthesizer struct {
	registry *tts.Registry
	dir      string
	logger   *slog.Logger
}

// NewSynthesizer creates a synthesizer writing audio files into dir.
// The directory is created if it does not exist.
func NewSynthesizer(registry *tts.Registry, dir string, logger *slog.Logger) (*Synthesizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("preload: create audio dir: %w", err)
	}
	return &Synthesizer{
		registry: registry,
		dir:      dir,
		logger:   logger.With("component", "preload.synth"),
	}, nil
}

// Dir returns the audio directory.
func (s *Synthesizer) Dir() string {
	return s.dir
}

// SynthesizeFile resolves the service by name, synthesizes the text and
// writes the audio to a fresh file, returning its path. Service resolution
// happens before any network attempt, so a misconfigured service name or
// credential fails fast.
func (s *Synthesizer) SynthesizeFile(ctx context.Context, service, voice, text string) (string, error) {
	provider, err := s.registry.Lookup(service)
	if err != nil {
		return "", err
	}

	result, err := provider.Synthesize(ctx, tts.Request{Text: text, Voice: voice})
	if err != nil {
		return "", err
	}

	name := uuid.NewString() + "." + tts.FileExt(result.MIME)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, result.Audio, 0o644); err != nil {
		return "", fmt.Errorf("preload: write audio file: %w", err)
	}

	s.logger.Debug("audio file written",
		"service", service,
		"voice", voice,
		"chars", result.CharCount,
		"bytes", len(result.Audio),
		"latency_ms", result.LatencyMs,
		"path", path,
	)

	return path, nil
}

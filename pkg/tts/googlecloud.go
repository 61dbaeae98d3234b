package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"
)

// ServiceGoogleCloud is the registry name of the Google Cloud TTS adapter.
const ServiceGoogleCloud = "Google Cloud TTS"

// googleCloudMP3 is the AudioEncoding value sent to the API.
const googleCloudMP3 = "MP3"

// GoogleCloud implements Provider for Google Cloud Text-to-Speech.
type GoogleCloud struct {
	config *Config
	svc    *texttospeech.Service
	logger *slog.Logger
}

// NewGoogleCloud creates a new Google Cloud TTS provider.
// The context is used for client construction only.
func NewGoogleCloud(ctx context.Context, opts ...Option) (*GoogleCloud, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clientOpts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(cfg.BaseURL))
	}

	svc, err := texttospeech.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, WrapError(ServiceGoogleCloud, fmt.Errorf("create service: %w", err))
	}

	if cfg.OutputFormat == "" {
		cfg.OutputFormat = googleCloudMP3
	}

	return &GoogleCloud{
		config: cfg,
		svc:    svc,
		logger: cfg.Logger.With("component", "tts.googlecloud"),
	}, nil
}

// Name returns the registry name of this provider.
func (g *GoogleCloud) Name() string {
	return ServiceGoogleCloud
}

// Synthesize converts text to audio, returning the complete audio buffer.
func (g *GoogleCloud) Synthesize(ctx context.Context, req Request) (*Result, error) {
	if req.Voice == "" {
		return nil, WrapError(ServiceGoogleCloud, ErrNoVoice)
	}

	start := time.Now()

	resp, err := g.svc.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: req.Text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: languageCode(req.Voice),
			Name:         req.Voice,
		},
		AudioConfig: &texttospeech.AudioConfig{AudioEncoding: g.config.OutputFormat},
	}).Context(ctx).Do()
	if err != nil {
		return nil, g.wrapAPIError(err)
	}

	latency := time.Since(start).Milliseconds()

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, WrapError(ServiceGoogleCloud, fmt.Errorf("decode audio content: %w", err))
	}

	g.logger.Debug("synthesized audio",
		"chars", len(req.Text),
		"bytes", len(audio),
		"latency_ms", latency,
		"voice", req.Voice,
	)

	return &Result{
		Audio:     audio,
		MIME:      "audio/mpeg",
		CharCount: len(req.Text),
		LatencyMs: latency,
	}, nil
}

// Health checks API connectivity and API key validity by listing voices.
func (g *GoogleCloud) Health(ctx context.Context) error {
	_, err := g.svc.Voices.List().LanguageCode("en-US").Context(ctx).Do()
	if err != nil {
		return g.wrapAPIError(err)
	}
	return nil
}

// Close releases resources held by the provider.
func (g *GoogleCloud) Close() error {
	return nil
}

// wrapAPIError converts a googleapi error into the package error taxonomy.
func (g *GoogleCloud) wrapAPIError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &APIError{
			StatusCode: gerr.Code,
			Message:    gerr.Message,
			Provider:   ServiceGoogleCloud,
		}
	}
	return WrapError(ServiceGoogleCloud, err)
}

// languageCode derives the BCP-47 language code from a full voice name,
// e.g. "en-US-Neural2-D" -> "en-US". Short names pass through unchanged.
func languageCode(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 2 {
		return voice
	}
	return parts[0] + "-" + parts[1]
}

// Verify GoogleCloud implements Provider at compile time.
var _ Provider = (*GoogleCloud)(nil)

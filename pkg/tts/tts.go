// Package tts provides a unified interface for text-to-speech providers.
//
// The package supports multiple TTS backends including ElevenLabs (custom
// voice cloning) and Google Cloud TTS. All providers implement the Provider
// interface and are looked up by service name through a Registry, so adding
// a backend means registering one adapter and nothing else.
//
// Example usage:
//
//	provider, _ := tts.NewElevenLabs(
//	    tts.WithAPIKey(os.Getenv("ELEVENLABS_API_KEY")),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, tts.Request{
//	    Text:  "Hello world",
//	    Voice: "your-voice-id",
//	})
//	// result.Audio contains the encoded audio bytes
package tts

import (
	"context"
)

// Provider defines the TTS provider interface.
// All implementations must satisfy this interface for seamless provider switching.
type Provider interface {
	// Name returns the service name this provider is registered under.
	Name() string

	// Synthesize converts text to audio, returning the complete audio buffer.
	// Providers do not retry failed requests; callers own the retry budget.
	Synthesize(ctx context.Context, req Request) (*Result, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// Request describes one synthesis call. It is transient and never persisted.
type Request struct {
	// Text is the exact text to speak. No normalization is applied.
	Text string

	// Voice identifies the voice. For Google Cloud TTS this is a full
	// voice name such as "en-US-Neural2-D"; for ElevenLabs a voice ID.
	Voice string
}

// Result represents a complete audio synthesis result.
type Result struct {
	// Audio contains the encoded audio data.
	Audio []byte

	// MIME is the media type of Audio (e.g. audio/mpeg).
	MIME string

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the provider round-trip time in milliseconds.
	LatencyMs int64
}

// FileExt returns the file extension for a synthesis MIME type,
// without the leading dot.
func FileExt(mime string) string {
	switch mime {
	case "audio/mpeg":
		return "mp3"
	case "audio/ogg", "audio/opus":
		return "ogg"
	case "audio/wav", "audio/x-wav":
		return "wav"
	case "audio/pcm", "audio/basic":
		return "raw"
	default:
		return "bin"
	}
}

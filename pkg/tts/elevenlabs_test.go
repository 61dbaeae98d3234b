package tts_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fukivoice/fukivoice/pkg/tts"
)

func newElevenLabsServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *tts.ElevenLabs) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := tts.NewElevenLabs(
		tts.WithAPIKey("test-key"),
		tts.WithBaseURL(srv.URL),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return srv, p
}

func TestElevenLabsRequiresAPIKey(t *testing.T) {
	_, err := tts.NewElevenLabs()
	if !errors.Is(err, tts.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestElevenLabsSynthesize(t *testing.T) {
	audio := []byte("fake-mp3-bytes")

	_, p := newElevenLabsServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/text-to-speech/voice-123" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("output_format"); got != "mp3_44100_128" {
			t.Errorf("unexpected output format: %s", got)
		}
		if got := r.Header.Get("xi-api-key"); got != "test-key" {
			t.Errorf("unexpected api key header: %s", got)
		}

		var body struct {
			Text    string `json:"text"`
			ModelID string `json:"model_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request body: %v", err)
		}
		if body.Text != "Hello world" {
			t.Errorf("unexpected text: %s", body.Text)
		}
		if body.ModelID != tts.ModelMultilingualV2 {
			t.Errorf("unexpected model: %s", body.ModelID)
		}

		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write(audio)
	})
	defer p.Close()

	result, err := p.Synthesize(context.Background(), tts.Request{
		Text:  "Hello world",
		Voice: "voice-123",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Audio) != string(audio) {
		t.Error("expected audio bytes passed through")
	}
	if result.MIME != "audio/mpeg" {
		t.Errorf("expected audio/mpeg, got %s", result.MIME)
	}
	if result.CharCount != 11 {
		t.Errorf("expected 11 chars, got %d", result.CharCount)
	}
}

func TestElevenLabsSynthesizeRequiresVoice(t *testing.T) {
	called := false
	_, p := newElevenLabsServer(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	defer p.Close()

	_, err := p.Synthesize(context.Background(), tts.Request{Text: "Hello"})
	if !errors.Is(err, tts.ErrNoVoice) {
		t.Errorf("expected ErrNoVoice, got %v", err)
	}
	if called {
		t.Error("expected no request for a missing voice")
	}
}

func TestElevenLabsErrorParsing(t *testing.T) {
	t.Run("JSON detail", func(t *testing.T) {
		_, p := newElevenLabsServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`))
		})
		defer p.Close()

		_, err := p.Synthesize(context.Background(), tts.Request{Text: "x", Voice: "v"})

		var apiErr *tts.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if !apiErr.IsUnauthorized() {
			t.Errorf("expected 401, got %d", apiErr.StatusCode)
		}
		if apiErr.Message != "Invalid API key" {
			t.Errorf("unexpected message: %s", apiErr.Message)
		}
		if apiErr.Code != "invalid_api_key" {
			t.Errorf("unexpected code: %s", apiErr.Code)
		}
		if apiErr.Provider != tts.ServiceElevenLabs {
			t.Errorf("unexpected provider: %s", apiErr.Provider)
		}
	})

	t.Run("Rate limit", func(t *testing.T) {
		_, p := newElevenLabsServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte("slow down"))
		})
		defer p.Close()

		_, err := p.Synthesize(context.Background(), tts.Request{Text: "x", Voice: "v"})

		var apiErr *tts.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if !apiErr.IsRateLimited() {
			t.Errorf("expected 429, got %d", apiErr.StatusCode)
		}
		if apiErr.Message != "slow down" {
			t.Errorf("raw body becomes the message, got %s", apiErr.Message)
		}
	})
}

func TestElevenLabsHealth(t *testing.T) {
	t.Run("Healthy", func(t *testing.T) {
		_, p := newElevenLabsServer(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/user" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			w.Write([]byte(`{}`))
		})
		defer p.Close()

		if err := p.Health(context.Background()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Bad key", func(t *testing.T) {
		_, p := newElevenLabsServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		defer p.Close()

		err := p.Health(context.Background())
		var apiErr *tts.APIError
		if !errors.As(err, &apiErr) || !apiErr.IsUnauthorized() {
			t.Errorf("expected 401 APIError, got %v", err)
		}
	})
}

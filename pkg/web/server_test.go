package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fukivoice/fukivoice/pkg/hub"
	"github.com/fukivoice/fukivoice/pkg/preload"
	"github.com/fukivoice/fukivoice/pkg/textunit"
	"github.com/fukivoice/fukivoice/pkg/tts"
	"github.com/fukivoice/fukivoice/pkg/web"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer wires the full stack behind the HTTP surface: a mock
// provider, a real store and orchestrator, and the event hub.
func newTestServer(t *testing.T) (*web.Server, *textunit.Store, *tts.Mock) {
	t.Helper()

	mock := tts.NewMock()
	registry := tts.NewRegistry()
	registry.Register(mock)

	synth, err := preload.NewSynthesizer(registry, t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("create synthesizer: %v", err)
	}

	store := textunit.NewStore()
	events := hub.New(testLogger())
	go events.Run()

	notifier := preload.NotifierFuncs{
		OnUnitUpdated: func(update preload.UnitUpdate) {
			events.Broadcast(hub.Event{Kind: hub.EventUnitUpdated, Data: update})
		},
		OnAllReady: func() {
			events.Broadcast(hub.Event{Kind: hub.EventAllReady})
		},
	}

	orch := preload.New(synth, store, notifier, preload.Options{
		Source:      preload.VoiceSelection{Service: "mock", Voice: "voice-src"},
		Target:      preload.VoiceSelection{Service: "mock", Voice: "voice-tgt"},
		Mode:        preload.ModeSource,
		AutoPlayAll: true,
		BackoffBase: 5 * time.Millisecond,
		Logger:      testLogger(),
	})

	return web.NewServer(context.Background(), ":0", store, orch, events, testLogger()), store, mock
}

func doJSON(t *testing.T, app interface {
	Test(*http.Request, ...int) (*http.Response, error)
}, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func TestHealthz(t *testing.T) {
	server, _, _ := newTestServer(t)

	resp := doJSON(t, server.App(), "GET", "/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Status  string `json:"status"`
		Clients int    `json:"clients"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("unexpected status: %s", body.Status)
	}
}

func TestUnitsRoundTrip(t *testing.T) {
	server, store, _ := newTestServer(t)

	units := []textunit.Unit{
		{ID: "u1", SourceText: "one", TranslatedText: "eins"},
		{ID: "u2", SourceText: "two", TranslatedText: "zwei"},
	}

	resp := doJSON(t, server.App(), "PUT", "/api/units", units)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if store.Len() != 2 {
		t.Fatalf("expected 2 units in store, got %d", store.Len())
	}

	resp = doJSON(t, server.App(), "GET", "/api/units", nil)
	var got []textunit.Unit
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[0].ID != "u1" {
		t.Errorf("unexpected units: %+v", got)
	}
}

func TestPutUnitsValidation(t *testing.T) {
	server, _, _ := newTestServer(t)

	t.Run("missing id", func(t *testing.T) {
		resp := doJSON(t, server.App(), "PUT", "/api/units", []textunit.Unit{{SourceText: "x"}})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest("PUT", "/api/units", bytes.NewReader([]byte("not json")))
		req.Header.Set("Content-Type", "application/json")
		resp, err := server.App().Test(req, -1)
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})
}

func TestPreloadEndpoint(t *testing.T) {
	server, store, mock := newTestServer(t)
	store.Replace([]textunit.Unit{{ID: "u1", SourceText: "speak", TranslatedText: "sprich"}})

	t.Run("invalid direction", func(t *testing.T) {
		resp := doJSON(t, server.App(), "POST", "/api/preload", map[string]string{"direction": "sideways"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("source batch", func(t *testing.T) {
		resp := doJSON(t, server.App(), "POST", "/api/preload", map[string]string{"direction": "source"})
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", resp.StatusCode)
		}

		// The batch runs in the background; wait for the result.
		deadline := time.After(2 * time.Second)
		for {
			if u, _ := store.Get("u1"); u.SourceAudioReady {
				break
			}
			select {
			case <-deadline:
				t.Fatal("unit never became ready")
			case <-time.After(5 * time.Millisecond):
			}
		}
		if mock.CallCount("Synthesize") != 1 {
			t.Errorf("expected 1 provider call, got %d", mock.CallCount("Synthesize"))
		}
	})
}

func TestCacheClearEndpoint(t *testing.T) {
	server, store, _ := newTestServer(t)
	store.Replace([]textunit.Unit{{ID: "u1", SourceText: "speak"}})

	doJSON(t, server.App(), "POST", "/api/preload", map[string]string{"direction": "source"})
	deadline := time.After(2 * time.Second)
	for {
		if u, _ := store.Get("u1"); u.SourceAudioReady {
			break
		}
		select {
		case <-deadline:
			t.Fatal("unit never became ready")
		case <-time.After(5 * time.Millisecond):
		}
	}

	resp := doJSON(t, server.App(), "POST", "/api/cache/clear", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	u, _ := store.Get("u1")
	if u.SourceAudioReady || u.SourceAudioPath != "" {
		t.Errorf("expected audio state reset, got %+v", u)
	}
}

func TestEventStream(t *testing.T) {
	server, store, _ := newTestServer(t)
	store.Replace([]textunit.Unit{{ID: "u1", SourceText: "speak"}})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go server.App().Listener(ln)
	defer server.Shutdown()

	url := "ws://" + ln.Addr().String() + "/ws/events"

	var conn *websocket.Conn
	for i := 0; i < 50; i++ {
		conn, _, err = websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Wait for the hub to register the client before producing events.
	registered := time.After(2 * time.Second)
	for {
		resp := doJSON(t, server.App(), "GET", "/healthz", nil)
		var body struct {
			Clients int `json:"clients"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode healthz: %v", err)
		}
		if body.Clients == 1 {
			break
		}
		select {
		case <-registered:
			t.Fatal("client never registered with the hub")
		case <-time.After(10 * time.Millisecond):
		}
	}

	doJSON(t, server.App(), "POST", "/api/preload", map[string]string{"direction": "source"})

	// Collect events until the all-ready signal; order between the batch
	// start broadcast and the first unit update is not guaranteed.
	seen := map[string]bool{}
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for !seen[hub.EventAllReady] {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read event (seen %v): %v", seen, err)
		}
		var event struct {
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		seen[event.Kind] = true
	}

	for _, kind := range []string{hub.EventBatchStarted, hub.EventUnitUpdated, hub.EventAllReady} {
		if !seen[kind] {
			t.Errorf("expected %s event", kind)
		}
	}
}

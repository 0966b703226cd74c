package notify

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func testHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, h *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client count = %d, want %d", h.ClientCount(), want)
}

func TestHubBroadcast(t *testing.T) {
	h := testHub()
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	waitForClients(t, h, 1)

	h.Emit("renamer_progress", map[string]int{"processed": 3})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var env struct {
		Event   string          `json:"event"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Event != "renamer_progress" {
		t.Errorf("event = %q, want renamer_progress", env.Event)
	}

	var payload map[string]int
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["processed"] != 3 {
		t.Errorf("processed = %d, want 3", payload["processed"])
	}
}

func TestHubMultipleClients(t *testing.T) {
	h := testHub()
	srv := httptest.NewServer(h)
	defer srv.Close()

	c1 := dial(t, srv)
	c2 := dial(t, srv)
	waitForClients(t, h, 2)

	h.Emit("daily_stats_update", nil)

	for i, conn := range []*websocket.Conn{c1, c2} {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := conn.ReadMessage(); err != nil {
			t.Errorf("client %d read: %v", i+1, err)
		}
	}
}

func TestHubClientDisconnect(t *testing.T) {
	h := testHub()
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn := dial(t, srv)
	waitForClients(t, h, 1)

	_ = conn.Close()
	waitForClients(t, h, 0)

	// Emitting with no clients must not block or panic.
	h.Emit("quota_exceeded", map[string]string{"message": "x"})
}

func TestNopSink(t *testing.T) {
	var s Sink = NopSink{}
	s.Emit("anything", nil)
}

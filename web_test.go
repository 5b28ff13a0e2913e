package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle"
	"github.com/HexDino/LTM-MathPuzzle/games/mathpuzzle/auth"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := defaultConfig(t)
	reg := prometheus.NewRegistry()
	engine := mathpuzzle.New(cfg.engineConfig(reg), auth.NewMemoryStore())

	srv := httptest.NewServer(newRouter(cfg, engine, reg, make(chan error, 64)))
	t.Cleanup(srv.Close)
	t.Cleanup(engine.Shutdown)

	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading %s: %v", url, err)
	}
	return resp, body
}

func TestHealthAndVersion(t *testing.T) {
	srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/healthz")
	if resp.StatusCode != http.StatusOK || string(body) != "Ok\n" {
		t.Fatalf("/healthz = %d %q", resp.StatusCode, body)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers missing")
	}

	_, body = get(t, srv.URL+"/version")
	if string(body) != "mathpuzzle v"+releaseVersion+"\n" {
		t.Fatalf("/version = %q", body)
	}
}

func TestQRCode(t *testing.T) {
	srv := newTestServer(t)

	resp, body := get(t, srv.URL+"/qr")
	if resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("content type = %q", resp.Header.Get("Content-Type"))
	}
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Fatal("body is not a PNG")
	}
}

func TestJoinURL(t *testing.T) {
	cfg := defaultConfig(t)

	r := httptest.NewRequest(http.MethodGet, "http://games.example.com/puzzle/qr", nil)
	if got := joinURL(cfg, r); got != "ws://games.example.com/puzzle/ws" {
		t.Fatalf("joinURL = %q", got)
	}

	r.Header.Set("X-Forwarded-Proto", "https")
	if got := joinURL(cfg, r); got != "wss://games.example.com/puzzle/ws" {
		t.Fatalf("joinURL behind TLS proxy = %q", got)
	}
}

func TestWebSocketPlayShowsInRoomsAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	readUntil := func(prefix string) string {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				t.Fatalf("waiting for %q: %v", prefix, err)
			}
			if line := string(data); strings.HasPrefix(line, prefix) {
				return line
			}
		}
	}

	readUntil("WELCOME|")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("REGISTER|alice|secret\nLOGIN|alice|secret")); err != nil {
		t.Fatal(err)
	}
	readUntil("REGISTER_OK")
	readUntil("LOGIN_OK|alice")

	if err := conn.WriteMessage(websocket.TextMessage, []byte("CREATE_ROOM|Alpha")); err != nil {
		t.Fatal(err)
	}
	readUntil("ROOM_STATUS|1|0|0:alice:0:")

	_, body := get(t, srv.URL+"/rooms")
	var rooms []mathpuzzle.RoomInfo
	if err := json.Unmarshal(body, &rooms); err != nil {
		t.Fatalf("decoding /rooms: %v", err)
	}
	if len(rooms) != 1 || rooms[0].Name != "Alpha" || rooms[0].Players != 1 || rooms[0].Started {
		t.Fatalf("/rooms = %+v", rooms)
	}

	_, body = get(t, srv.URL+"/")
	if !strings.Contains(string(body), "Alpha") {
		t.Fatal("home page does not list the room")
	}

	_, body = get(t, srv.URL+"/metrics")
	for _, name := range []string{"mathpuzzle_sessions_active 1", "mathpuzzle_rooms_open 1", `mathpuzzle_commands_total{command="CREATE_ROOM"} 1`} {
		if !strings.Contains(string(body), name) {
			t.Errorf("/metrics missing %q", name)
		}
	}
}

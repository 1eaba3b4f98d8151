package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{}

// newEchoTickServer starts a WebSocket test server that, on connect,
// immediately writes the given raw messages (one per WriteMessage call)
// and then blocks reading (to keep the connection open, replying to pings
// with pongs automatically via the default handler) until the client
// disconnects.
func newEchoTickServer(t *testing.T, messages ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if h := r.Header.Get("X-Api-Secret"); h != "" {
			receivedSecretMu.Lock()
			receivedSecret = h
			receivedSecretMu.Unlock()
		}

		for _, m := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

var (
	receivedSecretMu sync.Mutex
	receivedSecret   string
)

func wsURL(server *httptest.Server) string {
	return "ws" + server.URL[len("http"):]
}

func TestWSSource_DeliversDecodedTicks(t *testing.T) {
	server := newEchoTickServer(t, `{"symbol":"A-B","price":1.5}`, `{"symbol":"B-C","price":2.0}`)
	defer server.Close()

	src := NewWSSource("test", wsURL(server), "", DefaultWSSourceConfig(), nil)

	var mu sync.Mutex
	var received []Tick
	handler := func(t Tick) error {
		mu.Lock()
		received = append(received, t)
		mu.Unlock()
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, handler) }()

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := len(received)
		mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("did not receive both ticks in time")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if received[0].Symbol != "A-B" || received[1].Symbol != "B-C" {
		t.Errorf("unexpected ticks: %+v", received)
	}
}

func TestWSSource_SendsAPISecretHeader(t *testing.T) {
	receivedSecretMu.Lock()
	receivedSecret = ""
	receivedSecretMu.Unlock()

	server := newEchoTickServer(t)
	defer server.Close()

	src := NewWSSource("test", wsURL(server), "shh-its-a-secret", DefaultWSSourceConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, func(Tick) error { return nil }) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	receivedSecretMu.Lock()
	defer receivedSecretMu.Unlock()
	if receivedSecret != "shh-its-a-secret" {
		t.Errorf("expected server to observe the API secret header, got %q", receivedSecret)
	}
}

func TestWSSource_RunReturnsOnContextCancel(t *testing.T) {
	server := newEchoTickServer(t)
	defer server.Close()

	src := NewWSSource("test", wsURL(server), "", DefaultWSSourceConfig(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- src.Run(ctx, func(Tick) error { return nil }) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

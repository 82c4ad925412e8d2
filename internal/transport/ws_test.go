package transport

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/skypro1111/wake-edge-agent/internal/protocol"
)

var upgrader = websocket.Upgrader{}

// newWSServer runs handler over an upgraded connection on the device
// endpoint path and returns the ws:// base URL.
func newWSServer(t *testing.T, handler func(conn *websocket.Conn)) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/esp32_01" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func wsLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func TestClientURL(t *testing.T) {
	c := NewClient("ws://host:8000", "esp32_01", wsLogger())
	if got := c.URL(); got != "ws://host:8000/ws/esp32_01" {
		t.Errorf("Expected device endpoint URL, got %q", got)
	}
}

func TestSendBeforeConnectRejected(t *testing.T) {
	c := NewClient("ws://host:8000", "esp32_01", wsLogger())

	err := c.SendText([]byte("{}"))
	if !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady before connect, got %v", err)
	}
}

func TestConnectMarksReadyAndSends(t *testing.T) {
	received := make(chan []byte, 1)
	url := newWSServer(t, func(conn *websocket.Conn) {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		received <- data
		conn.ReadMessage() // hold the connection open
	})

	c := NewClient(url, "esp32_01", wsLogger())
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	if !c.Ready() {
		t.Fatal("Client must be ready after a successful connect")
	}

	if err := c.SendText([]byte(`{"type":"audio_start"}`)); err != nil {
		t.Fatalf("SendText failed: %v", err)
	}

	select {
	case data := <-received:
		if string(data) != `{"type":"audio_start"}` {
			t.Errorf("Server received %q", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Server never received the payload")
	}
}

func TestConnectFailureLeavesNotReady(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1", "esp32_01", wsLogger())

	if err := c.Connect(); err == nil {
		t.Fatal("Expected connect to fail")
	}
	if c.Ready() {
		t.Error("Failed connect must not mark the client ready")
	}
}

func TestInboundMessageDelivered(t *testing.T) {
	url := newWSServer(t, func(conn *websocket.Conn) {
		msg := `{"type":"action","payload":{"action":"relay_set","target":"light","value":"on"}}`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			return
		}
		conn.ReadMessage() // hold the connection open
	})

	c := NewClient(url, "esp32_01", wsLogger())
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	select {
	case msg := <-c.Commands():
		if msg.Type != protocol.TypeAction {
			t.Errorf("Expected action message, got %q", msg.Type)
		}
		if msg.Action.Target != "light" || msg.Action.Value != "on" {
			t.Errorf("Unexpected action payload: %s", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Inbound command never reached the mailbox")
	}
}

func TestMailboxNewestWins(t *testing.T) {
	c := NewClient("ws://host:8000", "esp32_01", wsLogger())

	first := &protocol.InboundMessage{Type: protocol.TypeAction,
		Action: protocol.ActionPayload{Action: "relay_set", Target: "light", Value: "on"}}
	second := &protocol.InboundMessage{Type: protocol.TypeAction,
		Action: protocol.ActionPayload{Action: "relay_set", Target: "light", Value: "off"}}

	c.deliver(first)
	c.deliver(second)

	select {
	case msg := <-c.Commands():
		if msg != second {
			t.Errorf("Expected the newer command to displace the unconsumed one, got %s", msg)
		}
	default:
		t.Fatal("Mailbox is empty after two deliveries")
	}

	select {
	case msg := <-c.Commands():
		t.Errorf("Mailbox must hold at most one command, got extra %s", msg)
	default:
	}
}

func TestDisconnectClearsReady(t *testing.T) {
	url := newWSServer(t, func(conn *websocket.Conn) {
		conn.Close()
	})

	c := NewClient(url, "esp32_01", wsLogger())
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	waitFor(t, func() bool { return !c.Ready() }, "ready flag to clear on disconnect")

	if err := c.SendText([]byte("{}")); !errors.Is(err, ErrNotReady) {
		t.Errorf("Expected ErrNotReady after disconnect, got %v", err)
	}
}

func TestMalformedInboundIgnored(t *testing.T) {
	url := newWSServer(t, func(conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte("not json at all"))
		msg := `{"type":"play","payload":{"audio":"chime"}}`
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
			return
		}
		conn.ReadMessage() // hold the connection open
	})

	c := NewClient(url, "esp32_01", wsLogger())
	if err := c.Connect(); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	// The malformed frame is skipped; the valid one still arrives.
	select {
	case msg := <-c.Commands():
		if msg.Type != protocol.TypePlay {
			t.Errorf("Expected the play message to survive, got %q", msg.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Valid message after a malformed frame never arrived")
	}
}

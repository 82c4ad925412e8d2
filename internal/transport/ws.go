package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/skypro1111/wake-edge-agent/internal/protocol"
)

// ErrNotReady is returned for sends attempted while the connection is not
// in the ready state.
var ErrNotReady = errors.New("connection not ready")

// Client is the long-lived WebSocket connection to the remote service.
// Connect makes a single attempt with a boolean outcome; reconnection
// policy is out of scope. The ready flag is the only state shared between
// the read goroutine and the main loop, and it is a single-writer/
// single-reader atomic.
type Client struct {
	serverURL string
	deviceID  string
	logger    *slog.Logger

	conn    *websocket.Conn
	ready   atomic.Bool
	writeMu sync.Mutex

	// Single-slot mailbox of parsed inbound commands; newest wins.
	commands chan *protocol.InboundMessage
}

// NewClient creates a client for the given server base URL, e.g.
// "ws://host:8000". The device endpoint path is derived from the device
// ID.
func NewClient(serverURL, deviceID string, logger *slog.Logger) *Client {
	return &Client{
		serverURL: serverURL,
		deviceID:  deviceID,
		logger:    logger,
		commands:  make(chan *protocol.InboundMessage, 1),
	}
}

// URL returns the full device endpoint URL.
func (c *Client) URL() string {
	return fmt.Sprintf("%s/ws/%s", c.serverURL, c.deviceID)
}

// Connect dials the server once. On success the connection is marked
// ready and the inbound read loop starts.
func (c *Client) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.URL(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.URL(), err)
	}

	c.conn = conn
	c.ready.Store(true)
	c.logger.Info("Connected", slog.String("url", c.URL()))

	go c.readLoop()
	return nil
}

// Ready reports whether the connection is open and usable.
func (c *Client) Ready() bool {
	return c.ready.Load()
}

// SendText sends one text payload, blocking until the transport accepts
// it or fails outright.
func (c *Client) SendText(payload []byte) error {
	if !c.ready.Load() {
		return ErrNotReady
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("send rejected: %w", err)
	}
	return nil
}

// Commands returns the inbound command mailbox. At most one parsed
// command is held; an unconsumed command is replaced by a newer one.
func (c *Client) Commands() <-chan *protocol.InboundMessage {
	return c.commands
}

// readLoop delivers parsed inbound messages until the connection drops,
// then clears the ready flag. It runs in its own notification context and
// never actuates anything itself.
func (c *Client) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.ready.Store(false)
			c.logger.Warn("Disconnected", slog.String("error", err.Error()))
			return
		}

		msg, err := protocol.ParseInbound(data)
		if err != nil {
			c.logger.Warn("Malformed inbound message", slog.String("error", err.Error()))
			continue
		}

		c.deliver(msg)
	}
}

// deliver pushes a message into the single-slot mailbox, displacing any
// unconsumed predecessor.
func (c *Client) deliver(msg *protocol.InboundMessage) {
	for {
		select {
		case c.commands <- msg:
			return
		default:
		}
		select {
		case stale := <-c.commands:
			c.logger.Debug("Dropped unconsumed command", slog.String("type", stale.Type))
		default:
		}
	}
}

// Close tears the connection down and clears the ready flag.
func (c *Client) Close() error {
	c.ready.Store(false)
	if c.conn == nil {
		return nil
	}
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// ErrAuthRejected is returned when the server rejects the WebSocket handshake with 401.
var ErrAuthRejected = errors.New("server rejected authentication (401)")

// ErrNotConnected is returned by Emit while the channel is down. Client
// commands are advisory (typing) and are never queued for redelivery.
var ErrNotConnected = errors.New("not connected")

const (
	heartbeatInterval = 30 * time.Second
	writeTimeout      = 10 * time.Second
	baseReconnect     = time.Second
	maxReconnectDelay = 30 * time.Second
)

// Handler receives the raw JSON frame for one event type. Handlers are
// invoked synchronously from the read loop, in server emission order.
type Handler func(data []byte)

// Client is a persistent, reconnecting event-stream connection. Events
// missed while disconnected are not redelivered; OnReconnect is the hook
// where consumers refetch the aggregates they care about.
type Client struct {
	URL   string // e.g. "wss://chat.example.com/ws"
	Token string // bearer credential

	OnStateChange func(state string, err error) // connection state transitions
	OnReconnect   func(ctx context.Context)     // after every successful (re)connect

	handlers   map[string][]Handler
	handlersMu sync.RWMutex

	conn *websocket.Conn
	mu   sync.Mutex
}

// On registers a handler for an event type. Multiple handlers per type are
// invoked in registration order. Must be called before Run.
func (c *Client) On(eventType string, h Handler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	if c.handlers == nil {
		c.handlers = make(map[string][]Handler)
	}
	c.handlers[eventType] = append(c.handlers[eventType], h)
}

// Run connects to the server and dispatches events until ctx is cancelled.
// Automatically reconnects on disconnect with jittered exponential backoff.
// Returns ErrAuthRejected if the server rejects the token with 401.
func (c *Client) Run(ctx context.Context) error {
	c.notifyState("connecting", nil)
	backoff := NewBackoff(baseReconnect, maxReconnectDelay)
	for {
		connected, err := c.connectAndServe(ctx)
		if ctx.Err() != nil {
			c.notifyState("disconnected", ctx.Err())
			return ctx.Err()
		}
		if isAuthError(err) {
			c.notifyState("auth_failed", err)
			return ErrAuthRejected
		}
		if connected {
			// Was connected successfully — reset backoff
			backoff.Reset()
		}
		delay := backoff.Next()
		c.notifyState("disconnected", err)
		slog.Warn("event channel disconnected", "err", err, "retry_in", delay)
		select {
		case <-ctx.Done():
			c.notifyState("disconnected", ctx.Err())
			return ctx.Err()
		case <-time.After(delay):
		}
		c.notifyState("connecting", nil)
	}
}

func (c *Client) notifyState(state string, err error) {
	if c.OnStateChange != nil {
		c.OnStateChange(state, err)
	}
}

// isAuthError returns true if the error indicates a 401 handshake rejection.
func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "401")
}

func (c *Client) connectAndServe(ctx context.Context) (connected bool, err error) {
	opts := &websocket.DialOptions{
		HTTPHeader: make(map[string][]string),
	}
	opts.HTTPHeader.Set("Authorization", "Bearer "+c.Token)

	conn, _, dialErr := websocket.Dial(ctx, c.URL, opts)
	if dialErr != nil {
		return false, fmt.Errorf("dial: %w", dialErr)
	}
	conn.SetReadLimit(512 * 1024)
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer conn.CloseNow()
	connected = true

	c.notifyState("connected", nil)
	if c.OnReconnect != nil {
		// Refetch runs concurrently so the read loop never misses events
		// emitted while the refetch is in flight.
		go c.OnReconnect(ctx)
	}

	hbCtx, hbCancel := context.WithCancel(ctx)
	defer hbCancel()
	go c.heartbeatLoop(hbCtx, conn)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return connected, fmt.Errorf("read: %w", err)
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			slog.Debug("bad frame", "err", err)
			continue
		}

		if env.Type == TypeError {
			var msg ErrorMsg
			json.Unmarshal(data, &msg)
			slog.Warn("server error", "message", msg.Message)
			continue
		}

		c.dispatch(env.Type, data)
	}
}

func (c *Client) dispatch(eventType string, data []byte) {
	c.handlersMu.RLock()
	hs := c.handlers[eventType]
	c.handlersMu.RUnlock()
	if len(hs) == 0 {
		slog.Debug("unhandled event type", "type", eventType)
		return
	}
	for _, h := range hs {
		h(data)
	}
}

func (c *Client) heartbeatLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// Emit sends a client command (currently only typing) on the live
// connection. Fire-and-forget: returns ErrNotConnected while the channel
// is reconnecting, which callers are expected to ignore.
func (c *Client) Emit(ctx context.Context, v any) error {
	return c.writeJSON(ctx, v)
}

func (c *Client) writeJSON(ctx context.Context, v any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}

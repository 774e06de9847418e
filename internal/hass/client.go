// Package hass implements the Home Assistant websocket client used to poll the hub.
//
// The client owns one persistent connection and moves through the states
// Disconnected → Connected → Authorized. It only moves forward on success
// and falls back to Disconnected on any transport or authentication
// failure; reconnecting is left to the owner on its next poll.
//
// Requests are pipelined: Request assigns a monotonically increasing id and
// returns immediately, and the caller correlates replies read with Receive
// by that id. A Client is owned by a single goroutine; only State,
// Version and Close may be called concurrently. A concurrent Close makes
// a blocked Receive return a transport error.
package hass

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// State is the connection state of the client
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateAuthorized
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateAuthorized:
		return "authorized"
	default:
		return "unknown"
	}
}

// websocketPath is appended to the hub base URL
const websocketPath = "/api/websocket"

// Client talks to the hub over its websocket API
type Client struct {
	url    string
	token  string
	dialer Dialer
	log    zerolog.Logger

	lastID int

	// mu guards conn, state and version
	mu      sync.RWMutex
	conn    Transport
	state   State
	version string
}

// NewClient creates a client for the hub at baseURL (ws:// or wss://)
func NewClient(baseURL, token string, dialer Dialer, log zerolog.Logger) *Client {
	return &Client{
		url:    strings.TrimRight(baseURL, "/") + websocketPath,
		token:  token,
		dialer: dialer,
		log:    log.With().Str("component", "hass").Logger(),
	}
}

// State returns the current connection state
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Version returns the hub software version reported during authentication
func (c *Client) Version() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// transport returns the connection when the client is in the wanted state
func (c *Client) transport(want State, op string) (Transport, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != want || c.conn == nil {
		return nil, fmt.Errorf("%w: %s requires %s, client is %s", ErrInvalidState, op, want, c.state)
	}
	return c.conn, nil
}

// Connect opens a new transport to the hub, replacing any existing one
func (c *Client) Connect(ctx context.Context) error {
	c.reset()

	c.log.Info().Str("url", c.url).Msg("Connecting")

	conn, err := c.dialer.Dial(ctx, c.url)
	if err != nil {
		return fmt.Errorf("%w: connect %s: %v", ErrTransport, c.url, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()
	return nil
}

// Authenticate performs the bearer token handshake.
// Messages are read until the hub accepts or rejects the token, or the stream ends.
func (c *Client) Authenticate(ctx context.Context) error {
	conn, err := c.transport(StateConnected, "authenticate")
	if err != nil {
		return err
	}

	c.log.Info().Str("url", c.url).Msg("Logging in")

	if err := conn.WriteJSON(authMessage{Type: typeAuth, AccessToken: c.token}); err != nil {
		c.reset()
		return fmt.Errorf("%w: send auth: %v", ErrTransport, err)
	}

	version := ""
	for {
		if err := ctx.Err(); err != nil {
			c.reset()
			return err
		}

		data, err := conn.ReadMessage()
		if errors.Is(err, io.EOF) {
			c.reset()
			return fmt.Errorf("%w: stream closed during handshake", ErrAuth)
		}
		if err != nil {
			c.reset()
			return fmt.Errorf("%w: %v", ErrTransport, err)
		}

		var msg Response
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn().Err(err).Msg("Ignoring undecodable login message")
			continue
		}
		if msg.HAVersion != "" {
			version = msg.HAVersion
		}

		switch msg.Type {
		case typeAuthOK:
			c.mu.Lock()
			c.state = StateAuthorized
			c.version = version
			c.mu.Unlock()
			c.log.Info().Str("ha_version", version).Msg("Login completed")
			return nil
		case typeAuthInvalid:
			c.reset()
			return fmt.Errorf("%w: %s", ErrAuth, msg.Message)
		case typeAuthRequired:
			c.log.Debug().Str("ha_version", msg.HAVersion).Msg("Login requested")
		default:
			c.log.Debug().Str("type", msg.Type).Msg("Ignoring login message")
		}
	}
}

// Request sends a request and returns its correlation id
func (c *Client) Request(ctx context.Context, requestType string, params map[string]any) (int, error) {
	conn, err := c.transport(StateAuthorized, "request")
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.lastID++
	id := c.lastID

	msg := make(map[string]any, len(params)+2)
	for k, v := range params {
		msg[k] = v
	}
	msg["id"] = id
	msg["type"] = requestType

	if err := conn.WriteJSON(msg); err != nil {
		c.reset()
		return 0, fmt.Errorf("%w: send %s: %v", ErrTransport, requestType, err)
	}

	c.log.Debug().Int("id", id).Str("type", requestType).Msg("Request sent")
	return id, nil
}

// Receive blocks until one message is read.
//
// It returns io.EOF when the stream ended; the client is then disconnected.
// A result whose success flag is false is returned together with a
// *ProtocolError so the caller can drop the pending id and carry on.
// The wait is bounded by the transport's read timeout, not by ctx.
func (c *Client) Receive(ctx context.Context) (*Response, error) {
	conn, err := c.transport(StateAuthorized, "receive")
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := conn.ReadMessage()
	if errors.Is(err, io.EOF) {
		c.reset()
		return nil, io.EOF
	}
	if err != nil {
		c.reset()
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &ProtocolError{Category: CategoryMalformed, Message: err.Error()}
	}

	if resp.IsResult() && !resp.Success {
		return &resp, newProtocolError(resp.ID, resp.Error)
	}

	return &resp, nil
}

// Close drops the connection and returns to Disconnected
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

func (c *Client) reset() {
	if err := c.Close(); err != nil {
		c.log.Debug().Err(err).Msg("Close after failure")
	}
}

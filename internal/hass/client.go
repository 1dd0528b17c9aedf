package hass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Logger is the minimal logging interface the client requires.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Client is a Home Assistant WebSocket API client covering the small
// command surface the audit needs: fetch all states, call a service.
//
// Commands are serialised: one in flight at a time, matched to responses
// by the protocol's message id. Safe for concurrent use.
type Client struct {
	wsURL   string
	token   string
	timeout time.Duration
	logger  Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	nextID int64
}

// message is the wire shape shared by all protocol frames.
type message struct {
	ID      int64           `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success *bool           `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *messageError   `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

type messageError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewClient creates a client for the Home Assistant instance at baseURL
// (http or https; the WebSocket path is derived). The token is a
// long-lived access token. timeout bounds each command round trip.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	wsURL, err := websocketURL(baseURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		wsURL:   wsURL,
		token:   token,
		timeout: timeout,
		logger:  noopLogger{},
		nextID:  1,
	}, nil
}

// SetLogger attaches a logger. Call before Connect.
func (c *Client) SetLogger(l Logger) {
	if l != nil {
		c.logger = l
	}
}

// websocketURL derives the ws(s)://host/api/websocket endpoint from a
// base HTTP URL.
func websocketURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parsing url %q: %w", baseURL, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q in %q", u.Scheme, baseURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(u.Path, "/api/websocket") {
		u.Path += "/api/websocket"
	}
	return u.String(), nil
}

// Connect dials the WebSocket endpoint and completes the authentication
// handshake: auth_required, auth, auth_ok.
//
// Parameters:
//   - ctx: Bounds the dial and handshake
//
// Returns:
//   - error: ErrAuthFailed if the token is rejected
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dialling %s: %w", c.wsURL, err)
	}

	if err := c.authenticate(ctx, conn); err != nil {
		conn.Close() //nolint:errcheck // Best effort cleanup on error path
		return err
	}

	c.conn = conn
	c.logger.Debug("connected", "url", c.wsURL)
	return nil
}

// authenticate runs the handshake on a fresh connection.
func (c *Client) authenticate(ctx context.Context, conn *websocket.Conn) error {
	deadline := c.deadline(ctx)
	conn.SetReadDeadline(deadline)  //nolint:errcheck // Deadline on live conn
	conn.SetWriteDeadline(deadline) //nolint:errcheck // Deadline on live conn

	var greeting message
	if err := conn.ReadJSON(&greeting); err != nil {
		return fmt.Errorf("reading greeting: %w", err)
	}
	if greeting.Type != "auth_required" {
		return fmt.Errorf("%w: greeting type %q", ErrUnexpectedMessage, greeting.Type)
	}

	if err := conn.WriteJSON(map[string]string{
		"type":         "auth",
		"access_token": c.token,
	}); err != nil {
		return fmt.Errorf("sending auth: %w", err)
	}

	var verdict message
	if err := conn.ReadJSON(&verdict); err != nil {
		return fmt.Errorf("reading auth result: %w", err)
	}
	switch verdict.Type {
	case "auth_ok":
		return nil
	case "auth_invalid":
		return fmt.Errorf("%w: %s", ErrAuthFailed, verdict.Message)
	default:
		return fmt.Errorf("%w: auth result type %q", ErrUnexpectedMessage, verdict.Type)
	}
}

// Close shuts the connection down.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// command sends one command frame and waits for its matching result,
// skipping unrelated frames (event pushes).
func (c *Client) command(ctx context.Context, payload map[string]any) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrNotConnected
	}

	id := c.nextID
	c.nextID++
	payload["id"] = id

	deadline := c.deadline(ctx)
	c.conn.SetReadDeadline(deadline)  //nolint:errcheck // Deadline on live conn
	c.conn.SetWriteDeadline(deadline) //nolint:errcheck // Deadline on live conn

	if err := c.conn.WriteJSON(payload); err != nil {
		c.drop()
		return nil, fmt.Errorf("sending %v command: %w", payload["type"], err)
	}

	for {
		var resp message
		if err := c.conn.ReadJSON(&resp); err != nil {
			c.drop()
			return nil, fmt.Errorf("reading %v result: %w", payload["type"], err)
		}
		if resp.Type != "result" || resp.ID != id {
			c.logger.Debug("skipping frame", "type", resp.Type, "id", resp.ID)
			continue
		}
		if resp.Success == nil || !*resp.Success {
			detail := "no error detail"
			if resp.Error != nil {
				detail = fmt.Sprintf("%s: %s", resp.Error.Code, resp.Error.Message)
			}
			return nil, fmt.Errorf("%w: %v: %s", ErrCallFailed, payload["type"], detail)
		}
		return resp.Result, nil
	}
}

// drop discards a connection after a transport error so the next command
// reports ErrNotConnected instead of reusing a broken stream.
func (c *Client) drop() {
	if c.conn != nil {
		c.conn.Close() //nolint:errcheck // Connection already failed
		c.conn = nil
	}
}

// deadline resolves the effective deadline from the context and the
// configured timeout, whichever is sooner.
func (c *Client) deadline(ctx context.Context) time.Time {
	d := time.Now().Add(c.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(d) {
		d = ctxDeadline
	}
	return d
}

package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bnema/chatctl/internal/domain"
	"github.com/bnema/chatctl/internal/ports"
)

const (
	DefaultPingInterval     = 20 * time.Second
	DefaultHandshakeTimeout = 10 * time.Second
)

var ErrNoSession = errors.New("no session token")

const (
	frameAuthenticate  = "Authenticate"
	frameAuthenticated = "Authenticated"
	frameReady         = "Ready"
	frameError         = "Error"
	framePing          = "Ping"
	framePong          = "Pong"
)

type frame struct {
	Type  string     `json:"type"`
	Token string     `json:"token,omitempty"`
	Data  int64      `json:"data,omitempty"`
	Error string     `json:"error,omitempty"`
	User  *frameUser `json:"user,omitempty"`
}

type frameUser struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
}

// Factory builds websocket clients for sessions.
type Factory struct {
	Logger           *slog.Logger
	PingInterval     time.Duration
	HandshakeTimeout time.Duration
}

var _ ports.ClientFactory = Factory{}

func (f Factory) NewClient(opts ports.ClientOptions) ports.RealtimeClient {
	return NewClient(opts, f.Logger, f.PingInterval, f.HandshakeTimeout)
}

// Client is one event-stream connection. It never reconnects on its own;
// Connect re-dials with the token of the last resumed session.
type Client struct {
	id               string
	url              string
	logger           *slog.Logger
	pingInterval     time.Duration
	handshakeTimeout time.Duration
	dialer           websocket.Dialer

	// connectMu serialises Connect so one client never holds two
	// connections.
	connectMu sync.Mutex

	mu       sync.Mutex
	token    string
	userID   string
	username string
	conn     *connection
	closed   bool

	listenersMu  sync.Mutex
	nextListener int
	ready        map[int]func()
	dropped      map[int]func(error)
}

type connection struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
	done    chan struct{}
	// closing is set when the client itself tears the connection down.
	closing atomic.Bool
}

var _ ports.RealtimeClient = (*Client)(nil)

func NewClient(opts ports.ClientOptions, logger *slog.Logger, pingInterval, handshakeTimeout time.Duration) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}
	if handshakeTimeout <= 0 {
		handshakeTimeout = DefaultHandshakeTimeout
	}

	id := uuid.NewString()
	return &Client{
		id:               id,
		url:              opts.WebsocketURL,
		logger:           logger.With("client_id", id),
		pingInterval:     pingInterval,
		handshakeTimeout: handshakeTimeout,
		dialer:           websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		ready:            map[int]func(){},
		dropped:          map[int]func(error){},
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

func (c *Client) UseExistingSession(ctx context.Context, credential domain.Credential) error {
	if credential.Token == "" {
		return ErrNoSession
	}

	c.mu.Lock()
	c.token = credential.Token
	c.mu.Unlock()

	return c.Connect(ctx)
}

// Connect dials the event stream and authenticates. It returns once the
// server accepted the token; the ready listeners fire when the user payload
// arrives.
func (c *Client) Connect(ctx context.Context) error {
	c.connectMu.Lock()
	defer c.connectMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("client closed")
	}
	token := c.token
	previous := c.conn
	c.conn = nil
	c.mu.Unlock()

	if token == "" {
		return ErrNoSession
	}
	if previous != nil {
		previous.shutdown()
	}

	wsConn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	conn := &connection{ws: wsConn, done: make(chan struct{})}

	if err := c.authenticate(ctx, conn, token); err != nil {
		_ = wsConn.Close()
		return err
	}

	c.mu.Lock()
	if c.closed || c.token != token {
		c.mu.Unlock()
		conn.shutdown()
		return errors.New("client closed during connect")
	}
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)
	go c.pingLoop(conn)

	c.logger.Debug("websocket authenticated", "url", c.url)
	return nil
}

func (c *Client) authenticate(ctx context.Context, conn *connection, token string) error {
	if err := conn.send(frame{Type: frameAuthenticate, Token: token}); err != nil {
		return fmt.Errorf("send authenticate: %w", err)
	}

	deadline := time.Now().Add(c.handshakeTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := conn.ws.SetReadDeadline(deadline); err != nil {
		return fmt.Errorf("set read deadline: %w", err)
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.ws.SetReadDeadline(time.Now()) })
	defer stop()

	var reply frame
	if err := conn.ws.ReadJSON(&reply); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("read authenticate reply: %w", err)
	}

	switch reply.Type {
	case frameAuthenticated:
	case frameError:
		return serverError(reply.Error)
	default:
		return fmt.Errorf("unexpected %q frame before authentication", reply.Type)
	}

	if err := conn.ws.SetReadDeadline(time.Time{}); err != nil {
		return fmt.Errorf("clear read deadline: %w", err)
	}
	return nil
}

func (c *Client) readLoop(conn *connection) {
	defer close(conn.done)

	var dropErr error
	for {
		var msg frame
		if err := conn.ws.ReadJSON(&msg); err != nil {
			dropErr = err
			break
		}

		switch msg.Type {
		case frameReady:
			if msg.User == nil || msg.User.ID == "" {
				c.logger.Warn("ready frame without user")
				continue
			}
			c.mu.Lock()
			if c.conn != conn {
				c.mu.Unlock()
				continue
			}
			c.userID = msg.User.ID
			c.username = msg.User.Username
			c.mu.Unlock()
			c.fireReady()
		case frameError:
			dropErr = serverError(msg.Error)
			_ = conn.ws.Close()
		case framePong:
		default:
			c.logger.Debug("ignoring frame", "type", msg.Type)
		}
		if dropErr != nil {
			break
		}
	}

	c.mu.Lock()
	current := c.conn == conn
	if current {
		c.conn = nil
	}
	intentional := conn.closing.Load() || c.closed
	c.mu.Unlock()

	if !current || intentional {
		return
	}
	c.logger.Debug("websocket dropped", "error", dropErr)
	c.fireDropped(dropErr)
}

func (c *Client) pingLoop(conn *connection) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	var seq int64
	for {
		select {
		case <-conn.done:
			return
		case <-ticker.C:
			seq++
			if err := conn.send(frame{Type: framePing, Data: seq}); err != nil {
				c.logger.Debug("ping failed", "error", err)
				_ = conn.ws.Close()
				return
			}
		}
	}
}

// Logout drops the connection and forgets the session token. Dropped
// listeners are not notified.
func (c *Client) Logout(context.Context) error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.token = ""
	c.userID = ""
	c.username = ""
	c.mu.Unlock()

	if conn != nil {
		conn.shutdown()
	}
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.shutdown()
	}
	return nil
}

func (c *Client) OnReady(fn func()) ports.Unsubscribe {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	key := c.nextListener
	c.nextListener++
	c.ready[key] = fn
	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.ready, key)
	}
}

func (c *Client) OnDropped(fn func(error)) ports.Unsubscribe {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	key := c.nextListener
	c.nextListener++
	c.dropped[key] = fn
	return func() {
		c.listenersMu.Lock()
		defer c.listenersMu.Unlock()
		delete(c.dropped, key)
	}
}

func (c *Client) RemoveAllListeners() {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	c.ready = map[int]func(){}
	c.dropped = map[int]func(error){}
}

func (c *Client) fireReady() {
	c.listenersMu.Lock()
	listeners := make([]func(), 0, len(c.ready))
	for _, fn := range c.ready {
		listeners = append(listeners, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

func (c *Client) fireDropped(err error) {
	c.listenersMu.Lock()
	listeners := make([]func(error), 0, len(c.dropped))
	for _, fn := range c.dropped {
		listeners = append(listeners, fn)
	}
	c.listenersMu.Unlock()

	for _, fn := range listeners {
		fn(err)
	}
}

func (conn *connection) send(msg frame) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	conn.writeMu.Lock()
	defer conn.writeMu.Unlock()
	return conn.ws.WriteMessage(websocket.TextMessage, raw)
}

func (conn *connection) shutdown() {
	conn.closing.Store(true)
	conn.writeMu.Lock()
	_ = conn.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	conn.writeMu.Unlock()
	_ = conn.ws.Close()
}

func serverError(code string) error {
	switch code {
	case "InvalidSession", "NotAuthenticated":
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, code)
	case "":
		return errors.New("server error")
	default:
		return fmt.Errorf("server error: %s", code)
	}
}

// Package wsconn provides a reconnecting WebSocket client built on
// github.com/coder/websocket.
package wsconn

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/s9927637/arbitrage-trader/internal/apperror"
)

// State represents the connection state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
)

// Config holds WebSocket client configuration.
type Config struct {
	URL            string
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxReconnects  int // 0 = infinite
	PingInterval   time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(url string) Config {
	return Config{
		URL:            url,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		MaxReconnects:  0, // infinite
		PingInterval:   30 * time.Second,
	}
}

// Client is a reconnecting WebSocket client. Incoming messages are
// delivered on the Messages channel; the read loop reconnects with
// exponential backoff until the context is cancelled or Close is called.
type Client struct {
	config Config

	state   State
	stateMu sync.RWMutex

	conn   *websocket.Conn
	connMu sync.RWMutex

	messages  chan []byte
	done      chan struct{}
	closeOnce sync.Once

	onConnect func(ctx context.Context) error
}

// New creates a new WebSocket client.
func New(config Config) *Client {
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 30 * time.Second
	}
	return &Client{
		config:   config,
		state:    StateDisconnected,
		messages: make(chan []byte, 256),
		done:     make(chan struct{}),
	}
}

// OnConnect registers a hook invoked after every successful (re)connect,
// before the read loop starts. Used for resubscription.
func (c *Client) OnConnect(fn func(ctx context.Context) error) {
	c.onConnect = fn
}

// Connect establishes the WebSocket connection and starts the read loop.
func (c *Client) Connect(ctx context.Context) error {
	c.setState(StateConnecting)

	if err := c.dial(ctx); err != nil {
		c.setState(StateDisconnected)
		return err
	}

	go c.readLoop(ctx)
	if c.config.PingInterval > 0 {
		go c.pingLoop(ctx)
	}

	return nil
}

func (c *Client) dial(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.config.URL, nil)
	if err != nil {
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithContext(c.config.URL),
			apperror.WithCause(err))
	}
	// Market data messages can be large.
	conn.SetReadLimit(1 << 20)

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
	c.setState(StateConnected)

	if c.onConnect != nil {
		if err := c.onConnect(ctx); err != nil {
			conn.Close(websocket.StatusInternalError, "connect hook failed")
			return err
		}
	}

	return nil
}

func (c *Client) readLoop(ctx context.Context) {
	backoff := c.config.InitialBackoff
	reconnects := 0

	for {
		_, data, err := c.read(ctx)
		if err == nil {
			backoff = c.config.InitialBackoff
			select {
			case c.messages <- data:
			case <-ctx.Done():
				return
			case <-c.done:
				return
			}
			continue
		}

		select {
		case <-ctx.Done():
			c.setState(StateDisconnected)
			return
		case <-c.done:
			c.setState(StateDisconnected)
			return
		default:
		}

		// Connection broke: back off and redial.
		c.setState(StateReconnecting)
		reconnects++
		if c.config.MaxReconnects > 0 && reconnects > c.config.MaxReconnects {
			c.setState(StateDisconnected)
			return
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			c.setState(StateDisconnected)
			return
		case <-c.done:
			c.setState(StateDisconnected)
			return
		}

		backoff *= 2
		if backoff > c.config.MaxBackoff {
			backoff = c.config.MaxBackoff
		}

		if err := c.dial(ctx); err != nil {
			continue
		}
		reconnects = 0
	}
}

func (c *Client) read(ctx context.Context) (websocket.MessageType, []byte, error) {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()
	if conn == nil {
		return 0, nil, apperror.New(apperror.CodeWebSocketClosed)
	}
	return conn.Read(ctx)
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.connMu.RLock()
			conn := c.conn
			c.connMu.RUnlock()
			if conn != nil && c.State() == StateConnected {
				pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				_ = conn.Ping(pingCtx)
				cancel()
			}
		case <-ctx.Done():
			return
		case <-c.done:
			return
		}
	}
}

// Send sends a text message through the WebSocket.
func (c *Client) Send(ctx context.Context, msg []byte) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn == nil || c.State() != StateConnected {
		return apperror.New(apperror.CodeWebSocketClosed,
			apperror.WithContext("send on closed connection"))
	}
	return conn.Write(ctx, websocket.MessageText, msg)
}

// Messages returns the channel for receiving messages.
func (c *Client) Messages() <-chan []byte {
	return c.messages
}

// State returns the current connection state.
func (c *Client) State() State {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Close gracefully closes the WebSocket connection.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.done) })

	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()

	c.setState(StateDisconnected)
	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client closing")
	}
	return nil
}

func (c *Client) setState(state State) {
	c.stateMu.Lock()
	c.state = state
	c.stateMu.Unlock()
}

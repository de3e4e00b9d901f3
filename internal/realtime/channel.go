package realtime

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/five82/meshwatch/internal/controller"
)

// State is the connection state of a Channel.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateReconnecting
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Message is one inbound push notification.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Observer receives messages in arrival order, once each, on the channel's
// reader goroutine.
type Observer func(Message)

// Config configures a Channel.
type Config struct {
	URL string
	// ReconnectDelay is the wait between a drop and the next dial. Zero means 5s.
	ReconnectDelay time.Duration
	// MaxReconnectDelay enables exponential backoff when greater than
	// ReconnectDelay.
	MaxReconnectDelay time.Duration
	// PongWait is how long the socket may stay silent, pongs included,
	// before it is treated as dead. Zero means 60s.
	PongWait time.Duration
	// PingInterval is the keepalive ping cadence. It must be shorter than
	// PongWait; zero means five sixths of PongWait.
	PingInterval time.Duration
	Header       http.Header
	Dialer       *websocket.Dialer
	Logger            *slog.Logger
	// OnState is called after every state transition.
	OnState func(State)
}

const (
	handshakeTimeout = 10 * time.Second
	defaultPongWait  = 60 * time.Second
	writeWait        = 10 * time.Second
)

// Channel is a self-reconnecting push connection.
type Channel struct {
	cfg      Config
	observer Observer
	logger   *slog.Logger
	dialer   *websocket.Dialer
	parseLog rate.Sometimes

	ctx          context.Context
	cancel       context.CancelFunc
	done         chan struct{}
	teardownOnce sync.Once

	mu     sync.Mutex
	state  State
	conn   *websocket.Conn
	closed bool
}

// Dial starts connecting to cfg.URL in the background and returns at once.
// The channel stops when ctx is done or Close is called.
func Dial(ctx context.Context, cfg Config, observer Observer) *Channel {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = defaultReconnectDelay
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaultPongWait
	}
	if cfg.PingInterval <= 0 || cfg.PingInterval >= cfg.PongWait {
		cfg.PingInterval = cfg.PongWait * 5 / 6
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	dialer := cfg.Dialer
	if dialer == nil {
		d := *websocket.DefaultDialer
		d.HandshakeTimeout = handshakeTimeout
		dialer = &d
	}
	if observer == nil {
		observer = func(Message) {}
	}

	c := &Channel{
		cfg:      cfg,
		observer: observer,
		logger:   logger.With("component", "push", "url", cfg.URL),
		dialer:   dialer,
		parseLog: rate.Sometimes{First: 3, Interval: 30 * time.Second},
		done:     make(chan struct{}),
		state:    StateConnecting,
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	context.AfterFunc(c.ctx, c.teardown)

	go c.run()
	return c
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed once the channel goroutine has exited.
func (c *Channel) Done() <-chan struct{} {
	return c.done
}

// Close tears the channel down: it cancels any dial or pending reconnect,
// closes the socket and waits for the reader to exit. Safe to call more than
// once.
func (c *Channel) Close() error {
	c.teardown()
	<-c.done
	return nil
}

func (c *Channel) run() {
	defer close(c.done)
	if c.isClosed() {
		return
	}
	c.notify(StateConnecting)

	failures := 0
	for {
		conn, err := c.dial()
		if err == nil {
			if !c.attach(conn) {
				_ = conn.Close()
				return
			}
			failures = 0
			c.logger.Info("push channel connected")
			err = c.readLoop(conn)
			c.detach(conn)
		}
		if c.isClosed() {
			return
		}
		c.logger.Warn("push channel disconnected", "err", err)

		if !c.setState(StateReconnecting) {
			return
		}
		delay := calculateBackoff(failures, c.cfg.ReconnectDelay, c.cfg.MaxReconnectDelay)
		failures++
		timer := time.NewTimer(delay)
		select {
		case <-c.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		if !c.setState(StateConnecting) {
			return
		}
	}
}

func (c *Channel) dial() (*websocket.Conn, error) {
	conn, resp, err := c.dialer.DialContext(c.ctx, c.cfg.URL, c.cfg.Header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, &controller.NetworkError{Op: "dial", URL: c.cfg.URL, Err: err}
	}
	return conn, nil
}

// readLoop reads until the socket fails. Every inbound frame or pong
// extends the read deadline, so a peer that vanishes without closing the
// connection is detected after PongWait.
func (c *Channel) readLoop(conn *websocket.Conn) error {
	extend := func() error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	}
	if err := extend(); err != nil {
		return err
	}
	conn.SetPongHandler(func(string) error { return extend() })

	stopPing := make(chan struct{})
	defer close(stopPing)
	go c.keepalive(conn, stopPing)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := extend(); err != nil {
			return err
		}
		msg, err := decodeMessage(raw)
		if err != nil {
			c.parseLog.Do(func() {
				c.logger.Warn("dropping malformed push frame", "err", err, "bytes", len(raw))
			})
			continue
		}
		if c.isClosed() {
			return nil
		}
		c.observer(msg)
	}
}

// keepalive pings the controller until stop is closed. Pings are control
// frames; the client still never sends application data.
func (c *Channel) keepalive(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Debug("push ping failed", "err", err)
				return
			}
		}
	}
}

func decodeMessage(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(bytes.TrimSpace(raw), &msg); err != nil {
		return Message{}, &controller.ParseError{Source: "push frame", Err: err}
	}
	if msg.Type == "" {
		return Message{}, &controller.ParseError{Source: "push frame", Err: errors.New("missing type")}
	}
	return msg, nil
}

func (c *Channel) attach(conn *websocket.Conn) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.conn = conn
	c.state = StateOpen
	c.mu.Unlock()
	c.notify(StateOpen)
	return true
}

func (c *Channel) detach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	_ = conn.Close()
}

func (c *Channel) setState(s State) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	changed := c.state != s
	c.state = s
	c.mu.Unlock()
	if changed {
		c.notify(s)
	}
	return true
}

func (c *Channel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Channel) teardown() {
	c.teardownOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.state = StateClosed
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()

		c.cancel()
		if conn != nil {
			deadline := time.Now().Add(time.Second)
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			_ = conn.Close()
		}
		c.logger.Info("push channel closed")
		c.notify(StateClosed)
	})
}

func (c *Channel) notify(s State) {
	c.logger.Debug("push channel state", "state", s.String())
	if c.cfg.OnState != nil {
		c.cfg.OnState(s)
	}
}

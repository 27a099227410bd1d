// Package client manages the chat connection to the Vroomie server: a
// duplex websocket with bounded reconnection, falling back to the one-shot
// HTTP exchange when no socket is available, and the local chat state
// reconstructed from inbound events.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/vroomie/internal/wire"
)

// Status is the connection state visible to the UI. Transitions are driven
// by discrete events: open, message, error/close, teardown.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusFailed       Status = "failed"
)

// User-facing notices. Each is surfaced exactly once per failure sequence.
const (
	reconnectingNotice   = "Connection lost. Attempting to reconnect..."
	connectFailedMessage = "Unable to connect to the server after multiple attempts. Please try again later."
	sendFailedMessage    = "Sorry, I'm unable to connect to the server. Please check your internet connection and try again later."
)

// Reconnection defaults.
const (
	DefaultMaxAttempts     = 5
	DefaultInitialInterval = time.Second
)

// Backoff returns the reconnect delay for the given attempt count:
// initial * 2^attempt. Pure so the schedule is testable without a socket.
func Backoff(initial time.Duration, attempt int) time.Duration {
	return initial * time.Duration(1<<attempt)
}

// conn is the subset of *websocket.Conn the manager uses.
type conn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v any) error
	Close() error
}

// dialFunc opens a duplex connection.
type dialFunc func(ctx context.Context) (conn, error)

// scheduleFunc schedules fn after delay and returns a cancel function.
type scheduleFunc func(delay time.Duration, fn func()) (cancel func())

// Config holds the connection manager's endpoints and retry bounds.
type Config struct {
	// ServerURL is the HTTP base of the server, e.g. http://localhost:3001.
	// The websocket endpoint and fallback endpoint are derived from it.
	ServerURL string

	// MaxAttempts bounds consecutive reconnect attempts (default 5).
	MaxAttempts int

	// InitialInterval is the first reconnect delay (default 1s); each
	// further attempt doubles it.
	InitialInterval time.Duration
}

// Option customizes a Manager.
type Option func(*Manager)

// WithDialFunc replaces the websocket dialer (for tests).
func WithDialFunc(dial dialFunc) Option {
	return func(m *Manager) { m.dial = dial }
}

// WithScheduler replaces the retry timer (for tests).
func WithScheduler(schedule scheduleFunc) Option {
	return func(m *Manager) { m.schedule = schedule }
}

// WithHTTPClient replaces the fallback HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(m *Manager) { m.httpClient = c }
}

// WithOnUpdate registers a callback invoked after every state or chat-log
// change. It must not call back into the Manager.
func WithOnUpdate(fn func()) Option {
	return func(m *Manager) { m.onUpdate = fn }
}

// Manager owns one logical connection per session. At most one retry timer
// is pending at a time; a successful open resets the attempt counter.
type Manager struct {
	wsURL       string
	fallbackURL string
	maxAttempts int
	initial     time.Duration

	dial       dialFunc
	schedule   scheduleFunc
	httpClient *http.Client
	logger     *slog.Logger
	onUpdate   func()
	log        *Log

	mu          sync.Mutex
	conn        conn
	status      Status
	attempts    int
	cancelRetry func()
	closed      bool
}

// New creates a connection manager. Call Connect to open the channel.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Manager {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultInitialInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		wsURL:       websocketURL(cfg.ServerURL),
		fallbackURL: strings.TrimRight(cfg.ServerURL, "/") + "/api/query",
		maxAttempts: cfg.MaxAttempts,
		initial:     cfg.InitialInterval,
		httpClient:  &http.Client{Timeout: 2 * time.Minute},
		logger:      logger,
		log:         NewLog(),
		status:      StatusConnecting,
	}
	m.dial = m.dialWebSocket
	m.schedule = func(delay time.Duration, fn func()) func() {
		t := time.AfterFunc(delay, fn)
		return func() { t.Stop() }
	}

	for _, opt := range opts {
		opt(m)
	}
	return m
}

// websocketURL derives the duplex endpoint from the HTTP base.
func websocketURL(serverURL string) string {
	ws := strings.Replace(serverURL, "http://", "ws://", 1)
	ws = strings.Replace(ws, "https://", "wss://", 1)
	return strings.TrimRight(ws, "/") + "/ws"
}

func (m *Manager) dialWebSocket(ctx context.Context) (conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	c, _, err := dialer.DialContext(ctx, m.wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}
	return c, nil
}

// Connect dials the duplex channel and starts the read loop. It blocks
// until the dial resolves; a failed dial enters the reconnect sequence.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.status = StatusConnecting
	m.mu.Unlock()
	m.notify()

	c, err := m.dial(context.Background())
	if err != nil {
		m.logger.Warn("connect failed", "url", m.wsURL, "error", err)
		m.connectionLost(nil)
		return
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		c.Close()
		return
	}
	m.conn = c
	m.status = StatusConnected
	m.attempts = 0
	m.mu.Unlock()

	m.logger.Info("connected", "url", m.wsURL)
	m.notify()

	go m.readLoop(c)
}

// readLoop consumes inbound events until the connection breaks.
func (m *Manager) readLoop(c conn) {
	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			m.logger.Info("connection closed", "error", err)
			m.connectionLost(c)
			return
		}
		m.handleMessage(data)
	}
}

// handleMessage parses a response envelope and appends a bot message.
// Unparseable payloads are logged and dropped; both response and error
// envelopes surface their content to the user.
func (m *Manager) handleMessage(data []byte) {
	var ev wire.Envelope
	if err := json.Unmarshal(data, &ev); err != nil {
		m.logger.Warn("ignoring unparseable message", "error", err)
		return
	}
	m.log.AppendBot(ev.Content)
	m.notify()
}

// connectionLost handles a close/error event: schedule a bounded backoff
// retry or, once attempts are exhausted, go terminal. c is the connection
// that broke (nil for a failed dial); stale connections are ignored.
func (m *Manager) connectionLost(c conn) {
	m.mu.Lock()
	if m.closed || (c != nil && m.conn != c) {
		m.mu.Unlock()
		return
	}
	m.conn = nil

	if m.attempts < m.maxAttempts {
		m.status = StatusDisconnected
		delay := Backoff(m.initial, m.attempts)
		m.attempts++
		firstRetry := m.attempts == 1

		if m.cancelRetry != nil {
			m.cancelRetry()
		}
		m.cancelRetry = m.schedule(delay, m.Connect)
		m.mu.Unlock()

		m.logger.Info("reconnect scheduled", "attempt", m.attempts, "delay", delay)
		if firstRetry {
			m.log.AppendBot(reconnectingNotice)
		}
		m.notify()
		return
	}

	m.status = StatusFailed
	m.mu.Unlock()

	m.logger.Error("reconnect attempts exhausted", "attempts", m.maxAttempts)
	m.log.AppendBot(connectFailedMessage)
	m.notify()
}

// Send delivers a user query. The user's message is always appended
// locally first, regardless of delivery outcome. With an open socket the
// query goes over the duplex channel; otherwise it falls back to the
// one-shot exchange, and if that also fails the failure is surfaced as a
// bot message and any half-open connection is closed.
func (m *Manager) Send(ctx context.Context, content string) {
	m.log.AppendUser(content)
	m.notify()

	m.mu.Lock()
	c := m.conn
	connected := m.status == StatusConnected
	m.mu.Unlock()

	if connected && c != nil {
		if err := c.WriteJSON(wire.Envelope{Type: wire.EventQuery, Content: content}); err == nil {
			return
		} else {
			m.logger.Warn("websocket send failed, using fallback", "error", err)
		}
	}

	if err := m.sendOneShot(ctx, content); err != nil {
		m.logger.Warn("fallback request failed", "error", err)
		m.log.AppendBot(sendFailedMessage)
		m.notify()

		m.mu.Lock()
		if m.conn != nil {
			m.conn.Close()
		}
		m.mu.Unlock()
	}
}

// sendOneShot performs the history-free HTTP exchange and appends the
// answer as a bot message.
func (m *Manager) sendOneShot(ctx context.Context, content string) error {
	answer, err := postQuery(ctx, m.httpClient, m.fallbackURL, content)
	if err != nil {
		return err
	}

	m.log.AppendBot(answer)
	m.notify()
	return nil
}

// Status returns the current connection state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Log returns the chat state.
func (m *Manager) Log() *Log {
	return m.log
}

// Close tears the manager down: the pending retry timer is cleared and the
// socket closed. Safe to call more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	if m.cancelRetry != nil {
		m.cancelRetry()
		m.cancelRetry = nil
	}
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
	}
}

func (m *Manager) notify() {
	if m.onUpdate != nil {
		m.onUpdate()
	}
}

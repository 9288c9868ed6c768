package channel

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jmswain/chat-relay/internal/protocol"
)

// Status is the connection state of a Channel.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusOpen         Status = "open"
	StatusReconnecting Status = "reconnecting"
	StatusExhausted    Status = "exhausted"
)

// Config configures a Channel.
type Config struct {
	URL                  string        // Relay WebSocket URL (e.g. ws://localhost:3001/ws)
	ReconnectBaseDelay   time.Duration // Backoff floor; doubles after every attempt
	MaxReconnectAttempts int           // Retry budget before Exhausted
	WriteTimeout         time.Duration // Write deadline for publishes
	HandshakeTimeout     time.Duration // Dial timeout
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:                  "ws://localhost:3001/ws",
		ReconnectBaseDelay:   1 * time.Second,
		MaxReconnectAttempts: 5,
		WriteTimeout:         5 * time.Second,
		HandshakeTimeout:     10 * time.Second,
	}
}

// Channel is one reconnecting logical connection to the relay.
type Channel struct {
	cfg    Config
	logger *slog.Logger

	mu         sync.Mutex
	status     Status
	ws         *websocket.Conn
	userID     string
	attempts   int
	retryTimer *time.Timer

	// writeMu serializes frame writes; the gorilla connection allows at
	// most one concurrent writer.
	writeMu sync.Mutex

	listeners []listenerEntry
	nextToken int
}

type listenerEntry struct {
	token int
	fn    Listener
}

// New creates a Channel in the Disconnected state.
func New(cfg Config, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		cfg:    cfg,
		logger: logger,
		status: StatusDisconnected,
	}
}

// Status returns the current connection status.
func (c *Channel) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Connect opens a transport to the relay for userID. Calling Connect while
// the channel is already Open is a no-op. A failed dial schedules a retry
// under the backoff policy.
func (c *Channel) Connect(userID string) error {
	c.mu.Lock()
	if c.status == StatusOpen || c.status == StatusConnecting {
		c.mu.Unlock()
		return nil
	}
	// An explicit Connect supersedes any scheduled retry.
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	c.userID = userID
	c.attempts = 0
	c.status = StatusConnecting
	c.mu.Unlock()

	return c.dial(userID)
}

// dial attempts one physical connection. On success the channel is Open and
// the retry budget is reset; on failure the next retry is scheduled.
func (c *Channel) dial(userID string) error {
	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.HandshakeTimeout}

	ws, _, err := dialer.Dial(c.cfg.URL+"?userId="+userID, nil)
	if err != nil {
		c.logger.Warn("connect failed", "url", c.cfg.URL, "error", err)
		c.mu.Lock()
		if c.status == StatusConnecting {
			c.status = StatusReconnecting
			c.scheduleReconnectLocked()
		}
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	// Disconnect() may have raced the dial; the session it closed must not
	// come back.
	if c.status != StatusConnecting {
		c.mu.Unlock()
		ws.Close()
		return nil
	}
	c.ws = ws
	c.status = StatusOpen
	c.attempts = 0
	c.mu.Unlock()

	c.logger.Info("channel open", "user_id", userID)

	go c.readLoop(ws, userID)
	return nil
}

// readLoop consumes one physical connection until it drops, then hands over
// to the reconnect scheduler.
func (c *Channel) readLoop(ws *websocket.Conn, userID string) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.handleDrop(ws)
			return
		}
		c.dispatch(data)
	}
}

// handleDrop reacts to a read failure on ws. Drops of stale connections
// (already replaced or explicitly closed) are ignored.
func (c *Channel) handleDrop(ws *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ws != ws || c.status != StatusOpen {
		return
	}
	c.ws = nil
	c.status = StatusReconnecting
	c.logger.Warn("channel dropped", "user_id", c.userID)
	c.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the retry timer for the next attempt, or
// transitions to Exhausted once the budget is spent. Caller holds c.mu.
func (c *Channel) scheduleReconnectLocked() {
	if c.attempts >= c.cfg.MaxReconnectAttempts {
		c.status = StatusExhausted
		c.logger.Error("reconnect attempts exhausted",
			"user_id", c.userID,
			"attempts", c.attempts,
		)
		return
	}

	c.attempts++
	delay := backoffDelay(c.cfg.ReconnectBaseDelay, c.attempts)
	userID := c.userID

	c.logger.Info("scheduling reconnect",
		"attempt", c.attempts,
		"max_attempts", c.cfg.MaxReconnectAttempts,
		"delay", delay,
	)

	c.retryTimer = time.AfterFunc(delay, func() {
		c.mu.Lock()
		// Disconnect() may have raced the timer; a late retry must not
		// resurrect a closed channel.
		if c.status != StatusReconnecting {
			c.mu.Unlock()
			return
		}
		c.status = StatusConnecting
		c.mu.Unlock()

		c.dial(userID)
	})
}

// backoffDelay returns the delay before the nth reconnect attempt:
// base doubling per attempt, so attempt n waits base * 2^(n-1).
func backoffDelay(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// Publish writes one event to the relay. While the channel is not Open the
// call is a silent no-op: events are never queued for replay.
func (c *Channel) Publish(evt protocol.Event) {
	c.mu.Lock()
	ws := c.ws
	open := c.status == StatusOpen
	c.mu.Unlock()

	if !open || ws == nil {
		c.logger.Debug("publish dropped, channel not open", "type", evt.Type)
		return
	}

	data, err := protocol.Encode(evt)
	if err != nil {
		c.logger.Error("encode outbound event", "type", evt.Type, "error", err)
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Warn("publish write failed", "type", evt.Type, "error", err)
	}
}

// Disconnect closes the transport and cancels any pending reconnect. The
// channel returns to Disconnected and stays there until the next Connect.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
	ws := c.ws
	c.ws = nil
	c.status = StatusDisconnected
	c.attempts = 0
	c.mu.Unlock()

	if ws != nil {
		ws.Close()
	}
}

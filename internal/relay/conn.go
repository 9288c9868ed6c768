package relay

import "sync"

// Transport is the write side of one live client connection. The WebSocket
// handler supplies the real implementation; tests supply fakes.
type Transport interface {
	// WriteMessage writes one frame to the client.
	WriteMessage(data []byte) error

	// Close tears down the underlying connection.
	Close() error
}

// conn pairs a user id with its transport. The registry owns the conn for
// its lifetime: created on Accept, destroyed on disconnect or replacement.
type conn struct {
	userID    string
	transport Transport

	mu   sync.Mutex
	live bool
}

func newConn(userID string, t Transport) *conn {
	return &conn{userID: userID, transport: t, live: true}
}

// send writes one frame, serializing writers. Returns false if the
// connection is no longer live or the write failed.
func (c *conn) send(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.live {
		return false
	}
	if err := c.transport.WriteMessage(data); err != nil {
		c.live = false
		return false
	}
	return true
}

// close marks the conn dead and closes the transport. Safe to call twice.
func (c *conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.live {
		return
	}
	c.live = false
	c.transport.Close()
}

package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client is one live connection: its identity, transport handle, and outbound
// queue. A single writer goroutine drains send; fan-out paths enqueue with
// queue and never touch the socket directly.
type Client struct {
	id       string
	identity Identity
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}

	closeOnce sync.Once
}

// NewClient wraps an accepted WebSocket connection for the given identity.
func NewClient(identity Identity, conn *websocket.Conn, sendQueueSize int) *Client {
	if sendQueueSize <= 0 {
		sendQueueSize = 64
	}
	return &Client{
		id:       uuid.NewString(),
		identity: identity,
		conn:     conn,
		send:     make(chan []byte, sendQueueSize),
		done:     make(chan struct{}),
	}
}

// ID returns the connection ID (unique per connection, not per user).
func (c *Client) ID() string { return c.id }

// Identity returns the verified identity bound to this connection.
func (c *Client) Identity() Identity { return c.identity }

// queue enqueues an outbound frame without blocking. Frames for a finished
// connection or a client whose buffer is full are dropped; delivery is
// best-effort.
func (c *Client) queue(frame []byte) {
	if c == nil || frame == nil {
		return
	}
	select {
	case <-c.done:
	case c.send <- frame:
	default:
	}
}

// finish marks the connection done exactly once, stopping the writer. The
// send channel itself is never closed, so a straggling fan-out that raced
// with teardown drops its frame instead of panicking.
func (c *Client) finish() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

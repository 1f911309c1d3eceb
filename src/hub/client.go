package hub

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phantomop26/TeachForward/src/types"
)

// Client wraps one WebSocket connection bound to a claimed user identifier.
type Client struct {
	ID          string // connection id, for log correlation
	UserID      int64
	conn        types.Conn
	send        chan string
	connectedAt time.Time
	done        chan struct{}
	mu          sync.Mutex
	closed      bool
}

// NewClient creates a client wrapper around conn. buffer sizes the outbound
// queue drained by WritePump; a full queue makes delivery attempts fail
// without blocking the sender.
func NewClient(userID int64, conn types.Conn, buffer int) *Client {
	return &Client{
		ID:          uuid.New().String(),
		UserID:      userID,
		conn:        conn,
		send:        make(chan string, buffer),
		connectedAt: time.Now(),
		done:        make(chan struct{}),
	}
}

// ConnectedAt reports when the client connected.
func (c *Client) ConnectedAt() time.Time { return c.connectedAt }

// ReadText blocks until the next inbound frame arrives or the transport
// closes.
func (c *Client) ReadText() (string, error) {
	return c.conn.ReadText()
}

// enqueue attempts to hand payload to the write pump. It reports false when
// the client is closed or its buffer is full; it never blocks.
func (c *Client) enqueue(payload string) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// WritePump writes queued payloads to the WebSocket. Call in a goroutine.
func (c *Client) WritePump() {
	defer c.conn.Close()

	for {
		select {
		case payload := <-c.send:
			if err := c.conn.WriteText(payload); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Close signals the client to stop its write pump and closes the transport.
// Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
		c.conn.Close()
	}
}

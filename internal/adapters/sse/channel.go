// Package sse implements the primary subscription transport: a
// long-lived server-sent-events response fed from a room's fan-out.
package sse

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/avlasov/WatchSync/internal/core"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("channel closed")
)

// Channel is one client's buffered event queue. The broadcaster
// enqueues via TrySend; the stream handler drains Receive.
type Channel struct {
	id   core.SubscriberID
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func NewChannel(buffer int) *Channel {
	return &Channel{
		id:   core.SubscriberID(uuid.NewString()),
		send: make(chan []byte, buffer),
	}
}

func (c *Channel) ID() core.SubscriberID { return c.id }

func (c *Channel) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Channel) Receive() <-chan []byte { return c.send }

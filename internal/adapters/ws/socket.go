// Package ws is the alternative push transport: the same fan-out
// contract as the SSE channel, delivered over a websocket. The socket
// is server-push only; inbound frames are drained and discarded so
// close handshakes still work.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/avlasov/WatchSync/internal/core"
	"github.com/avlasov/WatchSync/internal/domain"
)

var ErrBackpressure = errors.New("backpressure")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Conn struct {
	id   core.SubscriberID
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func (c *Conn) ID() core.SubscriberID { return c.id }

func (c *Conn) TrySend(data []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- data:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

type SocketController struct {
	Rooms     core.RoomRegistry
	Buffer    int
	ReadLimit int64
}

func (ctl *SocketController) HandleSocket(ctx context.Context, c *gin.Context) {
	roomID := domain.RoomID(c.Query("room"))
	if roomID == "" {
		roomID = domain.DefaultRoom
	}

	socket, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}

	conn := &Conn{
		id:   core.SubscriberID(uuid.NewString()),
		conn: socket,
		send: make(chan []byte, ctl.Buffer),
	}

	room := ctl.Rooms.GetOrCreate(roomID)
	room.Subscribe(conn)
	log.Info().Str("module", "adapters.ws").Str("room", string(roomID)).Str("sub", string(conn.id)).Msg("socket opened")

	// Snapshot-on-connect, queued ahead of any fan-out traffic.
	if snap, err := json.Marshal(struct {
		Type      string        `json:"type"`
		Payload   core.Snapshot `json:"payload"`
		Timestamp int64         `json:"timestamp"`
	}{"snapshot", room.Snapshot(), time.Now().UnixMilli()}); err == nil {
		_ = conn.TrySend(snap)
	}

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, room, conn)
}

func (ctl *SocketController) writePump(ctx context.Context, c *Conn) {
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "adapters.ws").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *SocketController) readPump(ctx context.Context, cancel context.CancelFunc, room core.RoomService, c *Conn) {
	defer func() {
		room.Unsubscribe(c.id)
		cancel()
		c.Close()
		log.Info().Str("module", "adapters.ws").Str("sub", string(c.id)).Msg("socket closed")
	}()

	if ctl.ReadLimit > 0 {
		c.conn.SetReadLimit(ctl.ReadLimit)
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if _, _, err := c.conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

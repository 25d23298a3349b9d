package sse

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/avlasov/WatchSync/internal/core"
	"github.com/avlasov/WatchSync/internal/domain"
)

type StreamController struct {
	Rooms     core.RoomRegistry
	Keepalive time.Duration
	Buffer    int
}

// HandleStream attaches the caller to a room's event stream. The first
// frame is a snapshot of the room so late joiners resync without a
// separate read; after that the client sees fan-out events only. There
// is no replay: anything broadcast before attach is gone.
func (ctl *StreamController) HandleStream(ctx context.Context, c *gin.Context) {
	roomID := domain.RoomID(c.Query("room"))
	if roomID == "" {
		roomID = domain.DefaultRoom
	}
	room := ctl.Rooms.GetOrCreate(roomID)

	ch := NewChannel(ctl.Buffer)
	room.Subscribe(ch)
	defer func() {
		room.Unsubscribe(ch.ID())
		ch.Close()
	}()

	log.Info().Str("module", "adapters.sse").Str("room", string(roomID)).Str("sub", string(ch.ID())).Msg("stream opened")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if err := writeSnapshot(c, room.Snapshot()); err != nil {
		return
	}

	keepalive := ctl.Keepalive
	if keepalive <= 0 {
		keepalive = 15 * time.Second
	}
	keep := time.NewTicker(keepalive)
	defer keep.Stop()

	clientGone := c.Request.Context().Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-clientGone:
			log.Info().Str("module", "adapters.sse").Str("sub", string(ch.ID())).Msg("client disconnected")
			return
		case <-keep.C:
			if _, err := c.Writer.WriteString(": keepalive\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		case data, ok := <-ch.Receive():
			if !ok {
				return
			}
			if err := sse.Encode(c.Writer, sse.Event{Data: string(data)}); err != nil {
				log.Error().Err(err).Str("module", "adapters.sse").Str("sub", string(ch.ID())).Msg("stream write error")
				return
			}
			c.Writer.Flush()
		}
	}
}

func writeSnapshot(c *gin.Context, snap core.Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := sse.Encode(c.Writer, sse.Event{Event: "snapshot", Data: string(b)}); err != nil {
		return err
	}
	c.Writer.Flush()
	return nil
}

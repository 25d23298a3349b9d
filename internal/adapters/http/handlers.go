package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avlasov/WatchSync/internal/app"
	"github.com/avlasov/WatchSync/internal/core"
	"github.com/avlasov/WatchSync/internal/domain"
)

type API struct {
	Ingest *app.Ingest
	Rooms  core.RoomRegistry
}

type submitRequest struct {
	Room    string          `json:"room"`
	Type    string          `json:"type" binding:"required"`
	Payload json.RawMessage `json:"payload"`
	Sender  string          `json:"sender"`
}

// SubmitEvent accepts one event. The sender field may be omitted; the
// client-token cookie identity is used then, so anonymous browsers
// still get a stable sender id.
func (a *API) SubmitEvent(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sender := domain.SenderID(req.Sender)
	if sender == "" {
		sender = domain.SenderID(c.GetString("client_token"))
	}

	err := a.Ingest.Submit(domain.RoomID(req.Room), req.Type, req.Payload, sender)
	switch {
	case errors.Is(err, app.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	}
}

// RoomState is the snapshot read for late joiners. It always succeeds;
// a room nobody has touched yields empty fields.
func (a *API) RoomState(c *gin.Context) {
	snap := a.Ingest.RoomState(domain.RoomID(c.Query("room")))
	c.JSON(http.StatusOK, snap)
}

func (a *API) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, a.Rooms.List())
}

func (a *API) Health(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

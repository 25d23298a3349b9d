package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/avlasov/WatchSync/internal/adapters/sse"
	"github.com/avlasov/WatchSync/internal/adapters/ws"
	"github.com/avlasov/WatchSync/internal/app"
	"github.com/avlasov/WatchSync/internal/config"
	"github.com/avlasov/WatchSync/internal/core"
)

// supportedOperations is advertised on 405 responses.
var supportedOperations = []string{
	"POST /api/event",
	"GET /api/state",
	"GET /api/stream",
	"GET /api/ws",
	"GET /api/rooms",
	"GET /healthz",
}

func genClientToken() string {
	return uuid.NewString()
}

// ClientTokenMiddleware assigns each browser a stable identity cookie,
// used as the default sender id for submitted events.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, ingest *app.Ingest, rooms core.RoomRegistry) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("WatchSessions", store))
	r.Use(ClientTokenMiddleware())

	r.HandleMethodNotAllowed = true
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error":      "method not allowed",
			"operations": supportedOperations,
		})
	})

	api := &API{Ingest: ingest, Rooms: rooms}
	stream := &sse.StreamController{Rooms: rooms, Keepalive: cfg.KeepalivePeriod, Buffer: cfg.BufferSize}
	socket := &ws.SocketController{Rooms: rooms, Buffer: cfg.BufferSize, ReadLimit: cfg.ReadLimit}

	grp := r.Group("/api")
	grp.POST("/event", api.SubmitEvent)
	grp.GET("/state", api.RoomState)
	grp.GET("/rooms", api.ListRooms)
	grp.GET("/stream", func(c *gin.Context) {
		stream.HandleStream(ctx, c)
	})
	grp.GET("/ws", func(c *gin.Context) {
		socket.HandleSocket(ctx, c)
	})
	r.GET("/healthz", api.Health)

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}

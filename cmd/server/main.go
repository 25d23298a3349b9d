package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/avlasov/WatchSync/internal/adapters/http"
	"github.com/avlasov/WatchSync/internal/app"
	"github.com/avlasov/WatchSync/internal/config"
	"github.com/avlasov/WatchSync/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Human-friendly output for terminal; in production you may want JSON only.
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load config")
	}

	rooms := core.NewRegistry(core.Options{HostFailover: cfg.HostFailover})

	ingest := &app.Ingest{
		Rooms:  rooms,
		Policy: app.PolicyFromName(cfg.SlowPolicy),
	}
	if cfg.IngestLimit > 0 {
		ingest.Limiter = app.NewSenderRateLimiter(cfg.IngestLimit, cfg.IngestWindow)
	}

	if cfg.RoomTTL > 0 {
		sweeper := &app.Sweeper{Rooms: rooms, TTL: cfg.RoomTTL, Interval: cfg.SweepInterval}
		go sweeper.Run(ctx)
	}

	r := router.SetupRouter(ctx, cfg, ingest, rooms)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("WatchSync server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
}

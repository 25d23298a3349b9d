package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avlasov/WatchSync/internal/core"
)

// Sweeper evicts rooms that have no subscribers and no recent
// activity. It is an explicit opt-in: with TTL zero no sweeper is run
// and rooms live for the process lifetime.
type Sweeper struct {
	Rooms    core.RoomRegistry
	TTL      time.Duration
	Interval time.Duration
}

func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = s.TTL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Str("module", "app.sweeper").Dur("ttl", s.TTL).Msg("room sweeper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.sweeper").Msg("room sweeper stopped")
			return
		case <-ticker.C:
			if n := s.Rooms.Sweep(time.Now().Add(-s.TTL)); n > 0 {
				log.Info().Str("module", "app.sweeper").Int("evicted", n).Msg("swept idle rooms")
			}
		}
	}
}

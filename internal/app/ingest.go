// Package app orchestrates event intake: validation, room state
// mutation and fan-out, plus the operational knobs around them
// (backpressure policy, rate limiting, room eviction).
package app

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avlasov/WatchSync/internal/core"
	"github.com/avlasov/WatchSync/internal/domain"
)

var (
	ErrRateLimited = errors.New("rate limited")
	ErrNoSender    = errors.New("missing sender")
)

// Ingest accepts externally-submitted events and drives the room they
// address. It is stateless per call; all shared state lives in rooms.
type Ingest struct {
	Rooms   core.RoomRegistry
	Policy  Policy
	Limiter *SenderRateLimiter // nil disables rate limiting
}

// Submit validates and classifies one event, applies it to the room
// and fans it out. A malformed payload rejects the whole event: no
// state is touched and nothing reaches subscribers.
func (s *Ingest) Submit(roomID domain.RoomID, typ string, payload json.RawMessage, sender domain.SenderID) error {
	if roomID == "" {
		roomID = domain.DefaultRoom
	}
	if sender == "" {
		return ErrNoSender
	}
	if s.Limiter != nil && !s.Limiter.Allow(sender) {
		log.Warn().Str("module", "app.ingest").Str("room", string(roomID)).Str("sender", string(sender)).Msg("sender rate limited")
		return ErrRateLimited
	}

	ev, err := domain.DecodeEvent(typ, payload, sender, time.Now())
	if err != nil {
		return err
	}

	room := s.Rooms.GetOrCreate(roomID)
	res := room.Apply(ev)

	for _, slow := range res.Dropped {
		if s.Policy == nil {
			continue
		}
		switch s.Policy.OnBackpressure(room, slow) {
		case CloseSubscriber:
			room.Unsubscribe(slow.ID())
			slow.Close()
			log.Warn().Str("module", "app.ingest").Str("room", string(roomID)).Str("sub", string(slow.ID())).Msg("closed slow subscriber")
		case DropEvent:
		}
	}

	log.Debug().Str("module", "app.ingest").Str("room", string(roomID)).Str("type", typ).Str("sender", string(sender)).Int("delivered", res.Delivered).Msg("event ingested")
	return nil
}

// RoomState is the snapshot read used by late joiners; it creates the
// room on first reference like any other operation naming it.
func (s *Ingest) RoomState(roomID domain.RoomID) core.Snapshot {
	if roomID == "" {
		roomID = domain.DefaultRoom
	}
	return s.Rooms.GetOrCreate(roomID).Snapshot()
}

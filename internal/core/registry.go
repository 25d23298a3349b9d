package core

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/avlasov/WatchSync/internal/domain"
)

type registryImpl struct {
	opts  Options
	mu    sync.RWMutex
	rooms map[domain.RoomID]RoomService
}

// NewRegistry builds the process-wide room registry. Rooms are created
// lazily on first reference and, unless Sweep is driven by a janitor,
// live for the process lifetime.
func NewRegistry(opts Options) RoomRegistry {
	return &registryImpl{
		opts:  opts,
		rooms: make(map[domain.RoomID]RoomService),
	}
}

func (f *registryImpl) GetOrCreate(id domain.RoomID) RoomService {
	f.mu.RLock()
	room, ok := f.rooms[id]
	f.mu.RUnlock()
	if ok {
		return room
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if room, ok = f.rooms[id]; ok {
		return room
	}
	room = NewRoom(id, f.opts)
	f.rooms[id] = room
	log.Info().Str("module", "core.registry").Str("room", string(id)).Msg("room created")
	return room
}

func (f *registryImpl) List() []RoomInfo {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]RoomInfo, 0, len(f.rooms))
	for id, r := range f.rooms {
		out = append(out, RoomInfo{ID: id, Subscribers: r.SubscriberCount(), Members: r.MemberCount()})
	}
	return out
}

func (f *registryImpl) Sweep(cutoff time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, r := range f.rooms {
		if r.SubscriberCount() == 0 && r.IdleSince().Before(cutoff) {
			delete(f.rooms, id)
			n++
			log.Info().Str("module", "core.registry").Str("room", string(id)).Msg("room evicted")
		}
	}
	return n
}

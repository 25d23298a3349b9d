package core

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/panics"

	"github.com/avlasov/WatchSync/internal/domain"
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	id   domain.RoomID
	opts Options

	mu           sync.RWMutex
	subs         map[SubscriberID]Subscriber
	hostID       domain.SenderID
	lastPlayback *domain.PlaybackState
	members      map[domain.SenderID]string
	joinOrder    []domain.SenderID
	touched      time.Time
}

func NewRoom(id domain.RoomID, opts Options) RoomService {
	return &roomImpl{
		id:      id,
		opts:    opts,
		subs:    make(map[SubscriberID]Subscriber),
		members: make(map[domain.SenderID]string),
		touched: time.Now(),
	}
}

func (r *roomImpl) ID() domain.RoomID { return r.id }

func (r *roomImpl) Subscribe(sub Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.ID()] = sub
	r.touched = time.Now()
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("sub", string(sub.ID())).Msg("subscriber attached")
}

func (r *roomImpl) Unsubscribe(id SubscriberID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, id)
	log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("sub", string(id)).Msg("subscriber detached")
}

func (r *roomImpl) SubscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *roomImpl) IdleSince() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.touched
}

func (r *roomImpl) Apply(ev *domain.Event) FanoutResult {
	data, err := ev.Serialise()
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Str("room", string(r.id)).Msg("serialise event")
		return FanoutResult{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.touched = ev.ReceivedAt

	switch ev.Type {
	case domain.EventPresence:
		if ev.Presence != nil {
			r.applyPresence(ev.Sender, ev.Presence)
		}
	case domain.EventPlayback:
		// Only the host moves the shared timeline; follower events
		// are relayed below but never stored.
		if ev.Playback != nil && ev.Sender == r.hostID {
			pb := *ev.Playback
			r.lastPlayback = &pb
		}
	}

	res := FanoutResult{}
	for _, sub := range r.subs {
		var sendErr error
		rec := panics.Try(func() { sendErr = sub.TrySend(data) })
		if rec != nil {
			log.Warn().Str("module", "core.room").Str("room", string(r.id)).Str("sub", string(sub.ID())).Str("panic", rec.String()).Msg("subscriber panicked on send")
			res.Dropped = append(res.Dropped, sub)
			continue
		}
		if sendErr != nil {
			res.Dropped = append(res.Dropped, sub)
			continue
		}
		res.Delivered++
	}
	log.Debug().Str("module", "core.room").Str("room", string(r.id)).Str("type", string(ev.Type)).Int("delivered", res.Delivered).Int("dropped", len(res.Dropped)).Msg("event applied")
	return res
}

func (r *roomImpl) applyPresence(sender domain.SenderID, p *domain.PresencePayload) {
	switch p.Action {
	case domain.PresenceJoin:
		if p.IsHost || r.hostID == "" {
			r.hostID = sender
		}
		if p.Name != "" {
			if _, known := r.members[sender]; !known {
				r.joinOrder = append(r.joinOrder, sender)
			}
			r.members[sender] = p.Name
		}
	case domain.PresenceLeave:
		if _, known := r.members[sender]; known {
			delete(r.members, sender)
			for i, sid := range r.joinOrder {
				if sid == sender {
					r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
					break
				}
			}
		}
		// A departed host keeps the seat unless failover is on.
		if r.opts.HostFailover && sender == r.hostID {
			r.hostID = ""
			if len(r.joinOrder) > 0 {
				r.hostID = r.joinOrder[0]
			}
			log.Info().Str("module", "core.room").Str("room", string(r.id)).Str("host", string(r.hostID)).Msg("host re-elected")
		}
	}
}

func (r *roomImpl) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := Snapshot{
		HostID:  string(r.hostID),
		Members: make([]string, 0, len(r.members)),
	}
	if r.lastPlayback != nil {
		pb := *r.lastPlayback
		snap.LastPlayback = &pb
	}
	for _, name := range r.members {
		snap.Members = append(snap.Members, name)
	}
	sort.Strings(snap.Members)
	return snap
}

package core

import (
	"time"

	"github.com/avlasov/WatchSync/internal/domain"
)

type SubscriberID string

// Subscriber is one client's live attachment to a room's event stream.
// Owned by the adapter; the adapter must Close() it.
type Subscriber interface {
	ID() SubscriberID
	// TrySend enqueues a serialized event without blocking. It returns
	// an error when the subscriber's buffer is full or already closed.
	TrySend(data []byte) error
	Close()
}

// FanoutResult reports delivery stats/backpressure to the ingest layer.
type FanoutResult struct {
	Delivered int
	Dropped   []Subscriber
}

// Snapshot is a point-in-time read used by late joiners to resync.
type Snapshot struct {
	HostID       string                `json:"hostId,omitempty"`
	LastPlayback *domain.PlaybackState `json:"lastPlayback"`
	Members      []string              `json:"members"`
}

// RoomService is the core-facing API of a room. It owns the subscriber
// set and the authoritative playback state but never touches transport
// resources.
type RoomService interface {
	ID() domain.RoomID
	Subscribe(sub Subscriber)
	Unsubscribe(id SubscriberID)
	SubscriberCount() int
	MemberCount() int

	// Apply mutates room state per the event's classification and fans
	// the serialized event out to every subscriber. Mutation and
	// enqueue happen in one critical section, so the order Apply calls
	// are processed is the order every subscriber sees.
	Apply(ev *domain.Event) FanoutResult

	Snapshot() Snapshot
	IdleSince() time.Time
}

type RoomInfo struct {
	ID          domain.RoomID `json:"id"`
	Subscribers int           `json:"subscribers"`
	Members     int           `json:"members"`
}

// Options tune per-room behavior; the zero value reproduces the
// documented behavior (no host failover).
type Options struct {
	// HostFailover re-elects the longest-standing remaining member
	// when the host leaves. Off by default: a departed host otherwise
	// keeps the seat until someone claims it explicitly.
	HostFailover bool
}

type RoomRegistry interface {
	GetOrCreate(id domain.RoomID) RoomService
	List() []RoomInfo
	// Sweep evicts rooms with no subscribers that have been idle since
	// before the cutoff, returning how many were removed.
	Sweep(cutoff time.Time) int
}

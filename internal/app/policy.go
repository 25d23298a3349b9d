package app

import "github.com/avlasov/WatchSync/internal/core"

type BackpressureAction int

const (
	// DropEvent loses the event for that subscriber only; the stream
	// is live-sync, a missed event is superseded by the next one.
	DropEvent BackpressureAction = iota
	// CloseSubscriber detaches a consumer that cannot keep up.
	CloseSubscriber
)

type Policy interface {
	OnBackpressure(room core.RoomService, sub core.Subscriber) BackpressureAction
}

type DropPolicy struct{}

func (DropPolicy) OnBackpressure(core.RoomService, core.Subscriber) BackpressureAction {
	return DropEvent
}

type KickPolicy struct{}

func (KickPolicy) OnBackpressure(core.RoomService, core.Subscriber) BackpressureAction {
	return CloseSubscriber
}

// PolicyFromName maps the config value to a policy, defaulting to drop.
func PolicyFromName(name string) Policy {
	if name == "kick" {
		return KickPolicy{}
	}
	return DropPolicy{}
}

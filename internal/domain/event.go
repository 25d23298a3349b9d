package domain

import (
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

type EventType string

const (
	EventPresence EventType = "presence"
	EventPlayback EventType = "playback"
)

type PresenceAction string

const (
	PresenceJoin  PresenceAction = "join"
	PresenceLeave PresenceAction = "leave"
)

var ErrBadPayload = errors.New("bad event payload")

type PresencePayload struct {
	Action PresenceAction `json:"action"`
	IsHost bool           `json:"isHost"`
	Name   string         `json:"name"`
}

// Event is a transient control-plane message. It lives only long enough
// to mutate room state and be fanned out; nothing persists it.
// Raw keeps the payload exactly as submitted so forwarding never
// rewrites what the client sent.
type Event struct {
	Type       EventType
	Sender     SenderID
	ReceivedAt time.Time
	Raw        json.RawMessage

	// Exactly one of these is set for the known types; both are nil
	// for opaque events.
	Presence *PresencePayload
	Playback *PlaybackState
}

// DecodeEvent classifies a submitted event. Unknown types are not an
// error: they decode to an opaque event that is forwarded untouched.
// A presence or playback payload that cannot be parsed at all is
// rejected; field-level oddities in playback are coerced instead
// (see coercePlayback).
func DecodeEvent(typ string, payload json.RawMessage, sender SenderID, at time.Time) (*Event, error) {
	ev := &Event{
		Type:       EventType(typ),
		Sender:     sender,
		ReceivedAt: at,
		Raw:        payload,
	}

	switch ev.Type {
	case EventPresence:
		var p PresencePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, errors.Join(ErrBadPayload, err)
		}
		ev.Presence = &p
	case EventPlayback:
		var raw struct {
			State string `json:"state"`
			Time  any    `json:"time"`
		}
		if err := json.Unmarshal(payload, &raw); err != nil {
			return nil, errors.Join(ErrBadPayload, err)
		}
		ev.Playback = coercePlayback(raw.State, raw.Time)
	}
	return ev, nil
}

// coercePlayback favors liveness over strictness: a wrong state label
// only affects a cosmetic transition, so it falls back to "seek", and
// a missing or non-numeric time falls back to 0.
func coercePlayback(state string, t any) *PlaybackState {
	pb := &PlaybackState{State: PlaybackSeek}
	switch PlaybackStatus(state) {
	case PlaybackPlay, PlaybackPause, PlaybackSeek:
		pb.State = PlaybackStatus(state)
	}
	switch v := t.(type) {
	case float64:
		pb.Time = v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			pb.Time = f
		}
	}
	if pb.Time < 0 {
		pb.Time = 0
	}
	return pb
}

// Serialise renders the wire form handed to subscribers: the original
// payload untouched, plus sender and the server receive timestamp.
func (e *Event) Serialise() ([]byte, error) {
	return json.Marshal(struct {
		Type      EventType       `json:"type"`
		Payload   json.RawMessage `json:"payload"`
		Sender    SenderID        `json:"sender"`
		Timestamp int64           `json:"timestamp"`
	}{e.Type, e.Raw, e.Sender, e.ReceivedAt.UnixMilli()})
}

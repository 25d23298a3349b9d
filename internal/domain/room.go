// Package domain contains entity without logic, just meta-data
package domain

type (
	RoomID   string
	SenderID string
)

// DefaultRoom is used when a request does not name a room.
const DefaultRoom RoomID = "default"

type PlaybackStatus string

const (
	PlaybackPlay  PlaybackStatus = "play"
	PlaybackPause PlaybackStatus = "pause"
	PlaybackSeek  PlaybackStatus = "seek"
)

// PlaybackState is the authoritative playback snapshot of a room.
// Time is seconds from the start of the media, never negative.
type PlaybackState struct {
	State PlaybackStatus `json:"state"`
	Time  float64        `json:"time"`
}

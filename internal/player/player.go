// Package player is the boundary to the watched media player: playback
// state notifications, pause/resume automation and the synchronous
// sample-rate probe. All implementations shell out to osascript; the
// controller only sees the interfaces defined here.
package player

import (
	"context"
)

// State is the player's reported playback state.
type State string

const (
	StatePlaying State = "Playing"
	StatePaused  State = "Paused"
	StateStopped State = "Stopped"
	StateUnknown State = "Unknown"
)

// Notification is one playback state report. Delivery is at-least-once and
// possibly duplicated; consumers must de-duplicate.
type Notification struct {
	State  State
	Name   string
	Artist string
	Album  string
	// TrackID is the player's stable identifier for the track, used as a
	// catalog lookup key. Empty when the player exposes none; lookups then
	// degrade to free-text search.
	TrackID string
	// Stream is true when the current track is a network stream.
	Stream bool
}

// HasTrack reports whether the notification carries identifying metadata.
func (n *Notification) HasTrack() bool {
	return n.Name != "" || n.Artist != "" || n.Album != ""
}

// Notifier delivers playback notifications in arrival order.
type Notifier interface {
	// Notifications returns the channel notifications are delivered on.
	// The channel is closed when the notifier stops.
	Notifications() <-chan Notification
	// Start begins delivery until ctx is cancelled.
	Start(ctx context.Context) error
}

// Transport issues playback commands to the player. Commands are
// fire-and-forget; errors are reported but carry no result payload.
type Transport interface {
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}

// Querier is the synchronous direct-query probe for the current track.
type Querier interface {
	// TrackRate returns the player-reported sample rate of the current
	// track and whether the track is a network stream. A zero rate means
	// the player did not report one.
	TrackRate(ctx context.Context) (rate int, stream bool, err error)
}

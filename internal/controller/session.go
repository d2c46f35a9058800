package controller

import (
	"time"

	"github.com/google/uuid"

	"github.com/pkarvinen/dacsync/internal/player"
)

// TrackIdentity identifies "what is playing now". It is immutable once
// derived and compared by value; a notification with a differing identity
// invalidates all in-flight arbitration state for the previous track.
type TrackIdentity struct {
	Name   string
	Artist string
	Album  string
}

// identityFromNotification derives the track identity from a notification.
func identityFromNotification(n *player.Notification) TrackIdentity {
	return TrackIdentity{Name: n.Name, Artist: n.Artist, Album: n.Album}
}

// Key returns the identity's rate cache key.
func (t TrackIdentity) Key() string {
	return t.Name + "\x00" + t.Artist + "\x00" + t.Album
}

// String renders the identity for logs.
func (t TrackIdentity) String() string {
	if t.Artist == "" {
		return t.Name
	}
	return t.Name + " by " + t.Artist
}

// session is the arbitration context for one playing track. There is at
// most one active session per process; only the controller loop touches it.
type session struct {
	id        uuid.UUID
	identity  TrackIdentity
	trackID   string // player's catalog identifier, may be empty
	state     player.State
	startedAt time.Time
	// pausedForSwitch is set when the supervisor paused playback for a
	// hardware switch; it gates the resume safety net and the resume echo
	// window.
	pausedForSwitch bool
}

// notifKey is the de-duplication key for notifications: identity, state and
// identifying metadata.
type notifKey struct {
	identity TrackIdentity
	state    player.State
	trackID  string
}

package player

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// notificationBuffer bounds the queue between the poller and the consumer.
// The consumer loop drains quickly; a full buffer means it is wedged and
// dropping the newest poll result is preferable to blocking the poller.
const notificationBuffer = 64

// Poller derives playback notifications by polling the player over
// AppleScript. A notification is delivered whenever the polled snapshot
// differs from the previous one; delivery is at-least-once and duplicates
// are possible, so consumers must still de-duplicate.
type Poller struct {
	app      string
	interval time.Duration
	run      scriptRunner
	out      chan Notification
	last     *Notification
	logger   *slog.Logger
}

// NewPoller returns a Poller for the named player application.
func NewPoller(app string, interval time.Duration) *Poller {
	return &Poller{
		app:      app,
		interval: interval,
		run:      runOsascript,
		out:      make(chan Notification, notificationBuffer),
		logger:   slog.Default().With("service", "player"),
	}
}

// Notifications returns the delivery channel. It is closed when Start
// returns.
func (p *Poller) Notifications() <-chan Notification {
	return p.out
}

// Start polls until ctx is cancelled. It always returns ctx.Err().
func (p *Poller) Start(ctx context.Context) error {
	defer close(p.out)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := p.poll(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.logger.Debug("playback state poll failed", "error", err)
				continue
			}
			if p.last != nil && n == *p.last {
				continue
			}
			p.last = &n
			select {
			case p.out <- n:
			default:
				p.logger.Warn("notification buffer full, dropping poll result",
					"state", n.State, "track", n.Name)
			}
		}
	}
}

// poll fetches one playback state snapshot.
func (p *Poller) poll(ctx context.Context) (Notification, error) {
	script := fmt.Sprintf(`tell application %q
	if it is running then
		set out to "state=" & (player state as text)
		try
			set t to current track
			set out to out & linefeed & "name=" & (name of t)
			set out to out & linefeed & "artist=" & (artist of t)
			set out to out & linefeed & "album=" & (album of t)
			set out to out & linefeed & "trackid=" & (persistent ID of t)
			set out to out & linefeed & "kind=" & ((class of t) as text)
		end try
		return out
	else
		return "state=stopped"
	end if
end tell`, p.app)

	out, err := p.run(ctx, script)
	if err != nil {
		return Notification{}, err
	}
	return parseNotification(out), nil
}

// parseNotification maps the key=value poll output onto a Notification.
func parseNotification(out string) Notification {
	fields := parseFields(out)

	n := Notification{
		State:   parseState(fields["state"]),
		Name:    fields["name"],
		Artist:  fields["artist"],
		Album:   fields["album"],
		TrackID: fields["trackid"],
	}
	if kind, ok := fields["kind"]; ok {
		n.Stream = strings.Contains(strings.ToLower(kind), "url")
	}
	return n
}

func parseState(s string) State {
	switch s {
	case "playing":
		return StatePlaying
	case "paused":
		return StatePaused
	case "stopped":
		return StateStopped
	default:
		return StateUnknown
	}
}

package player

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/pkarvinen/dacsync/internal/errors"
)

const (
	osascriptBinary = "/usr/bin/osascript"
	commandTimeout  = 5 * time.Second
)

// scriptRunner executes an AppleScript and returns its textual output.
// Swappable in tests.
type scriptRunner func(ctx context.Context, script string) (string, error)

func runOsascript(ctx context.Context, script string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, osascriptBinary, "-e", script).Output()
	if err != nil {
		return "", fmt.Errorf("osascript: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// AppleScript is the osascript-backed Transport and Querier for a player
// application addressed by name.
type AppleScript struct {
	app    string
	run    scriptRunner
	logger *slog.Logger
}

// NewAppleScript returns an AppleScript boundary for the named player
// application, e.g. "Music".
func NewAppleScript(app string) *AppleScript {
	return &AppleScript{
		app:    app,
		run:    runOsascript,
		logger: slog.Default().With("service", "player"),
	}
}

// Pause tells the player to pause.
func (a *AppleScript) Pause(ctx context.Context) error {
	return a.command(ctx, "pause")
}

// Resume tells the player to play.
func (a *AppleScript) Resume(ctx context.Context) error {
	return a.command(ctx, "play")
}

func (a *AppleScript) command(ctx context.Context, verb string) error {
	script := fmt.Sprintf("tell application %q to %s", a.app, verb)
	if _, err := a.run(ctx, script); err != nil {
		return errors.Newf("player %s command failed: %w", verb, err).
			Category(errors.CategoryAutomation).
			Component("player").
			Context("app", a.app).
			Build()
	}
	return nil
}

// TrackRate asks the player for the sample rate of the current track and
// whether it is a network (URL) track. A zero rate with nil error means the
// player did not report a rate.
func (a *AppleScript) TrackRate(ctx context.Context) (int, bool, error) {
	script := fmt.Sprintf(`tell application %q
	try
		set t to current track
		set k to ((class of t) as text)
		set r to (sample rate of t)
		if r is missing value then
			return "rate=0" & linefeed & "kind=" & k
		end if
		return "rate=" & r & linefeed & "kind=" & k
	on error errMsg
		return "error=" & errMsg
	end try
end tell`, a.app)

	out, err := a.run(ctx, script)
	if err != nil {
		return 0, false, errors.Newf("track rate query failed: %w", err).
			Category(errors.CategoryAutomation).
			Component("player").
			Context("app", a.app).
			Build()
	}
	return parseTrackRateOutput(out)
}

// parseTrackRateOutput parses the key=value lines emitted by the TrackRate
// script.
func parseTrackRateOutput(out string) (int, bool, error) {
	fields := parseFields(out)
	if msg, ok := fields["error"]; ok {
		// Player-side error, e.g. no current track. Not an error to the
		// caller, just no reading.
		return 0, false, errors.Newf("player reported: %s", msg).
			Category(errors.CategoryAutomation).
			Component("player").
			Build()
	}

	rate, err := strconv.Atoi(fields["rate"])
	if err != nil {
		return 0, false, errors.Newf("unparseable rate %q", fields["rate"]).
			Category(errors.CategoryAutomation).
			Component("player").
			Build()
	}
	stream := strings.Contains(strings.ToLower(fields["kind"]), "url")
	return rate, stream, nil
}

// parseFields splits key=value lines into a map. Unrecognized lines are
// ignored.
func parseFields(out string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(out, "\n") {
		key, value, found := strings.Cut(strings.TrimRight(line, "\r"), "=")
		if !found {
			continue
		}
		fields[key] = value
	}
	return fields
}

// IsRunning reports whether a process with the player's application name is
// currently running.
func IsRunning(app string) bool {
	procs, err := process.Processes()
	if err != nil {
		return false
	}
	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue
		}
		if name == app {
			return true
		}
	}
	return false
}

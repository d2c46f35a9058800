package controller

import (
	"context"
	"time"
)

// fusionState is the per-session arbitration state shared by the fusion
// engine and the actuator. It is reset whenever a session boundary is
// crossed.
type fusionState struct {
	// bestRate is the maximum rate seen from the log stream this session.
	// Streaming pipelines report intermediate conversion rates; the track's
	// true rate is the highest one observed.
	bestRate int
	// handledRate is the last rate a switch attempt ran to completion for,
	// successful or not. Identical follow-up candidates are suppressed.
	handledRate int
	// lastLoggedRate keeps the settled-rate log line to once per value.
	lastLoggedRate int
	// winner is the source that first settled a rate, kept for diagnostics.
	winner Source
}

func (f *fusionState) reset() {
	*f = fusionState{}
}

// handleStreamRate folds a log stream reading into the running maximum and
// restarts the debounce window. Stream readings arrive in bursts; only a
// quiet window means the pipeline has settled.
func (c *Controller) handleStreamRate(ctx context.Context, rate int) {
	if rate <= 0 {
		return
	}
	if rate > c.fusion.bestRate {
		c.fusion.bestRate = rate
	}
	c.scheduleDebounce()
}

func (c *Controller) scheduleDebounce() {
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
	}
	c.debounceGen++
	gen := c.debounceGen
	sid := c.sessionID()
	c.debounceTimer = time.AfterFunc(c.settings.Switch.Debounce, func() {
		c.post(debounceMsg{sessionID: sid, gen: gen})
	})
}

func (c *Controller) cancelDebounce() {
	if c.debounceTimer != nil {
		c.debounceTimer.Stop()
		c.debounceTimer = nil
	}
	c.debounceGen++
}

// fireFusion runs when the debounce window expired without a newer reading.
// The running maximum is the settled verdict of the log stream source.
func (c *Controller) fireFusion(ctx context.Context) {
	best := c.fusion.bestRate
	if best <= 0 {
		return
	}
	if best == c.fusion.handledRate {
		return
	}
	if best != c.fusion.lastLoggedRate {
		c.logger.Info("log stream rate settled", "rate", best)
		c.fusion.lastLoggedRate = best
	}
	if c.fusion.winner == "" {
		c.fusion.winner = SourceLogStream
		c.logger.Debug("detection won", "source", SourceLogStream, "rate", best)
	}
	c.attemptSwitch(ctx, best, c.sessionStart(), SourceLogStream)
}

// handleAsyncCandidate applies a direct query or catalog result. These
// sources produce a single settled value each, so they skip the debounce
// window and go straight to the actuator.
func (c *Controller) handleAsyncCandidate(ctx context.Context, cand Candidate) {
	if cand.Rate <= 0 {
		return
	}
	if c.fusion.winner == "" {
		c.fusion.winner = cand.Source
		c.logger.Debug("detection won", "source", cand.Source, "rate", cand.Rate)
	}
	c.attemptSwitch(ctx, cand.Rate, c.sessionStart(), cand.Source)
}

func (c *Controller) sessionStart() time.Time {
	if c.session == nil {
		return time.Time{}
	}
	return c.session.startedAt
}

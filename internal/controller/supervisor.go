package controller

import (
	"context"
	"time"
)

// superviseNewSession runs at session start when pause coordination is on.
// It pauses playback before any hardware write can glitch audio, and on a
// rate cache hit performs the switch immediately instead of waiting for
// detection. Returns true when the cached rate fully handled the session
// and the one-shot detection sources can be skipped.
func (c *Controller) superviseNewSession(ctx context.Context, s *session) bool {
	cached, hit := c.cache.get(s.identity)
	if hit {
		live, err := c.registry.NominalRate(c.device.ID)
		if err == nil && cached == live {
			c.logger.Info("device already at cached rate, no pause needed",
				"rate", cached, "track", s.identity.String())
			c.fusion.handledRate = cached
			return true
		}
		c.pauseForSwitch(ctx, s, "cached rate switch")
		c.attemptSwitch(ctx, cached, s.startedAt, SourceCache)
		return true
	}

	c.pauseForSwitch(ctx, s, "sample rate detection")
	return false
}

func (c *Controller) pauseForSwitch(ctx context.Context, s *session, reason string) {
	if err := c.transport.Pause(ctx); err != nil {
		c.logger.Warn("pause command failed", "error", err)
		return
	}
	s.pausedForSwitch = true
	c.logger.Info("paused playback", "reason", reason)
}

// resumeIfPaused schedules playback resumption after a switch attempt
// concluded. The settle delay gives the device time to apply the new rate
// before audio flows again. The echo window opens immediately so that a
// fast notification from our own resume is still recognized as one.
func (c *Controller) resumeIfPaused(ctx context.Context) {
	s := c.session
	if s == nil || !s.pausedForSwitch {
		return
	}
	s.pausedForSwitch = false
	c.lastResumeTime = c.now()

	c.cancelResume()
	c.resumeGen++
	gen := c.resumeGen
	sid := s.id
	c.resumeTimer = time.AfterFunc(c.settings.Switch.SettleDelay, func() {
		c.post(resumeMsg{sessionID: sid, gen: gen})
	})
}

func (c *Controller) cancelResume() {
	if c.resumeTimer != nil {
		c.resumeTimer.Stop()
		c.resumeTimer = nil
	}
	c.resumeGen++
}

// finishResume issues the actual resume command once the settle delay has
// passed and the session is still the one that was paused.
func (c *Controller) finishResume(ctx context.Context) {
	c.resumeTimer = nil
	c.lastResumeTime = c.now()
	if err := c.transport.Resume(ctx); err != nil {
		c.logger.Warn("resume command failed", "error", err)
		return
	}
	c.logger.Info("resumed playback after sample rate switch")
}

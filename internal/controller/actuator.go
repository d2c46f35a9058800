package controller

import (
	"context"
	"time"

	"github.com/pkarvinen/dacsync/internal/device"
)

// Outcome classifies one switch attempt.
type Outcome int

const (
	OutcomeApplied Outcome = iota
	OutcomeAlreadyAtRate
	OutcomeUnsupported
	OutcomeDeviceReadError
	OutcomeWriteFailed
	OutcomeSuppressed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeAlreadyAtRate:
		return "already_at_rate"
	case OutcomeUnsupported:
		return "unsupported"
	case OutcomeDeviceReadError:
		return "device_read_error"
	case OutcomeWriteFailed:
		return "write_failed"
	case OutcomeSuppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// attemptSwitch is the only place a device write can happen. Every exit
// path that ends the attempt resumes playback if the supervisor paused it,
// exactly once. The live device rate is re-read on every attempt; the
// hardware is shared and may have been changed behind our back.
func (c *Controller) attemptSwitch(ctx context.Context, rate int, startedAt time.Time, src Source) Outcome {
	live, err := c.registry.NominalRate(c.device.ID)
	if err != nil {
		c.logger.Error("failed to read device sample rate",
			"device", c.device.Name, "error", err)
		c.resumeIfPaused(ctx)
		return OutcomeDeviceReadError
	}

	if rate == live {
		if c.fusion.handledRate != rate {
			c.logger.Info("device already at detected rate",
				"rate", rate, "source", src)
			c.fusion.handledRate = rate
			c.cacheRate(rate)
			c.resumeIfPaused(ctx)
		}
		return OutcomeAlreadyAtRate
	}

	ranges, err := c.registry.SupportedRates(c.device.ID)
	if err != nil || !device.RangesContain(ranges, rate) {
		if c.fusion.handledRate != rate {
			c.logger.Warn("device does not support detected rate, keeping current",
				"rate", rate, "current", live, "device", c.device.Name, "source", src)
			c.fusion.handledRate = rate
			c.resumeIfPaused(ctx)
		}
		return OutcomeUnsupported
	}

	if c.fusion.handledRate == rate {
		return OutcomeSuppressed
	}
	// Mark handled before the write so a second source proposing the same
	// rate mid-write cannot fire a duplicate attempt.
	c.fusion.handledRate = rate

	c.logger.Info("switching device sample rate",
		"device", c.device.Name, "from", live, "to", rate, "source", src)

	writeStart := c.now()
	if err := c.registry.SetNominalRate(c.device.ID, rate); err != nil {
		c.logger.Error("failed to set device sample rate",
			"device", c.device.Name, "rate", rate, "error", err)
		c.resumeIfPaused(ctx)
		return OutcomeWriteFailed
	}
	elapsed := c.now().Sub(writeStart)

	if startedAt.IsZero() {
		c.logger.Info("device sample rate set",
			"rate", rate, "switch_ms", elapsed.Milliseconds(), "source", src)
	} else {
		c.logger.Info("device sample rate set",
			"rate", rate, "switch_ms", elapsed.Milliseconds(),
			"detected_after_ms", c.now().Sub(startedAt).Milliseconds(), "source", src)
	}

	c.cacheRate(rate)
	c.resumeIfPaused(ctx)
	return OutcomeApplied
}

// cacheRate records a confirmed device rate for the current track. Only
// confirmed states land here; failed and unsupported attempts do not.
func (c *Controller) cacheRate(rate int) {
	if c.session == nil {
		return
	}
	c.cache.set(c.session.identity, rate)
}

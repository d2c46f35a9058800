// Package controller arbitrates sample rate candidates from multiple
// detection sources and drives the output device's nominal rate to match
// the playing track. All arbitration state is owned by a single goroutine;
// detectors, timers and the playback watcher communicate with it through
// channels only.
package controller

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pkarvinen/dacsync/internal/catalog"
	"github.com/pkarvinen/dacsync/internal/conf"
	"github.com/pkarvinen/dacsync/internal/device"
	"github.com/pkarvinen/dacsync/internal/player"
	"github.com/pkarvinen/dacsync/internal/samplerate"
)

// Config wires the controller to its collaborators. Notifications is
// required; StreamRates and Resolver are optional and may be nil when the
// corresponding source is disabled.
type Config struct {
	Settings      *conf.Settings
	Registry      device.Registry
	Device        device.Device
	Transport     player.Transport
	Querier       player.Querier
	Resolver      catalog.Resolver
	Notifications <-chan player.Notification
	StreamRates   <-chan int
	Logger        *slog.Logger
}

// Controller is the playback tracker, fusion engine and switch actuator.
// Create one with New and drive it with Run; none of its methods are safe
// to call from outside the Run goroutine.
type Controller struct {
	settings  *conf.Settings
	registry  device.Registry
	device    device.Device
	transport player.Transport
	querier   player.Querier
	resolver  catalog.Resolver

	notifications <-chan player.Notification
	streamRates   <-chan int
	msgs          chan message
	done          chan struct{}

	session   *session
	lastNotif notifKey
	fusion    fusionState

	debounceTimer *time.Timer
	debounceGen   uint64
	resumeTimer   *time.Timer
	resumeGen     uint64

	// lastResumeTime anchors the resume echo window: Playing notifications
	// arriving inside ResumeGrace after it are echoes of our own resume.
	lastResumeTime time.Time

	cache  *rateCache
	now    func() time.Time
	logger *slog.Logger
}

// New builds a controller. The device in cfg is the switch target for the
// whole process lifetime.
func New(cfg Config) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		settings:      cfg.Settings,
		registry:      cfg.Registry,
		device:        cfg.Device,
		transport:     cfg.Transport,
		querier:       cfg.Querier,
		resolver:      cfg.Resolver,
		notifications: cfg.Notifications,
		streamRates:   cfg.StreamRates,
		msgs:          make(chan message, 64),
		done:          make(chan struct{}),
		cache:         newRateCache(),
		now:           time.Now,
		logger:        logger.With("service", "controller"),
	}
}

// Run processes notifications, stream rates and internal messages until the
// context is cancelled. It always returns the context's error.
func (c *Controller) Run(ctx context.Context) error {
	defer c.shutdown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case n, ok := <-c.notifications:
			if !ok {
				c.notifications = nil
				continue
			}
			c.handleNotification(ctx, &n)
		case rate, ok := <-c.streamRates:
			if !ok {
				c.streamRates = nil
				continue
			}
			c.handleStreamRate(ctx, rate)
		case m := <-c.msgs:
			c.handleMessage(ctx, m)
		}
	}
}

func (c *Controller) shutdown() {
	c.cancelDebounce()
	c.cancelResume()
	close(c.done)
}

func (c *Controller) handleMessage(ctx context.Context, m message) {
	switch msg := m.(type) {
	case candidateMsg:
		if c.session == nil || c.session.id != msg.sessionID {
			c.logger.Debug("discarding candidate from ended session",
				"rate", msg.cand.Rate, "source", msg.cand.Source)
			return
		}
		c.handleAsyncCandidate(ctx, msg.cand)
	case debounceMsg:
		if msg.gen != c.debounceGen || msg.sessionID != c.sessionID() {
			return
		}
		c.fireFusion(ctx)
	case resumeMsg:
		if msg.gen != c.resumeGen || msg.sessionID != c.sessionID() {
			return
		}
		c.finishResume(ctx)
	}
}

func (c *Controller) sessionID() uuid.UUID {
	if c.session == nil {
		return uuid.Nil
	}
	return c.session.id
}

// handleNotification is the playback tracker. Notifications are delivered
// at least once and may repeat; duplicates and resume echoes are dropped
// before any session work happens.
func (c *Controller) handleNotification(ctx context.Context, n *player.Notification) {
	identity := identityFromNotification(n)

	// A Playing notification right after our own resume command is an echo
	// of that resume, not a user action. Ignore it entirely so a genuine
	// transition later is still seen as one.
	if n.State == player.StatePlaying &&
		c.now().Sub(c.lastResumeTime) < c.settings.Switch.ResumeGrace {
		c.logger.Debug("ignoring playback notification within resume grace window",
			"track", identity.String())
		return
	}

	key := notifKey{identity: identity, state: n.State, trackID: n.TrackID}
	if key == c.lastNotif {
		return
	}
	c.lastNotif = key

	c.logger.Info("player state changed",
		"state", n.State, "track", identity.String())

	switch n.State {
	case player.StatePlaying:
		c.handlePlaying(ctx, n, identity)
	case player.StateStopped:
		c.endSession()
	default:
		// Paused, or a state we do not recognize. Treat both as paused.
		c.handlePaused(n, identity)
	}
}

func (c *Controller) handlePlaying(ctx context.Context, n *player.Notification, identity TrackIdentity) {
	isNewTrack := c.session == nil || c.session.identity != identity
	isPlayStart := c.session == nil || c.session.state != player.StatePlaying

	if !isNewTrack && !isPlayStart {
		// Same track still playing, richer metadata only. Keep the session.
		c.session.trackID = n.TrackID
		return
	}
	c.startSession(ctx, n, identity)
}

// startSession throws away all arbitration state of the previous session
// and begins detection for the new one.
func (c *Controller) startSession(ctx context.Context, n *player.Notification, identity TrackIdentity) {
	c.cancelDebounce()
	c.cancelResume()
	c.fusion.reset()

	s := &session{
		id:        uuid.New(),
		identity:  identity,
		trackID:   n.TrackID,
		state:     player.StatePlaying,
		startedAt: c.now(),
	}
	c.session = s

	c.logger.Debug("started track session",
		"session", s.id, "track", identity.String(), "stream", n.Stream)

	detectionHandled := false
	if c.settings.Switch.PauseDuringSwitch {
		detectionHandled = c.superviseNewSession(ctx, s)
	}
	if !detectionHandled {
		c.launchDetection(ctx, s, n)
	}
}

// endSession tears down the active session. Nothing is resumed; the player
// stopped on its own.
func (c *Controller) endSession() {
	c.cancelDebounce()
	c.cancelResume()
	c.fusion.reset()
	c.session = nil
}

func (c *Controller) handlePaused(n *player.Notification, identity TrackIdentity) {
	if c.session == nil {
		return
	}
	if !c.session.pausedForSwitch {
		// External pause. The track may be seeked or resumed much later, so
		// timing-derived state is stale, but the identity still stands and
		// so does the de-duplication key.
		c.cancelDebounce()
		c.fusion.reset()
		c.session.startedAt = time.Time{}
	}
	c.session.identity = identity
	c.session.state = n.State
}

// launchDetection starts the one-shot detection sources for a session. The
// log stream source is continuous and needs no per-session start. Results
// come back through the message channel tagged with the session id.
func (c *Controller) launchDetection(ctx context.Context, s *session, n *player.Notification) {
	if c.querier != nil {
		go c.queryDirect(ctx, s.id, n.Stream)
	}
	if c.resolver != nil && c.settings.Catalog.Enabled {
		go c.queryCatalog(ctx, s.id, s.trackID, s.identity)
	}
}

// queryDirect asks the player itself for the track's sample rate.
func (c *Controller) queryDirect(ctx context.Context, sid uuid.UUID, stream bool) {
	rate, streaming, err := c.querier.TrackRate(ctx)
	if err != nil {
		c.logger.Debug("direct sample rate query failed", "error", err)
		return
	}
	if rate <= 0 {
		return
	}
	rate = samplerate.Normalize(rate)
	// Streaming tracks report 44100 as a placeholder before the real rate
	// is known, so that value cannot be trusted from this source.
	if rate == 44100 && (streaming || stream) {
		c.logger.Debug("discarding placeholder rate from direct query", "rate", rate)
		return
	}
	c.deliver(ctx, candidateMsg{sessionID: sid, cand: Candidate{
		Rate:   rate,
		Source: SourceDirectQuery,
		At:     time.Now(),
	}})
}

// queryCatalog resolves the track's rate from catalog metadata.
func (c *Controller) queryCatalog(ctx context.Context, sid uuid.UUID, trackID string, identity TrackIdentity) {
	rate, ok := c.resolver.TrackRate(ctx, catalog.Request{
		TrackID: trackID,
		Name:    identity.Name,
		Artist:  identity.Artist,
	})
	if !ok {
		return
	}
	c.deliver(ctx, candidateMsg{sessionID: sid, cand: Candidate{
		Rate:   samplerate.Normalize(rate),
		Source: SourceCatalog,
		At:     time.Now(),
	}})
}

// deliver posts a message into the loop without leaking the sender when the
// controller has already shut down.
func (c *Controller) deliver(ctx context.Context, m message) {
	select {
	case c.msgs <- m:
	case <-c.done:
	case <-ctx.Done():
	}
}

// post is deliver for timer callbacks, which have no context.
func (c *Controller) post(m message) {
	select {
	case c.msgs <- m:
	case <-c.done:
	}
}

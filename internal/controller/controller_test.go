package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkarvinen/dacsync/internal/catalog"
	"github.com/pkarvinen/dacsync/internal/conf"
	"github.com/pkarvinen/dacsync/internal/device"
	"github.com/pkarvinen/dacsync/internal/player"
)

// fakeRegistry is an in-memory device.Registry with scriptable failures.
type fakeRegistry struct {
	mu       sync.Mutex
	rate     int
	ranges   []device.RateRange
	readErr  error
	writeErr error
	writes   []int
}

func newFakeRegistry(rate int, supported ...int) *fakeRegistry {
	f := &fakeRegistry{rate: rate}
	for _, r := range supported {
		f.ranges = append(f.ranges, device.RateRange{Min: r, Max: r})
	}
	return f
}

func (f *fakeRegistry) Outputs() ([]device.Device, error) { return nil, nil }

func (f *fakeRegistry) DefaultOutput() (device.Device, error) {
	return device.Device{}, device.ErrNoDefaultDevice
}

func (f *fakeRegistry) FindByUID(string) (device.Device, error) {
	return device.Device{}, device.ErrDeviceNotFound
}

func (f *fakeRegistry) NominalRate(device.ID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return 0, f.readErr
	}
	return f.rate, nil
}

func (f *fakeRegistry) SetNominalRate(_ device.ID, rate int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, rate)
	f.rate = rate
	return nil
}

func (f *fakeRegistry) SupportedRates(device.ID) ([]device.RateRange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ranges, nil
}

func (f *fakeRegistry) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

// fakeTransport records pause/resume commands.
type fakeTransport struct {
	mu      sync.Mutex
	pauses  int
	resumes int
}

func (f *fakeTransport) Pause(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return nil
}

func (f *fakeTransport) Resume(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumes++
	return nil
}

func (f *fakeTransport) counts() (pauses, resumes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pauses, f.resumes
}

// fakeQuerier is a canned direct-query probe.
type fakeQuerier struct {
	rate   int
	stream bool
	err    error
	calls  int
}

func (f *fakeQuerier) TrackRate(context.Context) (int, bool, error) {
	f.calls++
	return f.rate, f.stream, f.err
}

// fakeResolver is a canned catalog lookup.
type fakeResolver struct {
	rate  int
	ok    bool
	calls int
}

func (f *fakeResolver) TrackRate(context.Context, catalog.Request) (int, bool) {
	f.calls++
	return f.rate, f.ok
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// newTestController wires a controller around fakes. Handlers are invoked
// directly instead of through Run, which matches how the loop itself calls
// them.
func newTestController(t *testing.T, reg *fakeRegistry, tr *fakeTransport) (*Controller, *testClock) {
	t.Helper()

	settings := conf.DefaultSettings()
	settings.Catalog.Enabled = false

	c := New(Config{
		Settings:  settings,
		Registry:  reg,
		Device:    device.Device{ID: 51, Name: "Test DAC", UID: "test-dac"},
		Transport: tr,
	})
	clock := &testClock{now: time.Unix(1700000000, 0)}
	c.now = clock.Now
	t.Cleanup(c.shutdown)
	return c, clock
}

func playing(name, artist string) *player.Notification {
	return &player.Notification{
		State:  player.StatePlaying,
		Name:   name,
		Artist: artist,
		Album:  "Album",
	}
}

func TestDuplicateNotificationsDropped(t *testing.T) {
	reg := newFakeRegistry(44100, 44100, 96000)
	c, _ := newTestController(t, reg, &fakeTransport{})
	ctx := context.Background()

	c.handleNotification(ctx, playing("Track", "Artist"))
	require.NotNil(t, c.session)
	first := c.session.id

	c.handleNotification(ctx, playing("Track", "Artist"))
	assert.Equal(t, first, c.session.id, "duplicate must not restart the session")
}

func TestNewTrackStartsNewSession(t *testing.T) {
	reg := newFakeRegistry(44100, 44100, 96000)
	c, _ := newTestController(t, reg, &fakeTransport{})
	ctx := context.Background()

	c.handleNotification(ctx, playing("First", "Artist"))
	first := c.session.id
	c.fusion.bestRate = 96000

	c.handleNotification(ctx, playing("Second", "Artist"))
	assert.NotEqual(t, first, c.session.id)
	assert.Zero(t, c.fusion.bestRate, "fusion state must reset on a new track")
}

func TestResumeEchoSuppressed(t *testing.T) {
	reg := newFakeRegistry(44100, 44100, 96000)
	c, clock := newTestController(t, reg, &fakeTransport{})
	ctx := context.Background()

	c.handleNotification(ctx, playing("Track", "Artist"))
	c.session.state = player.StatePaused
	c.lastNotif.state = player.StatePaused
	c.lastResumeTime = clock.Now()
	first := c.session.id

	// Echo inside the grace window is ignored entirely.
	clock.Advance(500 * time.Millisecond)
	c.handleNotification(ctx, playing("Track", "Artist"))
	assert.Equal(t, first, c.session.id)
	assert.Equal(t, player.StatePaused, c.session.state)

	// The same notification past the window is a genuine play start.
	clock.Advance(2500 * time.Millisecond)
	c.handleNotification(ctx, playing("Track", "Artist"))
	assert.NotEqual(t, first, c.session.id)
	assert.Equal(t, player.StatePlaying, c.session.state)
}

func TestExternalPauseClearsFusionKeepsIdentity(t *testing.T) {
	reg := newFakeRegistry(44100, 44100, 96000)
	c, _ := newTestController(t, reg, &fakeTransport{})
	ctx := context.Background()

	c.handleNotification(ctx, playing("Track", "Artist"))
	identity := c.session.identity
	c.fusion.bestRate = 96000
	c.fusion.handledRate = 96000

	n := playing("Track", "Artist")
	n.State = player.StatePaused
	c.handleNotification(ctx, n)

	require.NotNil(t, c.session)
	assert.Equal(t, identity, c.session.identity)
	assert.Equal(t, player.StatePaused, c.session.state)
	assert.Zero(t, c.fusion.bestRate)
	assert.Zero(t, c.fusion.handledRate)
}

func TestStoppedEndsSession(t *testing.T) {
	reg := newFakeRegistry(44100, 44100, 96000)
	c, _ := newTestController(t, reg, &fakeTransport{})
	ctx := context.Background()

	c.handleNotification(ctx, playing("Track", "Artist"))
	require.NotNil(t, c.session)

	c.handleNotification(ctx, &player.Notification{State: player.StateStopped})
	assert.Nil(t, c.session)
}

func TestStaleCandidateDiscarded(t *testing.T) {
	reg := newFakeRegistry(44100, 44100, 96000)
	c, _ := newTestController(t, reg, &fakeTransport{})
	ctx := context.Background()

	c.handleNotification(ctx, playing("First", "Artist"))
	stale := c.session.id
	c.handleNotification(ctx, playing("Second", "Artist"))

	c.handleMessage(ctx, candidateMsg{sessionID: stale, cand: Candidate{
		Rate:   96000,
		Source: SourceDirectQuery,
	}})
	assert.Zero(t, reg.writeCount(), "stale candidate must not reach the device")
}

func TestCacheHitSwitchesWithoutDetection(t *testing.T) {
	reg := newFakeRegistry(44100, 44100, 96000)
	tr := &fakeTransport{}
	c, _ := newTestController(t, reg, tr)
	c.settings.Switch.PauseDuringSwitch = true
	q := &fakeQuerier{rate: 96000}
	c.querier = q
	ctx := context.Background()

	c.cache.set(TrackIdentity{Name: "Track", Artist: "Artist", Album: "Album"}, 96000)
	c.handleNotification(ctx, playing("Track", "Artist"))

	assert.Equal(t, []int{96000}, reg.writes)
	assert.Zero(t, q.calls, "cache hit must skip the detection sources")
	pauses, _ := tr.counts()
	assert.Equal(t, 1, pauses)
}

func TestCacheHitMatchingLiveRateSkipsPause(t *testing.T) {
	reg := newFakeRegistry(96000, 44100, 96000)
	tr := &fakeTransport{}
	c, _ := newTestController(t, reg, tr)
	c.settings.Switch.PauseDuringSwitch = true
	ctx := context.Background()

	c.cache.set(TrackIdentity{Name: "Track", Artist: "Artist", Album: "Album"}, 96000)
	c.handleNotification(ctx, playing("Track", "Artist"))

	pauses, _ := tr.counts()
	assert.Zero(t, pauses)
	assert.Zero(t, reg.writeCount())
	assert.Equal(t, 96000, c.fusion.handledRate)
}

func TestCacheMissPausesAndRunsDetection(t *testing.T) {
	reg := newFakeRegistry(44100, 44100, 96000)
	tr := &fakeTransport{}
	c, _ := newTestController(t, reg, tr)
	c.settings.Switch.PauseDuringSwitch = true
	q := &fakeQuerier{rate: 96000}
	c.querier = q
	ctx := context.Background()

	c.handleNotification(ctx, playing("Track", "Artist"))

	pauses, _ := tr.counts()
	assert.Equal(t, 1, pauses)

	// The direct query runs async and posts its candidate into the loop.
	assert.Eventually(t, func() bool {
		select {
		case m := <-c.msgs:
			c.handleMessage(ctx, m)
			return reg.writeCount() == 1
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int{96000}, reg.writes)
}

func TestDirectQueryDistrustsStreamingPlaceholder(t *testing.T) {
	reg := newFakeRegistry(48000, 44100, 48000, 96000)
	c, _ := newTestController(t, reg, &fakeTransport{})
	q := &fakeQuerier{rate: 44100, stream: true}
	c.querier = q
	ctx := context.Background()

	n := playing("Stream Track", "Artist")
	n.Stream = true
	c.handleNotification(ctx, n)

	// Give the query goroutine time to (not) post a candidate.
	time.Sleep(50 * time.Millisecond)
	select {
	case m := <-c.msgs:
		t.Fatalf("expected no candidate from placeholder rate, got %#v", m)
	default:
	}
	assert.Zero(t, reg.writeCount())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	reg := newFakeRegistry(44100, 44100, 96000)
	settings := conf.DefaultSettings()
	settings.Catalog.Enabled = false

	notifications := make(chan player.Notification)
	rates := make(chan int)
	c := New(Config{
		Settings:      settings,
		Registry:      reg,
		Device:        device.Device{ID: 51, Name: "Test DAC"},
		Transport:     &fakeTransport{},
		Notifications: notifications,
		StreamRates:   rates,
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	notifications <- player.Notification{State: player.StatePlaying, Name: "Track"}
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("controller did not stop on context cancel")
	}
}

package catalog

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkarvinen/dacsync/internal/conf"
	"github.com/pkarvinen/dacsync/internal/errors"
)

const (
	songLosslessBody = `{"data":[{"attributes":{"name":"So What","artistName":"Miles Davis","audioVariants":["lossy-stereo","lossless","hi-res-lossless"]}}]}`
	songLossyBody    = `{"data":[{"attributes":{"name":"So What","artistName":"Miles Davis","audioVariants":["lossy-stereo"]}}]}`
	searchHitBody    = `{"resultCount":1,"results":[{"trackId":1440833087,"trackName":"So What","artistName":"Miles Davis"}]}`
	searchMissBody   = `{"resultCount":0,"results":[]}`
)

func newTestService(t *testing.T, token string) *Service {
	t.Helper()
	settings := &conf.CatalogSettings{
		Enabled:    true,
		Token:      token,
		Storefront: "us",
		Timeout:    2 * time.Second,
	}
	return NewService(settings)
}

func activateMocks(t *testing.T, s *Service) {
	t.Helper()
	httpmock.ActivateNonDefault(s.primary.httpClient)
	httpmock.ActivateNonDefault(s.search.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)
}

func TestTrackRateByIdentifier(t *testing.T) {
	s := newTestService(t, "token")
	activateMocks(t, s)

	httpmock.RegisterResponder("GET", "https://api.music.apple.com/v1/catalog/us/songs/1440833087",
		httpmock.NewStringResponder(http.StatusOK, songLosslessBody))

	rate, ok := s.TrackRate(context.Background(), Request{TrackID: "1440833087"})
	require.True(t, ok)
	assert.Equal(t, 192000, rate)
	assert.Equal(t, AuthGranted, s.primary.Status())
}

func TestTrackRateCachesResults(t *testing.T) {
	s := newTestService(t, "token")
	activateMocks(t, s)

	httpmock.RegisterResponder("GET", "https://api.music.apple.com/v1/catalog/us/songs/1440833087",
		httpmock.NewStringResponder(http.StatusOK, songLosslessBody))

	req := Request{TrackID: "1440833087"}
	_, ok := s.TrackRate(context.Background(), req)
	require.True(t, ok)
	rate, ok := s.TrackRate(context.Background(), req)
	require.True(t, ok)
	assert.Equal(t, 192000, rate)

	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestTrackRateFallsBackToSearch(t *testing.T) {
	s := newTestService(t, "token")
	activateMocks(t, s)

	// Identifier lookup misses, search recovers a catalog ID.
	httpmock.RegisterResponder("GET", "https://api.music.apple.com/v1/catalog/us/songs/LOCAL-0001",
		httpmock.NewStringResponder(http.StatusNotFound, `{"errors":[{"status":"404"}]}`))
	httpmock.RegisterResponder("GET", `=~^https://itunes\.apple\.com/search`,
		httpmock.NewStringResponder(http.StatusOK, searchHitBody))
	httpmock.RegisterResponder("GET", "https://api.music.apple.com/v1/catalog/us/songs/1440833087",
		httpmock.NewStringResponder(http.StatusOK, songLosslessBody))

	rate, ok := s.TrackRate(context.Background(), Request{
		TrackID: "LOCAL-0001",
		Name:    "So What",
		Artist:  "Miles Davis",
	})
	require.True(t, ok)
	assert.Equal(t, 192000, rate)
}

func TestTrackRateAuthorizationDenied(t *testing.T) {
	s := newTestService(t, "bad-token")
	activateMocks(t, s)

	httpmock.RegisterResponder("GET", "https://api.music.apple.com/v1/catalog/us/songs/1440833087",
		httpmock.NewStringResponder(http.StatusUnauthorized, `{"errors":[{"status":"401"}]}`))
	httpmock.RegisterResponder("GET", `=~^https://itunes\.apple\.com/search`,
		httpmock.NewStringResponder(http.StatusOK, searchHitBody))

	// Denied authorization degrades to no reading, never an error.
	_, ok := s.TrackRate(context.Background(), Request{
		TrackID: "1440833087",
		Name:    "So What",
		Artist:  "Miles Davis",
	})
	assert.False(t, ok)
	assert.Equal(t, AuthDenied, s.primary.Status())
}

func TestTrackRateWithoutToken(t *testing.T) {
	s := newTestService(t, "")
	activateMocks(t, s)

	httpmock.RegisterResponder("GET", `=~^https://itunes\.apple\.com/search`,
		httpmock.NewStringResponder(http.StatusOK, searchHitBody))

	// A recovered catalog ID is useless without authorization.
	_, ok := s.TrackRate(context.Background(), Request{TrackID: "1440833087", Name: "So What"})
	assert.False(t, ok)
	assert.Equal(t, AuthDenied, s.primary.Status())
}

func TestTrackRateNoUsableVariants(t *testing.T) {
	s := newTestService(t, "token")
	activateMocks(t, s)

	httpmock.RegisterResponder("GET", "https://api.music.apple.com/v1/catalog/us/songs/42",
		httpmock.NewStringResponder(http.StatusOK, songLossyBody))
	httpmock.RegisterResponder("GET", `=~^https://itunes\.apple\.com/search`,
		httpmock.NewStringResponder(http.StatusOK, searchMissBody))

	_, ok := s.TrackRate(context.Background(), Request{TrackID: "42", Name: "So What"})
	assert.False(t, ok)
}

func TestSongRateDeniedWithoutRequest(t *testing.T) {
	c := NewAppleMusicClient("", "us")
	_, err := c.SongRate(context.Background(), "42")
	require.Error(t, err)
	assert.Equal(t, errors.CategoryAuthorization, errors.CategoryOf(err))
}

func TestEstimateRate(t *testing.T) {
	assert.Equal(t, 192000, estimateRate([]string{"lossless", "hi-res-lossless"}))
	assert.Equal(t, 48000, estimateRate([]string{"lossless", "lossy-stereo"}))
	assert.Zero(t, estimateRate([]string{"lossy-stereo"}))
	assert.Zero(t, estimateRate(nil))
}

func TestFindTrackID(t *testing.T) {
	c := NewSearchClient()
	httpmock.ActivateNonDefault(c.httpClient)
	t.Cleanup(httpmock.DeactivateAndReset)

	httpmock.RegisterResponder("GET", `=~^https://itunes\.apple\.com/search`,
		httpmock.NewStringResponder(http.StatusOK, searchHitBody))

	id, err := c.FindTrackID(context.Background(), "So What", "Miles Davis")
	require.NoError(t, err)
	assert.Equal(t, "1440833087", id)

	// Empty query short-circuits without a request.
	id, err = c.FindTrackID(context.Background(), "", "")
	require.NoError(t, err)
	assert.Empty(t, id)
}

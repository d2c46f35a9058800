// Package catalog resolves a best-effort sample rate for a track from
// remote catalog metadata. The primary path looks a track up by its catalog
// identifier with an authorized client; on a miss or authorization failure
// it degrades to a free-text search that can recover a catalog identifier.
// Results are cached for the process lifetime. Failures never surface to
// the caller: a track without a resolvable rate simply yields no reading.
package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/pkarvinen/dacsync/internal/conf"
)

// Request carries the lookup keys for one track.
type Request struct {
	TrackID string // player catalog identifier, may be empty
	Name    string
	Artist  string
}

// cacheKey returns the process-lifetime cache key for the request.
func (r *Request) cacheKey() string {
	if r.TrackID != "" {
		return "id:" + r.TrackID
	}
	return "q:" + r.Name + "\x00" + r.Artist
}

// Resolver returns a best-effort sample rate for a track, or false when no
// estimate is available.
type Resolver interface {
	TrackRate(ctx context.Context, req Request) (int, bool)
}

// Service is the Resolver backed by the Apple Music catalog with an iTunes
// Search fallback.
type Service struct {
	primary *AppleMusicClient
	search  *SearchClient
	cache   *cache.Cache
	timeout time.Duration
	logger  *slog.Logger
}

// NewService builds a Service from catalog settings.
func NewService(settings *conf.CatalogSettings) *Service {
	return &Service{
		primary: NewAppleMusicClient(settings.Token, settings.Storefront),
		search:  NewSearchClient(),
		cache:   cache.New(cache.NoExpiration, 0),
		timeout: settings.Timeout,
		logger:  slog.Default().With("service", "catalog"),
	}
}

// TrackRate resolves the sample rate for the requested track. All lookup
// failures degrade to "no reading".
func (s *Service) TrackRate(ctx context.Context, req Request) (int, bool) {
	key := req.cacheKey()
	if cached, found := s.cache.Get(key); found {
		return cached.(int), true
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rate, ok := s.resolve(ctx, req)
	if !ok {
		return 0, false
	}

	s.cache.Set(key, rate, cache.NoExpiration)
	return rate, true
}

func (s *Service) resolve(ctx context.Context, req Request) (int, bool) {
	// Primary: authorized catalog lookup by identifier.
	if req.TrackID != "" && s.primary.Authorized() {
		rate, err := s.primary.SongRate(ctx, req.TrackID)
		if err == nil && rate > 0 {
			return rate, true
		}
		if err != nil {
			s.logger.Debug("catalog lookup failed, falling back to search",
				"track_id", req.TrackID, "error", err)
		}
	}

	// Fallback: free-text search recovering a catalog identifier.
	if req.Name == "" && req.Artist == "" {
		return 0, false
	}
	catalogID, err := s.search.FindTrackID(ctx, req.Name, req.Artist)
	if err != nil || catalogID == "" {
		if err != nil {
			s.logger.Debug("catalog search failed", "name", req.Name, "error", err)
		}
		return 0, false
	}
	if !s.primary.Authorized() {
		return 0, false
	}

	rate, err := s.primary.SongRate(ctx, catalogID)
	if err != nil || rate <= 0 {
		if err != nil {
			s.logger.Debug("catalog lookup for searched identifier failed",
				"catalog_id", catalogID, "error", err)
		}
		return 0, false
	}
	return rate, true
}

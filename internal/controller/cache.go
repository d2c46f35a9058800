package controller

import (
	gocache "github.com/patrickmn/go-cache"
)

// rateCache remembers the nominal rate that was actually applied (or
// confirmed unnecessary) for a track identity. Entries live for the process
// lifetime; a speculative detection that never resulted in a confirmed
// device state is never cached.
type rateCache struct {
	c *gocache.Cache
}

func newRateCache() *rateCache {
	return &rateCache{c: gocache.New(gocache.NoExpiration, 0)}
}

func (r *rateCache) get(id TrackIdentity) (int, bool) {
	v, found := r.c.Get(id.Key())
	if !found {
		return 0, false
	}
	rate, ok := v.(int)
	return rate, ok
}

func (r *rateCache) set(id TrackIdentity, rate int) {
	r.c.SetDefault(id.Key(), rate)
}

package resolver

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/bluele/gcache"

	"github.com/theoremus-urban-solutions/gtfs-journey/utils"
)

// RateLimitedGeocoder serializes calls to an inner geocoder, spacing
// request starts at least minInterval apart, and caches answers by exact
// query for the life of the process. Definite misses are cached too;
// transport failures are not.
type RateLimitedGeocoder struct {
	inner       Geocoder
	minInterval time.Duration
	clock       utils.Clock

	gate  chan struct{} // holds one token; taking it is the lock
	last  time.Time     // start of the previous request, guarded by gate
	cache gcache.Cache

	requests  atomic.Uint64
	cacheHits atomic.Uint64
}

type cachedAnswer struct {
	point Point
	found bool
}

// NewRateLimitedGeocoder wraps inner. A nil clock uses the system clock.
func NewRateLimitedGeocoder(inner Geocoder, minInterval time.Duration, clock utils.Clock) *RateLimitedGeocoder {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	g := &RateLimitedGeocoder{
		inner:       inner,
		minInterval: minInterval,
		clock:       clock,
		gate:        make(chan struct{}, 1),
		cache:       gcache.New(0).Simple().Build(),
	}
	g.gate <- struct{}{}
	return g
}

// Geocode implements Geocoder.
func (g *RateLimitedGeocoder) Geocode(ctx context.Context, query string) (Point, error) {
	if a, ok := g.cached(query); ok {
		return a.result()
	}

	select {
	case <-g.gate:
	case <-ctx.Done():
		return Point{}, ctx.Err()
	}
	defer func() { g.gate <- struct{}{} }()

	// an earlier holder of the gate may have answered the same query
	if a, ok := g.cached(query); ok {
		return a.result()
	}

	if !g.last.IsZero() {
		if wait := g.minInterval - g.clock.Now().Sub(g.last); wait > 0 {
			if err := g.clock.Sleep(ctx, wait); err != nil {
				return Point{}, err
			}
		}
	}
	g.last = g.clock.Now()
	g.requests.Add(1)

	p, err := g.inner.Geocode(ctx, query)
	switch {
	case err == nil:
		_ = g.cache.Set(query, cachedAnswer{point: p, found: true})
	case errors.Is(err, ErrNoGeocodeResult):
		_ = g.cache.Set(query, cachedAnswer{})
	}
	return p, err
}

func (g *RateLimitedGeocoder) cached(query string) (cachedAnswer, bool) {
	v, err := g.cache.Get(query)
	if err != nil {
		return cachedAnswer{}, false
	}
	g.cacheHits.Add(1)
	return v.(cachedAnswer), true
}

func (a cachedAnswer) result() (Point, error) {
	if !a.found {
		return Point{}, ErrNoGeocodeResult
	}
	return a.point, nil
}

// Requests returns the number of calls passed to the inner geocoder.
func (g *RateLimitedGeocoder) Requests() uint64 { return g.requests.Load() }

// CacheHits returns the number of calls answered from the cache.
func (g *RateLimitedGeocoder) CacheHits() uint64 { return g.cacheHits.Load() }

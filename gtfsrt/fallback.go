package gtfsrt

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/bluele/gcache"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// PayloadCache keeps the last payload of each feed that decoded cleanly.
type PayloadCache interface {
	Get(kind FeedKind) ([]byte, bool)
	Put(kind FeedKind, payload []byte)
}

// MemoryCache is a process-lifetime PayloadCache.
type MemoryCache struct {
	c gcache.Cache
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{c: gcache.New(len(AllFeeds)).Simple().Build()}
}

func (m *MemoryCache) Get(kind FeedKind) ([]byte, bool) {
	v, err := m.c.Get(kind)
	if err != nil {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (m *MemoryCache) Put(kind FeedKind, payload []byte) {
	_ = m.c.Set(kind, payload)
}

// cacheFileNames are the payload files SeedFromDir looks for.
var cacheFileNames = map[FeedKind][]string{
	TripUpdates:      {"trip_updates.pb", "TripUpdates"},
	VehiclePositions: {"vehicle_positions.pb", "VehiclePositions"},
	ServiceAlerts:    {"service_alerts.pb", "alerts.pb"},
}

// SeedFromDir loads previously saved payloads from dir into cache. Files
// that are absent or do not decode are skipped. It returns the kinds
// seeded.
func SeedFromDir(cache PayloadCache, dir string) []FeedKind {
	var seeded []FeedKind
	for _, kind := range AllFeeds {
		for _, name := range cacheFileNames[kind] {
			b, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil || Validate(b) != nil {
				continue
			}
			cache.Put(kind, b)
			seeded = append(seeded, kind)
			break
		}
	}
	return seeded
}

// FallbackPolicy fetches a feed from its primary source with retries, and
// falls back to the last cached payload, then to nothing.
type FallbackPolicy struct {
	Primary Fetcher
	Cache   PayloadCache
	// Retries is the number of extra attempts after the first one.
	Retries int
	// Timeout bounds each attempt.
	Timeout time.Duration
	// InitialInterval is the first backoff wait between attempts.
	InitialInterval time.Duration
	Logger          zerolog.Logger
}

// Fetch never fails: it returns the payload and where it came from. A live
// payload is kept only if it decodes; it then replaces the cached one.
func (p *FallbackPolicy) Fetch(ctx context.Context, kind FeedKind) ([]byte, Source) {
	log := p.Logger.With().Str("feed", string(kind)).Logger()

	if p.Primary != nil {
		payload, err := p.fetchLive(ctx, kind)
		if err == nil {
			if p.Cache != nil {
				p.Cache.Put(kind, payload)
			}
			return payload, SourceLive
		}
		if errors.Is(err, ErrFeedNotConfigured) {
			log.Debug().Msg("feed not configured")
		} else {
			log.Warn().Err(err).Msg("live fetch failed, using fallback")
		}
	}

	if p.Cache != nil {
		if payload, ok := p.Cache.Get(kind); ok {
			return payload, SourceCache
		}
	}
	return nil, SourceEmpty
}

func (p *FallbackPolicy) fetchLive(ctx context.Context, kind FeedKind) ([]byte, error) {
	initial := p.InitialInterval
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	b := &backoff.ExponentialBackOff{
		InitialInterval:     initial,
		RandomizationFactor: 0.2,
		Multiplier:          2,
		MaxInterval:         10 * initial,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	retries := p.Retries
	if retries < 0 {
		retries = 0
	}

	return backoff.RetryNotifyWithData(
		func() ([]byte, error) {
			attemptCtx := ctx
			if p.Timeout > 0 {
				var cancel context.CancelFunc
				attemptCtx, cancel = context.WithTimeout(ctx, p.Timeout)
				defer cancel()
			}
			payload, err := p.Primary.Fetch(attemptCtx, kind)
			if errors.Is(err, ErrFeedNotConfigured) {
				return nil, backoff.Permanent(err)
			}
			if err != nil {
				return nil, err
			}
			if err := Validate(payload); err != nil {
				return nil, err
			}
			return payload, nil
		},
		backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx),
		func(err error, d time.Duration) {
			p.Logger.Debug().Str("feed", string(kind)).Err(err).Dur("wait", d).Msg("retrying feed fetch")
		},
	)
}

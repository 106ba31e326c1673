package gtfsrt

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/theoremus-urban-solutions/gtfs-journey/utils"
)

// FeedSource yields a feed payload and its provenance without failing.
// *FallbackPolicy is the production implementation.
type FeedSource interface {
	Fetch(ctx context.Context, kind FeedKind) ([]byte, Source)
}

// SnapshotListener is notified after a new snapshot is installed.
type SnapshotListener func(*Snapshot)

// Refresher owns the latest realtime Snapshot. Refreshes never overlap: a
// refresh triggered while another is in flight returns immediately.
type Refresher struct {
	source FeedSource
	clock  utils.Clock
	logger zerolog.Logger

	current  atomic.Pointer[Snapshot]
	inFlight atomic.Bool

	mu        sync.RWMutex
	listeners []SnapshotListener
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

func WithClock(c utils.Clock) RefresherOption {
	return func(r *Refresher) { r.clock = c }
}

func WithLogger(l zerolog.Logger) RefresherOption {
	return func(r *Refresher) { r.logger = l }
}

func WithListener(l SnapshotListener) RefresherOption {
	return func(r *Refresher) { r.listeners = append(r.listeners, l) }
}

// NewRefresher creates a refresher holding an empty snapshot.
func NewRefresher(source FeedSource, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		source: source,
		clock:  utils.SystemClock{},
		logger: zerolog.Nop(),
	}
	for _, o := range opts {
		o(r)
	}
	r.current.Store(EmptySnapshot())
	return r
}

// Subscribe adds a listener for subsequent snapshots.
func (r *Refresher) Subscribe(l SnapshotListener) {
	r.mu.Lock()
	r.listeners = append(r.listeners, l)
	r.mu.Unlock()
}

// Snapshot returns the latest installed snapshot. It is never nil.
func (r *Refresher) Snapshot() *Snapshot { return r.current.Load() }

// Refresh fetches all feeds concurrently and installs a new snapshot. It
// reports false without doing anything when a refresh is already running.
func (r *Refresher) Refresh(ctx context.Context) bool {
	if !r.inFlight.CompareAndSwap(false, true) {
		r.logger.Debug().Msg("refresh already in flight, skipping")
		return false
	}
	defer r.inFlight.Store(false)

	var (
		delays   []TripDelay
		vehicles []VehiclePosition
		alerts   []RTAlert
		srcTU    = SourceEmpty
		srcVP    = SourceEmpty
		srcSA    = SourceEmpty
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		payload, src := r.source.Fetch(gctx, TripUpdates)
		delays, srcTU = decodeOrEmpty(r.logger, TripUpdates, payload, src, DecodeTripUpdates)
		return nil
	})
	g.Go(func() error {
		payload, src := r.source.Fetch(gctx, VehiclePositions)
		vehicles, srcVP = decodeOrEmpty(r.logger, VehiclePositions, payload, src, DecodeVehiclePositions)
		return nil
	})
	g.Go(func() error {
		payload, src := r.source.Fetch(gctx, ServiceAlerts)
		alerts, srcSA = decodeOrEmpty(r.logger, ServiceAlerts, payload, src, DecodeAlerts)
		return nil
	})
	_ = g.Wait()

	snap := NewSnapshot(uuid.NewString(), r.clock.Now(), delays, vehicles, alerts, map[FeedKind]Source{
		TripUpdates:      srcTU,
		VehiclePositions: srcVP,
		ServiceAlerts:    srcSA,
	})
	r.current.Store(snap)

	r.logger.Info().
		Str("snapshot", snap.ID).
		Int("delays", len(snap.Delays)).
		Int("vehicles", len(snap.Vehicles)).
		Int("alerts", len(snap.Alerts)).
		Str("trip_updates", string(srcTU)).
		Str("vehicle_positions", string(srcVP)).
		Str("service_alerts", string(srcSA)).
		Msg("realtime snapshot installed")

	r.mu.RLock()
	listeners := append([]SnapshotListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, l := range listeners {
		l(snap)
	}
	return true
}

// decodeOrEmpty decodes a payload, degrading to an empty result when the
// payload is absent or corrupt.
func decodeOrEmpty[T any](log zerolog.Logger, kind FeedKind, payload []byte, src Source, decode func([]byte) ([]T, error)) ([]T, Source) {
	if src == SourceEmpty {
		return []T{}, SourceEmpty
	}
	out, err := decode(payload)
	if err != nil {
		log.Warn().Str("feed", string(kind)).Str("source", string(src)).Err(err).Msg("payload did not decode")
		return []T{}, SourceEmpty
	}
	return out, src
}

// Run refreshes immediately and then on every interval tick until ctx is
// cancelled.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	r.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("realtime refresher stopped")
			return
		case <-ticker.C:
			// a slow refresh must not hold up the ticker
			go r.Refresh(ctx)
		}
	}
}

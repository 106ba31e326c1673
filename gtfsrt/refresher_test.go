package gtfsrt_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/theoremus-urban-solutions/gtfs-journey/gtfsrt"
	"github.com/theoremus-urban-solutions/gtfs-journey/internal/fixtures"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func (c fixedClock) Sleep(ctx context.Context, d time.Duration) error { return ctx.Err() }

// stubSource serves fixed payloads and can block until released.
type stubSource struct {
	payloads map[gtfsrt.FeedKind][]byte
	sources  map[gtfsrt.FeedKind]gtfsrt.Source
	entered  chan struct{}
	release  chan struct{}
	calls    atomic.Int32
}

func (s *stubSource) Fetch(ctx context.Context, kind gtfsrt.FeedKind) ([]byte, gtfsrt.Source) {
	s.calls.Add(1)
	if s.entered != nil && kind == gtfsrt.TripUpdates {
		s.entered <- struct{}{}
		<-s.release
	}
	src, ok := s.sources[kind]
	if !ok {
		return nil, gtfsrt.SourceEmpty
	}
	return s.payloads[kind], src
}

func TestRefresher_InstallsSnapshot(t *testing.T) {
	now := time.Date(2024, 6, 17, 8, 0, 0, 0, time.UTC)
	src := &stubSource{
		payloads: map[gtfsrt.FeedKind][]byte{
			gtfsrt.TripUpdates: fixtures.Feed(t,
				fixtures.TripUpdate("e1", "T1", fixtures.StopUpdate("A", nil, proto.Int32(180)))),
			gtfsrt.VehiclePositions: fixtures.Feed(t, fixtures.Vehicle("v1", "T1", "R1", 43.9, -78.86)),
			gtfsrt.ServiceAlerts:    {0xff, 0xff, 0xff, 0x01},
		},
		sources: map[gtfsrt.FeedKind]gtfsrt.Source{
			gtfsrt.TripUpdates:      gtfsrt.SourceLive,
			gtfsrt.VehiclePositions: gtfsrt.SourceCache,
			gtfsrt.ServiceAlerts:    gtfsrt.SourceCache,
		},
	}

	var notified []*gtfsrt.Snapshot
	r := gtfsrt.NewRefresher(src,
		gtfsrt.WithClock(fixedClock{now}),
		gtfsrt.WithListener(func(s *gtfsrt.Snapshot) { notified = append(notified, s) }))

	before := r.Snapshot()
	require.NotNil(t, before)
	assert.Empty(t, before.Delays)

	require.True(t, r.Refresh(context.Background()))
	snap := r.Snapshot()

	assert.NotEqual(t, before, snap)
	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, now, snap.FetchedAt)
	assert.Equal(t, int32(180), snap.DelayFor("T1"))
	assert.Zero(t, snap.DelayFor("T9"))
	v, ok := snap.VehicleForTrip("T1")
	require.True(t, ok)
	assert.Equal(t, "R1", v.RouteID)
	assert.Empty(t, snap.Alerts, "corrupt cached payload yields empty")
	assert.Equal(t, map[gtfsrt.FeedKind]gtfsrt.Source{
		gtfsrt.TripUpdates:      gtfsrt.SourceLive,
		gtfsrt.VehiclePositions: gtfsrt.SourceCache,
		gtfsrt.ServiceAlerts:    gtfsrt.SourceEmpty,
	}, snap.Sources)
	require.Len(t, notified, 1)
	assert.Same(t, snap, notified[0])

	require.True(t, r.Refresh(context.Background()))
	assert.NotEqual(t, snap.ID, r.Snapshot().ID, "every refresh gets a fresh id")
}

func TestRefresher_OverlappingRefreshIsNoop(t *testing.T) {
	src := &stubSource{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	r := gtfsrt.NewRefresher(src)

	var wg sync.WaitGroup
	var first bool
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = r.Refresh(context.Background())
	}()
	<-src.entered

	// the first refresh is parked inside the trip updates fetch
	for i := 0; i < 5; i++ {
		assert.False(t, r.Refresh(context.Background()))
	}

	close(src.release)
	wg.Wait()
	assert.True(t, first)
	assert.Equal(t, int32(3), src.calls.Load(), "skipped refreshes fetched nothing")

	// the guard is released once the refresh completes
	src.entered = nil
	assert.True(t, r.Refresh(context.Background()))
}

func TestRefresher_FeedsAreIndependent(t *testing.T) {
	alerts := fixtures.Feed(t, fixtures.Alert("a1", "Stop closed", "", "B"))
	src := &stubSource{
		payloads: map[gtfsrt.FeedKind][]byte{gtfsrt.ServiceAlerts: alerts},
		sources:  map[gtfsrt.FeedKind]gtfsrt.Source{gtfsrt.ServiceAlerts: gtfsrt.SourceLive},
	}
	r := gtfsrt.NewRefresher(src)
	require.True(t, r.Refresh(context.Background()))

	snap := r.Snapshot()
	assert.Empty(t, snap.Delays)
	assert.Empty(t, snap.Vehicles)
	require.Len(t, snap.AlertsForStop("B"), 1)
	assert.Equal(t, "Stop closed", snap.AlertsForStop("B")[0].Header)
	assert.Equal(t, gtfsrt.SourceEmpty, snap.Sources[gtfsrt.TripUpdates])
}

func TestRefresher_RunStopsOnCancel(t *testing.T) {
	src := &stubSource{}
	var count atomic.Int32
	r := gtfsrt.NewRefresher(src)
	r.Subscribe(func(*gtfsrt.Snapshot) { count.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return count.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

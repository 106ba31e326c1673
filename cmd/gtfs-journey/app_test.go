package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"

	"github.com/theoremus-urban-solutions/gtfs-journey/config"
	"github.com/theoremus-urban-solutions/gtfs-journey/gtfsrt"
	"github.com/theoremus-urban-solutions/gtfs-journey/internal/fixtures"
	"github.com/theoremus-urban-solutions/gtfs-journey/resolver"
	"github.com/theoremus-urban-solutions/gtfs-journey/search"
)

// TestApp_EndToEnd loads a schedule directory and file-based realtime feeds
// through the configured wiring and runs one search.
func TestApp_EndToEnd(t *testing.T) {
	gtfsDir := t.TempDir()
	fixtures.WriteDir(t, gtfsDir, fixtures.ThreeStops())

	rtDir := t.TempDir()
	tu := filepath.Join(rtDir, "tu.pb")
	delay := int32(300)
	require.NoError(t, os.WriteFile(tu, fixtures.Feed(t,
		fixtures.TripUpdate("1", "T1", fixtures.StopUpdate("A", nil, proto.Int32(delay)))), 0o644))
	sa := filepath.Join(rtDir, "sa.pb")
	require.NoError(t, os.WriteFile(sa, fixtures.Feed(t,
		fixtures.Alert("al", "Detour on King St", "R1", "")), 0o644))

	cfg := config.Defaults()
	cfg.Resolver.GeocoderURL = ""
	cfg.GTFS.StaticPath = gtfsDir
	cfg.GTFS.Timezone = "UTC"
	cfg.GTFSRT.TripUpdatesURL = tu
	cfg.GTFSRT.ServiceAlertsURL = sa
	cfg.GTFSRT.Retries = 0
	gtfsCfg, rtCfg := cfg.SelectFeed("")

	a, err := newApp(&cfg, gtfsCfg, rtCfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.close()
	assert.Equal(t, 3, a.store.Current().StopCount())

	ctx := context.Background()
	require.True(t, a.refresher.Refresh(ctx))
	snap := a.refresher.Snapshot()
	assert.Equal(t, gtfsrt.SourceLive, snap.Sources[gtfsrt.TripUpdates])
	assert.Equal(t, gtfsrt.SourceEmpty, snap.Sources[gtfsrt.VehiclePositions])
	assert.Equal(t, gtfsrt.SourceLive, snap.Sources[gtfsrt.ServiceAlerts])

	// Tuesday, before the 08:00 departure
	j := a.search(ctx, "Main St & King St", "102", time.Date(2024, 6, 18, 7, 30, 0, 0, time.UTC))
	assert.Equal(t, resolver.MethodExact, j.From.Method)
	assert.Equal(t, "C", j.To.StopID)
	require.Equal(t, search.StateFound, j.Result.State)
	require.Len(t, j.Result.Current, 1)
	opt := j.Result.Current[0]
	assert.Equal(t, "900 to Oshawa Centre · departs 08:05 (+5 min late) · arrives 08:35 · 30 min", opt.Status)
	assert.Equal(t, []string{"Detour on King St"}, opt.Alerts)
	t.Logf("✓ %s", opt.Status)
}

func TestApp_BadStaticPath(t *testing.T) {
	cfg := config.Defaults()
	cfg.GTFS.StaticPath = filepath.Join(t.TempDir(), "missing.zip")
	gtfsCfg, rtCfg := cfg.SelectFeed("")
	_, err := newApp(&cfg, gtfsCfg, rtCfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestApp_EmptyCatalogWithoutPath(t *testing.T) {
	cfg := config.Defaults()
	gtfsCfg, rtCfg := cfg.SelectFeed("")
	a, err := newApp(&cfg, gtfsCfg, rtCfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.close()

	j := a.search(context.Background(), "", "", time.Now())
	assert.Equal(t, search.StateNoStopsSelected, j.Result.State)
}

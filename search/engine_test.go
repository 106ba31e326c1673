package search_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/gtfs-journey/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-journey/gtfsrt"
	"github.com/theoremus-urban-solutions/gtfs-journey/internal/fixtures"
	"github.com/theoremus-urban-solutions/gtfs-journey/search"
)

func clock(h, m int) int { return h*3600 + m*60 }

func newEngine(t *testing.T, files fixtures.Files) *search.Engine {
	t.Helper()
	return search.NewEngine(gtfs.NewStore(fixtures.Index(t, files)))
}

func tripIDs(opts []search.TripOption) []string {
	ids := make([]string, 0, len(opts))
	for _, o := range opts {
		ids = append(ids, o.TripID)
	}
	return ids
}

func TestSearch_EndToEndThreeStops(t *testing.T) {
	e := newEngine(t, fixtures.ThreeStops())

	res := e.Search(search.Query{
		OriginStopID:      "A",
		DestinationStopID: "C",
		NowSec:            clock(7, 0),
		ActiveServices:    map[string]bool{"S": true},
		Delays:            map[string]int32{},
	})

	require.Equal(t, search.StateFound, res.State)
	require.Len(t, res.Current, 1)
	assert.Empty(t, res.Suggested)

	got := res.Current[0]
	assert.Equal(t, "T1", got.TripID)
	assert.Equal(t, clock(8, 0), got.DepartureSec)
	assert.Equal(t, clock(8, 30), got.ArrivalSec)
	assert.Equal(t, got.ArrivalSec-clock(8, 0), got.DurationSec)
	assert.False(t, got.Tomorrow)
	assert.Equal(t, "08:00:00", got.ScheduledDeparture)
	assert.Equal(t, "08:30:00", got.ScheduledArrival)
	assert.Equal(t, "900 to Oshawa Centre · departs 08:00 (on time) · arrives 08:30 · 30 min", got.Status)
	t.Logf("✓ %s", got.Status)
}

func TestSearch_ZeroDelayKeepsScheduledTimes(t *testing.T) {
	files := fixtures.Corridor()
	idx := fixtures.Index(t, files)
	e := search.NewEngine(gtfs.NewStore(idx))

	for _, delays := range []map[string]int32{nil, {}} {
		res := e.Search(search.Query{OriginStopID: "A", DestinationStopID: "C", NowSec: clock(6, 0), Delays: delays})
		require.Equal(t, search.StateFound, res.State)
		for _, o := range append(res.Current, res.Suggested...) {
			var dep, arr int
			for _, st := range idx.StopTimesForTrip(o.TripID) {
				switch st.StopID {
				case "A":
					dep = st.DepartureSec
				case "C":
					arr = st.ArrivalSec
				}
			}
			assert.Equal(t, dep, o.DepartureSec, o.TripID)
			assert.Equal(t, arr, o.ArrivalSec, o.TripID)
			assert.Zero(t, o.DelaySec)
		}
	}
}

func TestSearch_WrapsPastDeparturesToTomorrow(t *testing.T) {
	files := fixtures.ThreeStops()
	files[gtfs.TripsFile] = []string{
		"route_id,service_id,trip_id,trip_headsign",
		"R1,S,EARLY,Oshawa Centre",
		"R1,S,MORNING,Oshawa Centre",
	}
	files[gtfs.StopTimesFile] = []string{
		"trip_id,arrival_time,departure_time,stop_id,stop_sequence",
		"MORNING,08:00:00,08:00:00,A,1",
		"MORNING,08:30:00,08:30:00,C,2",
		"EARLY,00:10:00,00:10:00,A,1",
		"EARLY,00:40:00,00:40:00,C,2",
	}
	e := newEngine(t, files)

	res := e.Search(search.Query{OriginStopID: "A", DestinationStopID: "C", NowSec: clock(23, 50)})
	require.Len(t, res.Current, 2)
	assert.Equal(t, []string{"EARLY", "MORNING"}, tripIDs(res.Current))
	for _, o := range res.Current {
		assert.True(t, o.Tomorrow, o.TripID)
		assert.Equal(t, o.DepartureSec+86400, o.SortKey)
	}
	assert.Contains(t, res.Current[0].Status, "departs tomorrow 00:10")

	// at 07:00 the morning trip is upcoming and the early one has passed
	res = e.Search(search.Query{OriginStopID: "A", DestinationStopID: "C", NowSec: clock(7, 0)})
	assert.Equal(t, []string{"MORNING", "EARLY"}, tripIDs(res.Current))
	assert.False(t, res.Current[0].Tomorrow)
	assert.True(t, res.Current[1].Tomorrow)
}

func TestSearch_DelaysShiftTimesAndRanking(t *testing.T) {
	e := newEngine(t, fixtures.Corridor())
	q := search.Query{
		OriginStopID:      "A",
		DestinationStopID: "C",
		NowSec:            clock(7, 45),
		ActiveServices:    map[string]bool{"S": true},
		Delays:            map[string]int32{"R1-0800": 45 * 60, "R2-0830": -120},
	}
	res := e.Search(q)

	assert.Equal(t, []string{"R2-0830", "R1-0800", "R3-0845"}, tripIDs(res.Current))
	late := res.Current[1]
	assert.Equal(t, clock(8, 45), late.DepartureSec)
	assert.Equal(t, clock(9, 5), late.ArrivalSec)
	assert.Equal(t, 20*60, late.DurationSec)
	assert.Equal(t, "08:00:00", late.ScheduledDeparture, "scheduled time ignores the delay")
	assert.Contains(t, late.Status, "(+45 min late)")
	assert.Contains(t, res.Current[0].Status, "departs 08:28 (2 min early)")
	t.Logf("✓ %s", late.Status)
}

func TestSearch_TieBreakOnTripID(t *testing.T) {
	e := newEngine(t, fixtures.Corridor())
	// R1-0800 delayed by 45 min departs 08:45 like R3-0845
	res := e.Search(search.Query{
		OriginStopID: "A", DestinationStopID: "C", NowSec: clock(8, 40),
		ActiveServices: map[string]bool{"S": true},
		Delays:         map[string]int32{"R1-0800": 45 * 60},
	})
	assert.Equal(t, []string{"R1-0800", "R3-0845", "R1-0900"}, tripIDs(res.Current))
}

func TestSearch_ServiceFilter(t *testing.T) {
	e := newEngine(t, fixtures.Corridor())
	base := search.Query{OriginStopID: "A", DestinationStopID: "C", NowSec: clock(8, 5)}

	all := base
	res := e.Search(all)
	assert.Equal(t, "R4-0810", res.Current[0].TripID, "empty filter admits every service")

	weekday := base
	weekday.ActiveServices = map[string]bool{"S": true}
	res = e.Search(weekday)
	for _, o := range append(res.Current, res.Suggested...) {
		assert.NotEqual(t, "R4", o.RouteID)
	}

	none := base
	none.ActiveServices = map[string]bool{"HOLIDAY": true}
	assert.Equal(t, search.StateNoTrips, e.Search(none).State)
}

func TestSearch_DirectionAndStates(t *testing.T) {
	e := newEngine(t, fixtures.Corridor())

	res := e.Search(search.Query{OriginStopID: "C", DestinationStopID: "A", NowSec: clock(7, 0)})
	require.Equal(t, search.StateFound, res.State)
	assert.Equal(t, []string{"R1-REV"}, tripIDs(res.Current))

	assert.Equal(t, search.StateNoTrips, e.Search(search.Query{OriginStopID: "B", DestinationStopID: "A"}).State)
	assert.Equal(t, search.StateNoTrips, e.Search(search.Query{OriginStopID: "D", DestinationStopID: "B"}).State)
	assert.Equal(t, search.StateNoTrips, e.Search(search.Query{OriginStopID: "A", DestinationStopID: "A"}).State)

	res = e.Search(search.Query{OriginStopID: "A"})
	assert.Equal(t, search.StateNoStopsSelected, res.State)
	assert.NotNil(t, res.Current)
	assert.NotNil(t, res.Suggested)
}

func TestSearch_SuggestedAlternatives(t *testing.T) {
	e := newEngine(t, fixtures.Corridor())
	res := e.Search(search.Query{
		OriginStopID: "A", DestinationStopID: "C", NowSec: clock(7, 45),
		ActiveServices: map[string]bool{"S": true},
	})

	assert.Equal(t, []string{"R1-0800", "R2-0830", "R3-0845"}, tripIDs(res.Current))
	// R1 is the top pick's route; R5-0700 has passed and sorts last
	assert.Equal(t, []string{"R6-1100", "R7-1200", "R8-1300", "R5-0700"}, tripIDs(res.Suggested))
	assert.True(t, res.Suggested[3].Tomorrow)
}

func TestSelect_LimitsAndDistinctRoutes(t *testing.T) {
	var ranked []search.TripOption
	for i, r := range []string{"R1", "R1", "R2", "R1", "R2", "R3", "R3", "R4", "R5", "R6", "R7", "R8"} {
		ranked = append(ranked, search.TripOption{TripID: string(rune('a' + i)), RouteID: r})
	}
	current, suggested := search.Select(ranked)
	assert.Equal(t, []string{"a", "b", "c"}, tripIDs(current))
	assert.Equal(t, []string{"e", "f", "h", "i", "j"}, tripIDs(suggested))

	current, suggested = search.Select(nil)
	assert.Empty(t, current)
	assert.Empty(t, suggested)
}

func TestSearch_RealtimeAnnotations(t *testing.T) {
	idx := fixtures.Index(t, fixtures.ThreeStops())
	e := search.NewEngine(gtfs.NewStore(idx))
	b, _ := idx.Stop("B")

	snap := gtfsrt.NewSnapshot("snap-1", time.Now(), []gtfsrt.TripDelay{{TripID: "T1", DelaySec: 180}},
		[]gtfsrt.VehiclePosition{{ID: "bus-1", TripID: "T1", Lat: b.Lat, Lon: b.Lon}},
		[]gtfsrt.RTAlert{
			{ID: "a1", Header: "Detour on King St", RouteIDs: []string{"R1"}, StopIDs: []string{"A"}},
			{ID: "a2", Header: "Elevator out at Oshawa Centre", StopIDs: []string{"C"}},
			{ID: "a3", Header: "Unrelated", RouteIDs: []string{"R9"}},
		}, nil)

	res := e.Search(search.Query{
		OriginStopID: "A", DestinationStopID: "C", NowSec: clock(7, 0),
		Delays: snap.Delays, Realtime: snap,
	})
	require.Len(t, res.Current, 1)
	o := res.Current[0]
	assert.Equal(t, int32(180), o.DelaySec)
	assert.Equal(t, clock(8, 3), o.DepartureSec)
	assert.Equal(t, []string{"Detour on King St", "Elevator out at Oshawa Centre"}, o.Alerts)
	assert.Equal(t, "Simcoe St & Bond St", o.VehicleNear)
	assert.Equal(t, "900 to Oshawa Centre · departs 08:03 (+3 min late) · arrives 08:33 · 30 min · vehicle near Simcoe St & Bond St", o.Status)
}

func TestSearch_FollowsStoreSwap(t *testing.T) {
	store := gtfs.NewStore(nil)
	e := search.NewEngine(store)
	q := search.Query{OriginStopID: "A", DestinationStopID: "C", NowSec: clock(7, 0)}
	assert.Equal(t, search.StateNoTrips, e.Search(q).State)

	store.Swap(fixtures.Index(t, fixtures.ThreeStops()))
	assert.Equal(t, search.StateFound, e.Search(q).State)
}

package search

import (
	"sort"

	"github.com/theoremus-urban-solutions/gtfs-journey/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-journey/gtfsrt"
	"github.com/theoremus-urban-solutions/gtfs-journey/utils"
)

const (
	// CurrentLimit is the number of top-ranked trips returned as current.
	CurrentLimit = 3
	// SuggestedLimit is the number of alternative routes suggested.
	SuggestedLimit = 5
)

// State distinguishes the empty outcomes of a search.
type State string

const (
	StateNoStopsSelected State = "no_stops_selected"
	StateNoTrips         State = "no_trips"
	StateFound           State = "found"
)

// Query is one direct-trip search between two resolved stops.
type Query struct {
	OriginStopID      string
	DestinationStopID string
	// NowSec is the current time of day in seconds since midnight.
	NowSec int
	// ActiveServices filters trips by service id unless empty.
	ActiveServices map[string]bool
	// Delays maps trip ids to signed realtime delays in seconds.
	Delays map[string]int32
	// Realtime, when set, contributes alerts and vehicle positions.
	Realtime *gtfsrt.Snapshot
}

// TripOption is one candidate trip with delay-adjusted times.
type TripOption struct {
	TripID         string `json:"trip_id"`
	RouteID        string `json:"route_id"`
	RouteShortName string `json:"route_short_name"`
	Headsign       string `json:"headsign"`
	DepartureSec   int    `json:"departure_sec"`
	ArrivalSec     int    `json:"arrival_sec"`
	// Scheduled times as written in stop_times, before any delay.
	ScheduledDeparture string   `json:"scheduled_departure"`
	ScheduledArrival   string   `json:"scheduled_arrival"`
	DurationSec        int      `json:"duration_sec"`
	DelaySec           int32    `json:"delay_sec"`
	SortKey            int      `json:"sort_key"`
	Tomorrow           bool     `json:"tomorrow"`
	VehicleNear        string   `json:"vehicle_near,omitempty"`
	Alerts             []string `json:"alerts,omitempty"`
	Status             string   `json:"status"`
}

// Result is the ranked answer to a Query.
type Result struct {
	State     State        `json:"state"`
	Current   []TripOption `json:"current"`
	Suggested []TripOption `json:"suggested"`
}

// Engine matches direct trips on the index installed in a store.
type Engine struct {
	store *gtfs.Store
}

func NewEngine(store *gtfs.Store) *Engine {
	return &Engine{store: store}
}

// Search ranks the trips serving origin then destination.
func (e *Engine) Search(q Query) Result {
	if q.OriginStopID == "" || q.DestinationStopID == "" {
		return Result{State: StateNoStopsSelected, Current: []TripOption{}, Suggested: []TripOption{}}
	}
	ranked := Rank(e.store.Current(), q)
	if len(ranked) == 0 {
		return Result{State: StateNoTrips, Current: []TripOption{}, Suggested: []TripOption{}}
	}
	current, suggested := Select(ranked)
	return Result{State: StateFound, Current: current, Suggested: suggested}
}

// Rank returns every candidate trip of q ordered by departure relative to
// now: upcoming departures first, then passed ones as if departing a day
// later. Ties go to the lower trip id.
func Rank(idx *gtfs.Index, q Query) []TripOption {
	var out []TripOption
	for _, tripID := range idx.TripsThroughStop(q.OriginStopID) {
		trip, ok := idx.Trip(tripID)
		if !ok {
			continue
		}
		if len(q.ActiveServices) > 0 && !q.ActiveServices[trip.ServiceID] {
			continue
		}
		from, to, ok := legOf(idx.StopTimesForTrip(tripID), q.OriginStopID, q.DestinationStopID)
		if !ok {
			continue
		}

		delay := q.Delays[tripID]
		opt := TripOption{
			TripID:         tripID,
			RouteID:        trip.RouteID,
			RouteShortName: routeName(idx, trip.RouteID),
			Headsign:       trip.Headsign,
			DepartureSec:   from.DepartureSec + int(delay),
			ArrivalSec:     to.ArrivalSec + int(delay),
			DelaySec:       delay,

			ScheduledDeparture: utils.FormatClockSeconds(from.DepartureSec),
			ScheduledArrival:   utils.FormatClockSeconds(to.ArrivalSec),
		}
		opt.DurationSec = max(0, opt.ArrivalSec-opt.DepartureSec)
		opt.SortKey = opt.DepartureSec
		if opt.DepartureSec < q.NowSec {
			opt.SortKey += utils.SecondsPerDay
			opt.Tomorrow = true
		}
		if q.Realtime != nil {
			annotate(idx, q, &opt)
		}
		opt.Status = StatusLine(opt)
		out = append(out, opt)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortKey != out[j].SortKey {
			return out[i].SortKey < out[j].SortKey
		}
		return out[i].TripID < out[j].TripID
	})
	return out
}

// legOf finds the first origin call and the first destination call after
// it. Trips with fewer than two stop times never qualify.
func legOf(sts []gtfs.StopTime, origin, destination string) (gtfs.StopTime, gtfs.StopTime, bool) {
	if len(sts) < 2 {
		return gtfs.StopTime{}, gtfs.StopTime{}, false
	}
	for i, st := range sts {
		if st.StopID != origin {
			continue
		}
		for _, later := range sts[i+1:] {
			if later.StopID == destination && later.Sequence > st.Sequence {
				return st, later, true
			}
		}
		return gtfs.StopTime{}, gtfs.StopTime{}, false
	}
	return gtfs.StopTime{}, gtfs.StopTime{}, false
}

func routeName(idx *gtfs.Index, routeID string) string {
	if r, ok := idx.Route(routeID); ok {
		return r.DisplayName()
	}
	return routeID
}

// Select splits a ranked list into the current top trips and one
// alternative per further route. The top pick's route is never suggested.
func Select(ranked []TripOption) (current, suggested []TripOption) {
	current = []TripOption{}
	suggested = []TripOption{}
	if len(ranked) == 0 {
		return current, suggested
	}
	n := min(CurrentLimit, len(ranked))
	current = append(current, ranked[:n]...)

	seen := map[string]bool{ranked[0].RouteID: true}
	for _, opt := range ranked[n:] {
		if seen[opt.RouteID] {
			continue
		}
		seen[opt.RouteID] = true
		suggested = append(suggested, opt)
		if len(suggested) == SuggestedLimit {
			break
		}
	}
	return current, suggested
}

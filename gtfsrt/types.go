package gtfsrt

import "time"

// FeedKind names one of the three realtime feeds.
type FeedKind string

const (
	TripUpdates      FeedKind = "trip_updates"
	VehiclePositions FeedKind = "vehicle_positions"
	ServiceAlerts    FeedKind = "service_alerts"
)

// AllFeeds lists the feed kinds in refresh order.
var AllFeeds = []FeedKind{TripUpdates, VehiclePositions, ServiceAlerts}

// Source records where a feed's data in a snapshot came from.
type Source string

const (
	SourceLive  Source = "live"
	SourceCache Source = "cache"
	SourceEmpty Source = "empty"
)

// TripDelay is the realtime delay of one trip, in signed seconds.
type TripDelay struct {
	TripID   string `json:"trip_id"`
	DelaySec int32  `json:"delay_sec"`
}

// VehiclePosition is a simplified GTFS-RT vehicle position.
type VehiclePosition struct {
	ID        string  `json:"id"`
	TripID    string  `json:"trip_id"`
	RouteID   string  `json:"route_id,omitempty"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Bearing   float64 `json:"bearing,omitempty"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

// RTAlert is a simplified representation of a GTFS-RT Alert
type RTAlert struct {
	ID          string   `json:"id"`
	Header      string   `json:"header"`
	Description string   `json:"description,omitempty"`
	Cause       string   `json:"cause,omitempty"`
	Effect      string   `json:"effect,omitempty"`
	Severity    string   `json:"severity,omitempty"`
	Start       int64    `json:"start,omitempty"`
	End         int64    `json:"end,omitempty"`
	RouteIDs    []string `json:"route_ids,omitempty"`
	StopIDs     []string `json:"stop_ids,omitempty"`
	TripIDs     []string `json:"trip_ids,omitempty"`
}

// ActiveAt reports whether the alert's first active period covers the unix
// time ts. Open bounds are unbounded.
func (a RTAlert) ActiveAt(ts int64) bool {
	if a.Start != 0 && ts < a.Start {
		return false
	}
	if a.End != 0 && ts > a.End {
		return false
	}
	return true
}

// Snapshot is one complete, immutable result of a realtime refresh.
type Snapshot struct {
	ID        string              `json:"id"`
	FetchedAt time.Time           `json:"fetched_at"`
	Delays    map[string]int32    `json:"delays"`
	Vehicles  []VehiclePosition   `json:"vehicles"`
	Alerts    []RTAlert           `json:"alerts"`
	Sources   map[FeedKind]Source `json:"sources"`

	vehicleByTrip map[string]int
	alertsByRoute map[string][]int
	alertsByStop  map[string][]int
	alertsByTrip  map[string][]int
}

// EmptySnapshot is the state before the first refresh.
func EmptySnapshot() *Snapshot {
	return NewSnapshot("", time.Time{}, nil, nil, nil, map[FeedKind]Source{
		TripUpdates:      SourceEmpty,
		VehiclePositions: SourceEmpty,
		ServiceAlerts:    SourceEmpty,
	})
}

// NewSnapshot assembles a snapshot and its lookup tables.
func NewSnapshot(id string, at time.Time, delays []TripDelay, vehicles []VehiclePosition, alerts []RTAlert, sources map[FeedKind]Source) *Snapshot {
	s := &Snapshot{
		ID:            id,
		FetchedAt:     at,
		Delays:        DelayMap(delays),
		Vehicles:      vehicles,
		Alerts:        alerts,
		Sources:       sources,
		vehicleByTrip: map[string]int{},
		alertsByRoute: map[string][]int{},
		alertsByStop:  map[string][]int{},
		alertsByTrip:  map[string][]int{},
	}
	if s.Vehicles == nil {
		s.Vehicles = []VehiclePosition{}
	}
	if s.Alerts == nil {
		s.Alerts = []RTAlert{}
	}
	for i, v := range s.Vehicles {
		if v.TripID == "" {
			continue
		}
		if _, seen := s.vehicleByTrip[v.TripID]; !seen {
			s.vehicleByTrip[v.TripID] = i
		}
	}
	for i, a := range s.Alerts {
		for _, rid := range a.RouteIDs {
			s.alertsByRoute[rid] = append(s.alertsByRoute[rid], i)
		}
		for _, sid := range a.StopIDs {
			s.alertsByStop[sid] = append(s.alertsByStop[sid], i)
		}
		for _, tid := range a.TripIDs {
			s.alertsByTrip[tid] = append(s.alertsByTrip[tid], i)
		}
	}
	return s
}

// DelayMap keys delays by trip. The first entry of a trip wins.
func DelayMap(delays []TripDelay) map[string]int32 {
	m := make(map[string]int32, len(delays))
	for _, d := range delays {
		if _, seen := m[d.TripID]; !seen {
			m[d.TripID] = d.DelaySec
		}
	}
	return m
}

// Accessor methods

// DelayFor returns the trip's delay, or 0 when the feed has none.
func (s *Snapshot) DelayFor(tripID string) int32 { return s.Delays[tripID] }

// VehicleForTrip returns the first vehicle reported on the trip.
func (s *Snapshot) VehicleForTrip(tripID string) (VehiclePosition, bool) {
	i, ok := s.vehicleByTrip[tripID]
	if !ok {
		return VehiclePosition{}, false
	}
	return s.Vehicles[i], true
}

func (s *Snapshot) AlertsForRoute(routeID string) []RTAlert { return s.pick(s.alertsByRoute[routeID]) }

func (s *Snapshot) AlertsForStop(stopID string) []RTAlert { return s.pick(s.alertsByStop[stopID]) }

func (s *Snapshot) AlertsForTrip(tripID string) []RTAlert { return s.pick(s.alertsByTrip[tripID]) }

func (s *Snapshot) pick(idx []int) []RTAlert {
	if len(idx) == 0 {
		return nil
	}
	out := make([]RTAlert, 0, len(idx))
	for _, i := range idx {
		out = append(out, s.Alerts[i])
	}
	return out
}

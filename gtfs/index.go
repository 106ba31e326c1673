package gtfs

import (
	"sort"
	"time"
)

// Index stores the derived lookups over one Catalog. It is read-only once
// built and safe for concurrent readers.
type Index struct {
	catalog       *Catalog
	stops         map[string]Stop       // stop_id -> stop
	stopIDs       []string              // sorted stop ids
	routes        map[string]Route      // route_id -> route
	trips         map[string]Trip       // trip_id -> trip
	tripStopTimes map[string][]StopTime // trip_id -> stop times ordered by sequence
	stopRoutes    map[string][]string   // stop_id -> distinct route ids, sorted
	stopTrips     map[string][]string   // stop_id -> trip ids calling there, sorted
	routeTrips    map[string][]string   // route_id -> trip ids, sorted
	spatial       *SpatialIndex
	builtAt       time.Time
}

// NewIndex derives the indices of a catalog. Duplicate ids resolve to the
// last row of their table.
func NewIndex(cat *Catalog) *Index {
	if cat == nil {
		cat = &Catalog{}
	}
	g := &Index{
		catalog:       cat,
		stops:         make(map[string]Stop, len(cat.Stops)),
		routes:        make(map[string]Route, len(cat.Routes)),
		trips:         make(map[string]Trip, len(cat.Trips)),
		tripStopTimes: map[string][]StopTime{},
		stopRoutes:    map[string][]string{},
		stopTrips:     map[string][]string{},
		routeTrips:    map[string][]string{},
		builtAt:       time.Now(),
	}
	for _, s := range cat.Stops {
		g.stops[s.ID] = s
	}
	g.stopIDs = make([]string, 0, len(g.stops))
	for id := range g.stops {
		g.stopIDs = append(g.stopIDs, id)
	}
	sort.Strings(g.stopIDs)

	for _, r := range cat.Routes {
		g.routes[r.ID] = r
	}
	for _, t := range cat.Trips {
		g.trips[t.ID] = t
	}
	for _, st := range cat.StopTimes {
		g.tripStopTimes[st.TripID] = append(g.tripStopTimes[st.TripID], st)
	}

	routeSets := map[string]map[string]struct{}{}
	tripSets := map[string]map[string]struct{}{}
	for tripID, sts := range g.tripStopTimes {
		sort.SliceStable(sts, func(i, j int) bool { return sts[i].Sequence < sts[j].Sequence })
		routeID := g.trips[tripID].RouteID
		for _, st := range sts {
			if tripSets[st.StopID] == nil {
				tripSets[st.StopID] = map[string]struct{}{}
			}
			tripSets[st.StopID][tripID] = struct{}{}
			if routeID == "" {
				continue
			}
			if routeSets[st.StopID] == nil {
				routeSets[st.StopID] = map[string]struct{}{}
			}
			routeSets[st.StopID][routeID] = struct{}{}
		}
	}
	for stopID, set := range routeSets {
		g.stopRoutes[stopID] = sortedKeys(set)
	}
	for stopID, set := range tripSets {
		g.stopTrips[stopID] = sortedKeys(set)
	}
	for id, t := range g.trips {
		g.routeTrips[t.RouteID] = append(g.routeTrips[t.RouteID], id)
	}
	for _, ids := range g.routeTrips {
		sort.Strings(ids)
	}

	g.spatial = NewSpatialIndex(g.AllStops())
	return g
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Accessor methods

func (g *Index) Catalog() *Catalog { return g.catalog }

func (g *Index) BuiltAt() time.Time { return g.builtAt }

func (g *Index) Spatial() *SpatialIndex { return g.spatial }

func (g *Index) Stop(stopID string) (Stop, bool) {
	s, ok := g.stops[stopID]
	return s, ok
}

func (g *Index) GetStopName(stopID string) string { return g.stops[stopID].Name }

func (g *Index) Route(routeID string) (Route, bool) {
	r, ok := g.routes[routeID]
	return r, ok
}

func (g *Index) GetRouteShortName(routeID string) string { return g.routes[routeID].ShortName }

func (g *Index) Trip(tripID string) (Trip, bool) {
	t, ok := g.trips[tripID]
	return t, ok
}

func (g *Index) GetRouteIDForTrip(tripID string) string { return g.trips[tripID].RouteID }

func (g *Index) GetTripHeadsign(tripID string) string { return g.trips[tripID].Headsign }

// StopTimesForTrip returns the trip's stop times ordered by sequence. The
// slice is shared and must not be modified.
func (g *Index) StopTimesForTrip(tripID string) []StopTime { return g.tripStopTimes[tripID] }

// RoutesForStop returns the distinct routes with a trip calling at the stop.
func (g *Index) RoutesForStop(stopID string) []string { return g.stopRoutes[stopID] }

func (g *Index) RouteCountForStop(stopID string) int { return len(g.stopRoutes[stopID]) }

// TripsThroughStop returns the ids of trips with a stop time at the stop.
func (g *Index) TripsThroughStop(stopID string) []string { return g.stopTrips[stopID] }

func (g *Index) TripsForRoute(routeID string) []string { return g.routeTrips[routeID] }

// AllStops returns every stop ordered by id.
func (g *Index) AllStops() []Stop {
	out := make([]Stop, 0, len(g.stopIDs))
	for _, id := range g.stopIDs {
		out = append(out, g.stops[id])
	}
	return out
}

func (g *Index) StopCount() int { return len(g.stops) }

func (g *Index) TripCount() int { return len(g.trips) }

func (g *Index) RouteCount() int { return len(g.routes) }

// ActiveServicesOn resolves the calendar of the indexed catalog for ref.
func (g *Index) ActiveServicesOn(ref time.Time) map[string]bool {
	return g.catalog.ActiveServicesOn(ref)
}

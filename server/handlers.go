package server

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/theoremus-urban-solutions/gtfs-journey/cluster"
	"github.com/theoremus-urban-solutions/gtfs-journey/gtfsrt"
	"github.com/theoremus-urban-solutions/gtfs-journey/resolver"
	"github.com/theoremus-urban-solutions/gtfs-journey/search"
	"github.com/theoremus-urban-solutions/gtfs-journey/tracking"
	"github.com/theoremus-urban-solutions/gtfs-journey/utils"
)

type suggestResponse struct {
	Query       string                `json:"query"`
	Suggestions []resolver.StopOption `json:"suggestions"`
}

func (s *Server) handleSuggest(c *fiber.Ctx) error {
	q := c.Query("q")
	out := s.deps.Resolver.Suggest(q)
	if out == nil {
		out = []resolver.StopOption{}
	}
	return c.JSON(suggestResponse{Query: q, Suggestions: out})
}

// GET /api/stops/resolve?q=<text>&commit=<bool>
func (s *Server) handleResolve(c *fiber.Ctx) error {
	q := c.Query("q")
	if strings.TrimSpace(q) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "query parameter 'q' is required")
	}
	res := s.deps.Resolver.Resolve(c.UserContext(), resolver.Input{Text: q, Commit: c.QueryBool("commit", false)})
	return c.JSON(res)
}

type tripsResponse struct {
	From       resolver.Resolution `json:"from"`
	To         resolver.Resolution `json:"to"`
	At         string              `json:"at"`
	SnapshotID string              `json:"snapshot_id,omitempty"`
	search.Result
}

// GET /api/trips?from=<text>&to=<text>&at=<RFC3339|HH:MM>
//
// from and to accept stop ids, names, codes or addresses.
func (s *Server) handleTrips(c *fiber.Ctx) error {
	at, err := s.parseAt(c.Query("at"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid 'at': "+err.Error())
	}
	ctx := c.UserContext()
	from := s.resolveStop(ctx, c.Query("from"))
	to := s.resolveStop(ctx, c.Query("to"))

	idx := s.deps.Store.Current()
	snap := s.deps.Realtime.Snapshot()
	q := search.Query{
		OriginStopID:      from.StopID,
		DestinationStopID: to.StopID,
		NowSec:            utils.SecondsSinceMidnight(at),
		ActiveServices:    idx.ActiveServicesOn(at),
		Delays:            snap.Delays,
		Realtime:          snap,
	}

	start := time.Now()
	res := s.deps.Engine.Search(q)
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveSearch(string(res.State), time.Since(start))
	}
	return c.JSON(tripsResponse{
		From:       from,
		To:         to,
		At:         at.Format(time.RFC3339),
		SnapshotID: snap.ID,
		Result:     res,
	})
}

func (s *Server) resolveStop(ctx context.Context, text string) resolver.Resolution {
	return s.deps.Resolver.Resolve(ctx, resolver.Input{Text: text, Commit: true})
}

// parseAt reads an RFC3339 instant or a wall-clock HH:MM on today's date in
// the service timezone. Empty means now.
func (s *Server) parseAt(v string) (time.Time, error) {
	now := s.deps.Clock.Now().In(s.deps.Location)
	if v == "" {
		return now, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.In(s.deps.Location), nil
	}
	hm, err := time.ParseInLocation("15:04", v, s.deps.Location)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, hm.Hour(), hm.Minute(), 0, 0, s.deps.Location), nil
}

// GET /api/trips/:tripId/vehicle
func (s *Server) handleVehicle(c *fiber.Ctx) error {
	tripID := c.Params("tripId")
	v, ok := s.deps.Realtime.Snapshot().VehicleForTrip(tripID)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "no vehicle reported for trip "+tripID)
	}
	idx := s.deps.Store.Current()
	p, ok := tracking.Locate(idx, tripID, v)
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "trip "+tripID+" has no located stops")
	}
	routeID := idx.GetRouteIDForTrip(tripID)
	return c.JSON(fiber.Map{
		"vehicle":          v,
		"progress":         p,
		"fraction":         p.Fraction(),
		"route_id":         routeID,
		"route_short_name": idx.GetRouteShortName(routeID),
		"headsign":         idx.GetTripHeadsign(tripID),
		"to_next_stop":     utils.PresentableDistance(p.ToNextStopKM),
	})
}

// GET /api/clusters?zoom=&minLat=&minLon=&maxLat=&maxLon=
//
// Without a complete viewport every stop is clustered.
func (s *Server) handleClusters(c *fiber.Ctx) error {
	zoom := c.QueryFloat("zoom", 12)
	idx := s.deps.Store.Current()

	keys := []string{"minLat", "minLon", "maxLat", "maxLon"}
	have := 0
	for _, k := range keys {
		if c.Query(k) != "" {
			have++
		}
	}
	var groups []cluster.Group
	switch have {
	case 0:
		groups = cluster.Cluster(idx.AllStops(), zoom)
	case len(keys):
		groups = cluster.ClusterInBounds(idx.Spatial(), cluster.Bounds{
			MinLat: c.QueryFloat("minLat"),
			MinLon: c.QueryFloat("minLon"),
			MaxLat: c.QueryFloat("maxLat"),
			MaxLon: c.QueryFloat("maxLon"),
		}, zoom)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "viewport needs minLat, minLon, maxLat and maxLon")
	}
	return c.JSON(fiber.Map{"zoom": zoom, "cell_deg": cluster.CellSize(zoom), "groups": groups})
}

// GET /api/alerts?route=&stop=&all=<bool>
//
// A route filter also matches alerts informing single trips of the route.
func (s *Server) handleAlerts(c *fiber.Ctx) error {
	snap := s.deps.Realtime.Snapshot()
	idx := s.deps.Store.Current()
	resp := fiber.Map{"snapshot_id": snap.ID}
	var alerts []gtfsrt.RTAlert
	switch route, stop := c.Query("route"), c.Query("stop"); {
	case route != "":
		alerts = snap.AlertsForRoute(route)
		for _, tripID := range idx.TripsForRoute(route) {
			alerts = append(alerts, snap.AlertsForTrip(tripID)...)
		}
		resp["route_short_name"] = idx.GetRouteShortName(route)
	case stop != "":
		alerts = snap.AlertsForStop(stop)
		resp["stop_name"] = idx.GetStopName(stop)
	default:
		alerts = snap.Alerts
	}

	now := s.deps.Clock.Now().Unix()
	all := c.QueryBool("all", false)
	seen := map[string]bool{}
	out := make([]gtfsrt.RTAlert, 0, len(alerts))
	for _, a := range alerts {
		if a.ID != "" && seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		if all || a.ActiveAt(now) {
			out = append(out, a)
		}
	}
	resp["alerts"] = out
	return c.JSON(resp)
}

type realtimeResponse struct {
	AgencyID   string                            `json:"agency_id,omitempty"`
	SnapshotID string                            `json:"snapshot_id"`
	FetchedAt  string                            `json:"fetched_at,omitempty"`
	Sources    map[gtfsrt.FeedKind]gtfsrt.Source `json:"sources"`
	Delays     int                               `json:"delays"`
	Vehicles   int                               `json:"vehicles"`
	Alerts     int                               `json:"alerts"`
}

func (s *Server) handleRealtime(c *fiber.Ctx) error {
	snap := s.deps.Realtime.Snapshot()
	resp := realtimeResponse{
		AgencyID:   s.deps.AgencyID,
		SnapshotID: snap.ID,
		Sources:    snap.Sources,
		Delays:     len(snap.Delays),
		Vehicles:   len(snap.Vehicles),
		Alerts:     len(snap.Alerts),
	}
	if !snap.FetchedAt.IsZero() {
		resp.FetchedAt = utils.Iso8601FromUnixSeconds(snap.FetchedAt.Unix())
	}
	return c.JSON(resp)
}

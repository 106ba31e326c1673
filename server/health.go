package server

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/theoremus-urban-solutions/gtfs-journey/gtfsrt"
)

type healthResponse struct {
	Status                  string                            `json:"status"`
	AgencyID                string                            `json:"agency_id,omitempty"`
	Timestamp               time.Time                         `json:"timestamp"`
	Stops                   int                               `json:"stops"`
	Routes                  int                               `json:"routes"`
	Trips                   int                               `json:"trips"`
	CatalogBuiltAt          time.Time                         `json:"catalog_built_at"`
	SnapshotID              string                            `json:"snapshot_id,omitempty"`
	LatestGTFSRealtimeEpoch int64                             `json:"latest_gtfsrt_epoch"`
	Sources                 map[gtfsrt.FeedKind]gtfsrt.Source `json:"sources"`
}

// handleHealth reports degraded with 503 while no schedule is loaded.
// Realtime feeds falling back to cache or empty do not degrade health.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	idx := s.deps.Store.Current()
	snap := s.deps.Realtime.Snapshot()

	resp := healthResponse{
		Status:         "ok",
		AgencyID:       s.deps.AgencyID,
		Timestamp:      s.deps.Clock.Now().UTC(),
		Stops:          idx.StopCount(),
		Routes:         idx.RouteCount(),
		Trips:          idx.TripCount(),
		CatalogBuiltAt: idx.BuiltAt().UTC(),
		SnapshotID:     snap.ID,
		Sources:        snap.Sources,
	}
	if !snap.FetchedAt.IsZero() {
		resp.LatestGTFSRealtimeEpoch = snap.FetchedAt.Unix()
	}
	status := fiber.StatusOK
	if resp.Stops == 0 {
		resp.Status = "degraded"
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(resp)
}

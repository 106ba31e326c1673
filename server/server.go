package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/theoremus-urban-solutions/gtfs-journey/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-journey/gtfsrt"
	"github.com/theoremus-urban-solutions/gtfs-journey/metrics"
	"github.com/theoremus-urban-solutions/gtfs-journey/resolver"
	"github.com/theoremus-urban-solutions/gtfs-journey/search"
	"github.com/theoremus-urban-solutions/gtfs-journey/utils"
)

// SnapshotSource yields the current realtime snapshot. *gtfsrt.Refresher
// implements it.
type SnapshotSource interface {
	Snapshot() *gtfsrt.Snapshot
}

// Deps are the components the HTTP surface queries.
type Deps struct {
	Store    *gtfs.Store
	Resolver *resolver.Resolver
	Engine   *search.Engine
	Realtime SnapshotSource
	// Metrics is optional; /metrics is served only when set.
	Metrics  *metrics.Collector
	Location *time.Location
	Clock    utils.Clock
	Logger   zerolog.Logger
	// AgencyID labels health and realtime responses.
	AgencyID string
}

// Server is the fiber application answering journey queries.
type Server struct {
	app  *fiber.App
	deps Deps
}

// New builds the application and registers its routes.
func New(d Deps) *Server {
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Clock == nil {
		d.Clock = utils.SystemClock{}
	}
	if d.Realtime == nil {
		d.Realtime = staticSnapshot{gtfsrt.EmptySnapshot()}
	}
	s := &Server{
		app: fiber.New(fiber.Config{
			AppName:               "gtfs-journey",
			DisableStartupMessage: true,
			ReadTimeout:           10 * time.Second,
			WriteTimeout:          30 * time.Second,
			IdleTimeout:           60 * time.Second,
			ErrorHandler:          errorHandler,
		}),
		deps: d,
	}
	s.app.Use(recover.New())
	s.app.Use(s.requestLogger)
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/stops/suggest", s.handleSuggest)
	api.Get("/stops/resolve", s.handleResolve)
	api.Get("/trips", s.handleTrips)
	api.Get("/trips/:tripId/vehicle", s.handleVehicle)
	api.Get("/clusters", s.handleClusters)
	api.Get("/alerts", s.handleAlerts)
	api.Get("/realtime", s.handleRealtime)

	if s.deps.Metrics != nil {
		s.app.Get("/metrics", adaptor.HTTPHandler(s.deps.Metrics.Handler()))
	}
}

// App exposes the fiber application, e.g. for app.Test.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.deps.Logger.Info().Str("addr", addr).Msg("server listening")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	s.deps.Logger.Debug().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", c.Response().StatusCode()).
		Dur("took", time.Since(start)).
		Msg("request")
	return err
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if fe, ok := err.(*fiber.Error); ok {
		code = fe.Code
	}
	return c.Status(code).JSON(errorResponse{Error: err.Error()})
}

type staticSnapshot struct{ s *gtfsrt.Snapshot }

func (st staticSnapshot) Snapshot() *gtfsrt.Snapshot { return st.s }

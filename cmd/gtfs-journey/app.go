package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/theoremus-urban-solutions/gtfs-journey/config"
	"github.com/theoremus-urban-solutions/gtfs-journey/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-journey/gtfsrt"
	"github.com/theoremus-urban-solutions/gtfs-journey/metrics"
	"github.com/theoremus-urban-solutions/gtfs-journey/publisher"
	"github.com/theoremus-urban-solutions/gtfs-journey/resolver"
	"github.com/theoremus-urban-solutions/gtfs-journey/search"
	"github.com/theoremus-urban-solutions/gtfs-journey/server"
	"github.com/theoremus-urban-solutions/gtfs-journey/utils"
)

// app wires the components of one configured feed.
type app struct {
	gtfsCfg   config.GTFSConfig
	rtCfg     config.GTFSRTConfig
	loc       *time.Location
	logger    zerolog.Logger
	store     *gtfs.Store
	refresher *gtfsrt.Refresher
	resolver  *resolver.Resolver
	engine    *search.Engine
	metrics   *metrics.Collector
	publisher *publisher.NATSPublisher
}

func newApp(cfg *config.AppConfig, gtfsCfg config.GTFSConfig, rtCfg config.GTFSRTConfig, logger zerolog.Logger) (*app, error) {
	loc, err := gtfsCfg.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	a := &app{
		gtfsCfg: gtfsCfg,
		rtCfg:   rtCfg,
		loc:     loc,
		logger:  logger,
		store:   gtfs.NewStore(nil),
		metrics: metrics.NewCollector(rtCfg.RefreshInterval()),
	}
	if err := a.loadCatalog(); err != nil {
		return nil, err
	}

	cache := gtfsrt.NewMemoryCache()
	if rtCfg.CacheDir != "" {
		seeded := gtfsrt.SeedFromDir(cache, rtCfg.CacheDir)
		logger.Info().Str("dir", rtCfg.CacheDir).Int("feeds", len(seeded)).Msg("realtime cache seeded")
	}
	client := gtfsrt.NewClient(gtfsrt.FeedLocations{
		gtfsrt.TripUpdates:      rtCfg.TripUpdatesURL,
		gtfsrt.VehiclePositions: rtCfg.VehiclePositionsURL,
		gtfsrt.ServiceAlerts:    rtCfg.ServiceAlertsURL,
	}, rtCfg.Timeout())
	policy := &gtfsrt.FallbackPolicy{
		Primary: client,
		Cache:   cache,
		Retries: rtCfg.Retries,
		Timeout: rtCfg.Timeout(),
		Logger:  logger,
	}
	a.refresher = gtfsrt.NewRefresher(policy,
		gtfsrt.WithLogger(logger),
		gtfsrt.WithListener(a.metrics.ObserveSnapshot),
	)

	if cfg.NATS.URL != "" {
		p, err := publisher.Connect(cfg.NATS.URL, cfg.NATS.SubjectPrefix, a.metrics, logger)
		if err != nil {
			// positions are an optional side channel
			logger.Warn().Err(err).Msg("vehicle positions will not be published")
		} else {
			a.publisher = p
			a.refresher.Subscribe(p.PublishSnapshot)
		}
	}

	rc := cfg.Resolver
	var geocoder resolver.Geocoder
	if rc.GeocoderURL != "" {
		limited := resolver.NewRateLimitedGeocoder(
			resolver.NewNominatimGeocoder(rc.GeocoderURL, rc.UserAgent, rc.CountryCodes, rc.GeocodeTimeout()),
			rc.MinInterval(), nil)
		a.metrics.RegisterGeocoder(limited)
		geocoder = limited
	}
	a.resolver = resolver.New(a.store, resolver.Config{
		Geocoder:       geocoder,
		Qualifier:      rc.Qualifier,
		RegionalTokens: rc.RegionalTokens,
		Debounce:       rc.Debounce(),
		Logger:         logger,
	})
	a.engine = search.NewEngine(a.store)
	return a, nil
}

// loadCatalog reads the static feed and installs a fresh index. A failed
// load leaves the previous index in place.
func (a *app) loadCatalog() error {
	if a.gtfsCfg.StaticPath == "" {
		a.logger.Warn().Msg("no static GTFS path configured, serving an empty catalog")
		return nil
	}
	start := time.Now()
	cat, rep, err := gtfs.LoadCatalogFromPath(a.gtfsCfg.StaticPath)
	if err != nil {
		return fmt.Errorf("load gtfs %s: %w", a.gtfsCfg.StaticPath, err)
	}
	idx := a.store.Reload(cat)
	a.metrics.ObserveCatalog(idx, rep)
	a.logger.Info().
		Str("path", a.gtfsCfg.StaticPath).
		Int("stops", idx.StopCount()).
		Int("routes", idx.RouteCount()).
		Int("trips", idx.TripCount()).
		Int("skipped_rows", rep.Skipped()).
		Dur("took", time.Since(start)).
		Msg("schedule catalog loaded")
	return nil
}

func (a *app) server() *server.Server {
	return server.New(server.Deps{
		Store:    a.store,
		Resolver: a.resolver,
		Engine:   a.engine,
		Realtime: a.refresher,
		Metrics:  a.metrics,
		Location: a.loc,
		Logger:   a.logger,
		AgencyID: a.gtfsCfg.AgencyID,
	})
}

// journey resolves both endpoints and searches at t.
type journey struct {
	From     resolver.Resolution `json:"from"`
	To       resolver.Resolution `json:"to"`
	At       time.Time           `json:"at"`
	Snapshot string              `json:"snapshot_id"`
	Result   search.Result       `json:"result"`
}

func (a *app) search(ctx context.Context, from, to string, t time.Time) journey {
	j := journey{
		From: a.resolver.Resolve(ctx, resolver.Input{Text: from, Commit: true}),
		To:   a.resolver.Resolve(ctx, resolver.Input{Text: to, Commit: true}),
		At:   t,
	}
	snap := a.refresher.Snapshot()
	j.Snapshot = snap.ID
	idx := a.store.Current()

	start := time.Now()
	j.Result = a.engine.Search(search.Query{
		OriginStopID:      j.From.StopID,
		DestinationStopID: j.To.StopID,
		NowSec:            utils.SecondsSinceMidnight(t),
		ActiveServices:    idx.ActiveServicesOn(t),
		Delays:            snap.Delays,
		Realtime:          snap,
	})
	a.metrics.ObserveSearch(string(j.Result.State), time.Since(start))
	return j
}

func (a *app) close() {
	a.resolver.Close()
	if a.publisher != nil {
		a.publisher.Close()
	}
}

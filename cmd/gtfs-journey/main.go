package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/theoremus-urban-solutions/gtfs-journey/config"
	"github.com/theoremus-urban-solutions/gtfs-journey/internal"
)

func main() {
	mode := flag.String("mode", "oneshot", "oneshot|serve")
	configPath := flag.String("config", "", "config file (default: config.yml)")
	feedName := flag.String("feed", "", "feed name from config.feeds[]")
	staticPath := flag.String("gtfs", "", "GTFS zip, directory or table (overrides config)")
	tripUpdates := flag.String("tripUpdates", "", "GTFS-RT TripUpdates URL (overrides config)")
	vehiclePositions := flag.String("vehiclePositions", "", "GTFS-RT VehiclePositions URL (overrides config)")
	serviceAlerts := flag.String("serviceAlerts", "", "GTFS-RT ServiceAlerts URL (overrides config)")
	modules := flag.String("modules", "tu,vp,alerts", "Comma-separated GTFS-RT modules to fetch: tu,vp,alerts")
	from := flag.String("from", "", "origin stop id, name, code or address (oneshot)")
	to := flag.String("to", "", "destination stop id, name, code or address (oneshot)")
	at := flag.String("at", "", "search time, RFC3339 (oneshot, default now)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := internal.InitLogging(cfg.Logging)

	gtfsCfg, rtCfg := cfg.SelectFeed(*feedName)
	if *staticPath != "" {
		gtfsCfg.StaticPath = *staticPath
	}
	override(&rtCfg.TripUpdatesURL, *tripUpdates)
	override(&rtCfg.VehiclePositionsURL, *vehiclePositions)
	override(&rtCfg.ServiceAlertsURL, *serviceAlerts)

	// disable URLs for modules not requested
	mset := map[string]bool{}
	for _, m := range strings.Split(*modules, ",") {
		if m = strings.TrimSpace(strings.ToLower(m)); m != "" {
			mset[m] = true
		}
	}
	if !mset["tu"] {
		rtCfg.TripUpdatesURL = ""
	}
	if !mset["vp"] {
		rtCfg.VehiclePositionsURL = ""
	}
	if !mset["alerts"] {
		rtCfg.ServiceAlertsURL = ""
	}

	a, err := newApp(cfg, gtfsCfg, rtCfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}
	defer a.close()

	switch *mode {
	case "oneshot":
		if err := oneshot(a, *from, *to, *at); err != nil {
			logger.Fatal().Err(err).Msg("oneshot failed")
		}
	case "serve":
		serve(a, cfg.Server.Port)
	default:
		logger.Fatal().Str("mode", *mode).Msg("unknown mode")
	}
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func oneshot(a *app, from, to, at string) error {
	t := time.Now().In(a.loc)
	if at != "" {
		parsed, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return fmt.Errorf("invalid -at: %w", err)
		}
		t = parsed.In(a.loc)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a.refresher.Refresh(ctx)
	buf, err := json.MarshalIndent(a.search(ctx, from, to, t), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(buf))
	return nil
}

// serve runs the refresher and HTTP server until SIGINT/SIGTERM. SIGHUP
// reloads the static catalog.
func serve(a *app, port int) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go a.refresher.Run(ctx, a.rtCfg.RefreshInterval())

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				if err := a.loadCatalog(); err != nil {
					a.logger.Error().Err(err).Msg("catalog reload failed, keeping previous index")
				}
			}
		}
	}()

	srv := a.server()
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Listen(fmt.Sprintf(":%d", port)) }()

	select {
	case <-ctx.Done():
		a.logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error().Err(err).Msg("server error")
		}
	}
	if err := srv.Shutdown(10 * time.Second); err != nil {
		a.logger.Error().Err(err).Msg("server shutdown error")
		return
	}
	a.logger.Info().Msg("server shut down successfully")
}

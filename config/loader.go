package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPaths are tried in order when Load is given no path.
var DefaultPaths = []string{"config.yml", "./config/config.yml"}

// Defaults returns the configuration used for keys absent from the file.
func Defaults() AppConfig {
	return AppConfig{
		Server: ServerConfig{Port: 16181},
		GTFSRT: GTFSRTConfig{
			RefreshIntervalMS: 30000,
			TimeoutMS:         10000,
			Retries:           2,
		},
		Resolver: ResolverConfig{
			GeocoderURL:      "https://nominatim.openstreetmap.org/search",
			UserAgent:        "gtfs-journey/1.0",
			CountryCodes:     "ca",
			Qualifier:        "Oshawa, Ontario, Canada",
			GeocodeTimeoutMS: 10000,
			MinIntervalMS:    1000,
			DebounceMS:       600,
		},
		NATS:    NATSConfig{SubjectPrefix: "vehicles"},
		Logging: LoggingConfig{Level: "info", Console: true, MaxSizeMB: 10, MaxBackups: 5, MaxAgeDays: 30},
	}
}

// Load reads and validates the application configuration. An explicit path
// must exist; with an empty path the DefaultPaths are tried and defaults are
// used when none exists. A .env file in the working directory and the
// process environment override file values.
func Load(path string) (*AppConfig, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Defaults()
	data, err := readConfigFile(path)
	if err != nil {
		return nil, err
	}
	if data != nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		return data, nil
	}
	for _, p := range DefaultPaths {
		data, err := os.ReadFile(p)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", p, err)
		}
	}
	return nil, nil
}

// applyEnv overrides file values with non-empty environment variables.
func applyEnv(cfg *AppConfig) error {
	str := map[string]*string{
		"GTFS_STATIC_PATH":             &cfg.GTFS.StaticPath,
		"TZ":                           &cfg.GTFS.Timezone,
		"GTFSRT_TRIP_UPDATES_URL":      &cfg.GTFSRT.TripUpdatesURL,
		"GTFSRT_VEHICLE_POSITIONS_URL": &cfg.GTFSRT.VehiclePositionsURL,
		"GTFSRT_SERVICE_ALERTS_URL":    &cfg.GTFSRT.ServiceAlertsURL,
		"GEOCODER_URL":                 &cfg.Resolver.GeocoderURL,
		"NATS_URL":                     &cfg.NATS.URL,
		"LOG_LEVEL":                    &cfg.Logging.Level,
	}
	for key, dst := range str {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)

	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT: %q", v)
		}
		cfg.Server.Port = port
	}
	return nil
}

// SelectFeed chooses a feed by name; fallback to first; if none, use
// top-level GTFS/GTFSRT. Timing fields a feed leaves unset are inherited
// from the top-level realtime section.
func (c *AppConfig) SelectFeed(name string) (GTFSConfig, GTFSRTConfig) {
	if len(c.Feeds) == 0 {
		return c.GTFS, c.GTFSRT
	}
	f := c.Feeds[0]
	for _, cand := range c.Feeds {
		if name != "" && cand.Name == name {
			f = cand
			break
		}
	}
	rt := f.GTFSRT
	if rt.RefreshIntervalMS == 0 {
		rt.RefreshIntervalMS = c.GTFSRT.RefreshIntervalMS
	}
	if rt.TimeoutMS == 0 {
		rt.TimeoutMS = c.GTFSRT.TimeoutMS
	}
	if rt.Retries == 0 {
		rt.Retries = c.GTFSRT.Retries
	}
	if f.GTFS.Timezone == "" {
		f.GTFS.Timezone = c.GTFS.Timezone
	}
	return f.GTFS, rt
}

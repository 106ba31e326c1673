package config

import "time"

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int `yaml:"port" validate:"gt=0,lte=65535"`
}

// GTFSConfig contains GTFS static feed configuration
type GTFSConfig struct {
	// StaticPath is a GTFS zip or a directory of .txt tables.
	StaticPath string `yaml:"staticPath"`
	AgencyID   string `yaml:"agency_id" validate:"omitempty"`
	// Timezone names the IANA zone services are resolved in; empty means local.
	Timezone string `yaml:"timezone"`
}

// GTFSRTConfig contains GTFS-Realtime feed configuration. Locations are
// http(s) URLs or file paths.
type GTFSRTConfig struct {
	TripUpdatesURL      string `yaml:"tripUpdatesURL"`
	VehiclePositionsURL string `yaml:"vehiclePositionsURL"`
	ServiceAlertsURL    string `yaml:"serviceAlertsURL"`
	RefreshIntervalMS   int    `yaml:"refreshIntervalMS" validate:"gte=0"`
	TimeoutMS           int    `yaml:"timeoutMS" validate:"gte=0"`
	Retries             int    `yaml:"retries" validate:"gte=0,lte=10"`
	// CacheDir seeds the fallback cache with previously saved payloads.
	CacheDir string `yaml:"cacheDir"`
}

// ResolverConfig contains stop resolution and geocoding configuration
type ResolverConfig struct {
	GeocoderURL      string   `yaml:"geocoderURL" validate:"omitempty,url"`
	UserAgent        string   `yaml:"userAgent"`
	CountryCodes     string   `yaml:"countryCodes"`
	Qualifier        string   `yaml:"qualifier"`
	RegionalTokens   []string `yaml:"regionalTokens"`
	GeocodeTimeoutMS int      `yaml:"geocodeTimeoutMS" validate:"gte=0"`
	MinIntervalMS    int      `yaml:"minIntervalMS" validate:"gte=0"`
	DebounceMS       int      `yaml:"debounceMS" validate:"gte=0"`
}

// NATSConfig contains the optional vehicle position publisher configuration
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subjectPrefix" validate:"required_with=URL"`
}

// LoggingConfig contains log level and output configuration
type LoggingConfig struct {
	Level      string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Console    bool   `yaml:"console"`
	FilePath   string `yaml:"filePath"`
	MaxSizeMB  int    `yaml:"maxSizeMB" validate:"gte=0"`
	MaxBackups int    `yaml:"maxBackups" validate:"gte=0"`
	MaxAgeDays int    `yaml:"maxAgeDays" validate:"gte=0"`
	Compress   bool   `yaml:"compress"`
}

// Feed represents a single named GTFS feed configuration
type Feed struct {
	Name   string       `yaml:"name" validate:"required"`
	GTFS   GTFSConfig   `yaml:"gtfs" validate:"required"`
	GTFSRT GTFSRTConfig `yaml:"gtfsrt" validate:"required"`
}

// AppConfig is the root configuration structure
type AppConfig struct {
	Server   ServerConfig   `yaml:"server" validate:"required"`
	GTFS     GTFSConfig     `yaml:"gtfs"`
	GTFSRT   GTFSRTConfig   `yaml:"gtfsrt"`
	Resolver ResolverConfig `yaml:"resolver"`
	NATS     NATSConfig     `yaml:"nats"`
	Logging  LoggingConfig  `yaml:"logging"`
	Feeds    []Feed         `yaml:"feeds" validate:"dive"`
}

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }

func (c GTFSRTConfig) RefreshInterval() time.Duration { return ms(c.RefreshIntervalMS) }

func (c GTFSRTConfig) Timeout() time.Duration { return ms(c.TimeoutMS) }

func (c ResolverConfig) GeocodeTimeout() time.Duration { return ms(c.GeocodeTimeoutMS) }

func (c ResolverConfig) MinInterval() time.Duration { return ms(c.MinIntervalMS) }

func (c ResolverConfig) Debounce() time.Duration { return ms(c.DebounceMS) }

// Location loads the configured timezone, falling back to time.Local.
func (c GTFSConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

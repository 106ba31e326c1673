package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/theoremus-urban-solutions/gtfs-journey/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-journey/gtfsrt"
)

// Collector owns a private registry with the service's metrics.
type Collector struct {
	reg *prometheus.Registry

	CatalogStops       prometheus.Gauge
	CatalogTrips       prometheus.Gauge
	CatalogSkippedRows *prometheus.GaugeVec // table label

	Refreshes    prometheus.Counter
	FeedSource   *prometheus.GaugeVec // feed, source labels; 1 marks the current source
	DelayedTrips prometheus.Gauge
	Vehicles     prometheus.Gauge
	Alerts       prometheus.Gauge

	Searches       *prometheus.CounterVec // state label
	SearchDuration prometheus.Histogram

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	RefreshInterval prometheus.Gauge // seconds
}

func NewCollector(refreshInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		CatalogStops: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_catalog_stops",
			Help: "Stops in the installed schedule index.",
		}),
		CatalogTrips: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_catalog_trips",
			Help: "Trips in the installed schedule index.",
		}),
		CatalogSkippedRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "journey_catalog_skipped_rows",
			Help: "Rows rejected by the last schedule load.",
		}, []string{"table"}),
		Refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "journey_realtime_refreshes_total",
			Help: "Realtime snapshots installed.",
		}),
		FeedSource: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "journey_realtime_feed_source",
			Help: "Provenance of each feed in the current snapshot (1 = active source).",
		}, []string{"feed", "source"}),
		DelayedTrips: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_realtime_delay_entries",
			Help: "Trips with a realtime delay in the current snapshot.",
		}),
		Vehicles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_realtime_vehicles",
			Help: "Vehicle positions in the current snapshot.",
		}),
		Alerts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_realtime_alerts",
			Help: "Service alerts in the current snapshot.",
		}),
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "journey_searches_total",
			Help: "Trip searches by outcome.",
		}, []string{"state"}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "journey_search_duration_seconds",
			Help:    "Duration of trip searches.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "journey_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "journey_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "journey_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		RefreshInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "journey_realtime_refresh_interval_seconds",
			Help: "Realtime refresh interval in seconds.",
		}),
	}

	reg.MustRegister(
		c.CatalogStops, c.CatalogTrips, c.CatalogSkippedRows,
		c.Refreshes, c.FeedSource, c.DelayedTrips, c.Vehicles, c.Alerts,
		c.Searches, c.SearchDuration,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.RefreshInterval,
	)
	c.RefreshInterval.Set(refreshInterval.Seconds())
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// ObserveCatalog records the size of a freshly installed index and the rows
// its load rejected.
func (c *Collector) ObserveCatalog(idx *gtfs.Index, rep gtfs.LoadReport) {
	c.CatalogStops.Set(float64(idx.StopCount()))
	c.CatalogTrips.Set(float64(idx.TripCount()))
	for table, tr := range rep.ByTable() {
		c.CatalogSkippedRows.WithLabelValues(table).Set(float64(tr.Skipped))
	}
}

// ObserveSnapshot is a gtfsrt.SnapshotListener.
func (c *Collector) ObserveSnapshot(s *gtfsrt.Snapshot) {
	c.Refreshes.Inc()
	c.DelayedTrips.Set(float64(len(s.Delays)))
	c.Vehicles.Set(float64(len(s.Vehicles)))
	c.Alerts.Set(float64(len(s.Alerts)))
	for _, kind := range gtfsrt.AllFeeds {
		for _, src := range []gtfsrt.Source{gtfsrt.SourceLive, gtfsrt.SourceCache, gtfsrt.SourceEmpty} {
			v := 0.0
			if s.Sources[kind] == src {
				v = 1
			}
			c.FeedSource.WithLabelValues(string(kind), string(src)).Set(v)
		}
	}
}

// ObserveSearch records one search outcome.
func (c *Collector) ObserveSearch(state string, d time.Duration) {
	c.Searches.WithLabelValues(state).Inc()
	c.SearchDuration.Observe(d.Seconds())
}

// GeocoderStats is satisfied by *resolver.RateLimitedGeocoder.
type GeocoderStats interface {
	Requests() uint64
	CacheHits() uint64
}

// RegisterGeocoder exports the geocoder's request and cache-hit counters.
func (c *Collector) RegisterGeocoder(g GeocoderStats) {
	c.reg.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "journey_geocode_requests_total",
			Help: "Geocoding requests sent upstream.",
		}, func() float64 { return float64(g.Requests()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name: "journey_geocode_cache_hits_total",
			Help: "Geocoding queries answered from cache.",
		}, func() float64 { return float64(g.CacheHits()) }),
	)
}

// publisher.Metrics

func (c *Collector) NATSPublishedInc() { c.NATSPublished.Inc() }

func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }

func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }

func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
		return
	}
	c.NATSConnected.Set(0)
}

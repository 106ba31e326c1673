package publisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/theoremus-urban-solutions/gtfs-journey/gtfsrt"
)

// Metrics receives publish outcomes. *metrics.Collector implements it.
type Metrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

// Conn is the subset of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Close()
}

// NATSPublisher fans realtime vehicle positions out on NATS subjects
// "<prefix>.<route>.<trip>".
type NATSPublisher struct {
	nc      Conn
	prefix  string
	metrics Metrics
	logger  zerolog.Logger
}

// Connect dials url and returns a publisher on the connection.
func Connect(url, prefix string, m Metrics, logger zerolog.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("gtfs-journey"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			logger.Info().Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			logger.Info().Msg("nats closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return New(nc, prefix, m, logger), nil
}

// New wraps an established connection.
func New(nc Conn, prefix string, m Metrics, logger zerolog.Logger) *NATSPublisher {
	return &NATSPublisher{nc: nc, prefix: subjectToken(prefix), metrics: m, logger: logger}
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		_ = p.nc.Drain()
		p.nc.Close()
	}
}

// PositionMessage is the JSON body published per vehicle.
type PositionMessage struct {
	SnapshotID string    `json:"snapshotId"`
	VehicleID  string    `json:"vehicleId"`
	TripID     string    `json:"tripId"`
	RouteID    string    `json:"routeId"`
	Timestamp  time.Time `json:"timestamp"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Bearing    float64   `json:"bearing"`
	DelaySec   int32     `json:"delaySec"`
}

// Subject returns the subject a vehicle on routeID/tripID is published on.
func (p *NATSPublisher) Subject(routeID, tripID string) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, subjectToken(routeID), subjectToken(tripID))
}

func (p *NATSPublisher) PublishPosition(routeID, tripID string, msg PositionMessage) error {
	subject := p.Subject(routeID, tripID)
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	return err
}

// PublishSnapshot publishes every vehicle position of s. It is a
// gtfsrt.SnapshotListener; failures are logged and counted.
func (p *NATSPublisher) PublishSnapshot(s *gtfsrt.Snapshot) {
	failed := 0
	for _, v := range s.Vehicles {
		ts := s.FetchedAt
		if v.Timestamp > 0 {
			ts = time.Unix(v.Timestamp, 0).UTC()
		}
		msg := PositionMessage{
			SnapshotID: s.ID,
			VehicleID:  v.ID,
			TripID:     v.TripID,
			RouteID:    v.RouteID,
			Timestamp:  ts,
			Lat:        v.Lat,
			Lon:        v.Lon,
			Bearing:    v.Bearing,
			DelaySec:   s.DelayFor(v.TripID),
		}
		if err := p.PublishPosition(v.RouteID, v.TripID, msg); err != nil {
			failed++
			p.logger.Debug().Err(err).Str("vehicle", v.ID).Msg("publish failed")
		}
	}
	if failed > 0 {
		p.logger.Warn().Int("failed", failed).Int("vehicles", len(s.Vehicles)).Msg("vehicle positions not fully published")
	}
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}

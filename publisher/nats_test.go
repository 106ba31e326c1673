package publisher

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/gtfs-journey/gtfsrt"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	mu      sync.Mutex
	msgs    []published
	failOn  string
	drained bool
	closed  bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if subject == f.failOn {
		return errors.New("nats: connection closed")
	}
	f.msgs = append(f.msgs, published{subject, data})
	return nil
}

func (f *fakeConn) Drain() error { f.drained = true; return nil }
func (f *fakeConn) Close()       { f.closed = true }

type countingMetrics struct {
	ok, errs, observed int
	connected          bool
}

func (m *countingMetrics) NATSPublishedInc()            { m.ok++ }
func (m *countingMetrics) NATSPublishErrInc()           { m.errs++ }
func (m *countingMetrics) PublishObserve(time.Duration) { m.observed++ }
func (m *countingMetrics) NATSSetConnected(c bool)      { m.connected = c }

func TestSubjectToken(t *testing.T) {
	tests := []struct{ in, want string }{
		{"900", "900"},
		{" 401 A ", "401_A"},
		{"route.1/2", "route_1_2"},
		{"*>", "__"},
		{"", "_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, subjectToken(tt.in), "%q", tt.in)
	}
}

func TestPublishSnapshot(t *testing.T) {
	conn := &fakeConn{failOn: "vehicles.R2.T2"}
	m := &countingMetrics{}
	p := New(conn, "vehicles", m, zerolog.Nop())

	fetched := time.Unix(1718629000, 0).UTC()
	snap := gtfsrt.NewSnapshot("snap-1", fetched,
		[]gtfsrt.TripDelay{{TripID: "T1", DelaySec: 120}},
		[]gtfsrt.VehiclePosition{
			{ID: "bus-1", TripID: "T1", RouteID: "R1", Lat: 43.9, Lon: -78.86, Bearing: 90, Timestamp: 1718629200},
			{ID: "bus-2", TripID: "T2", RouteID: "R2", Lat: 43.8, Lon: -78.8},
			{ID: "bus-3", TripID: "T 3", RouteID: "R.3"},
		}, nil, nil)
	p.PublishSnapshot(snap)

	require.Len(t, conn.msgs, 2)
	assert.Equal(t, "vehicles.R1.T1", conn.msgs[0].subject)
	assert.Equal(t, "vehicles.R_3.T_3", conn.msgs[1].subject)

	var msg PositionMessage
	require.NoError(t, json.Unmarshal(conn.msgs[0].data, &msg))
	assert.Equal(t, "snap-1", msg.SnapshotID)
	assert.Equal(t, "bus-1", msg.VehicleID)
	assert.Equal(t, int32(120), msg.DelaySec)
	assert.Equal(t, time.Unix(1718629200, 0).UTC(), msg.Timestamp)

	require.NoError(t, json.Unmarshal(conn.msgs[1].data, &msg))
	assert.Equal(t, fetched, msg.Timestamp, "falls back to the snapshot time")

	assert.Equal(t, 2, m.ok)
	assert.Equal(t, 1, m.errs)
	assert.Equal(t, 3, m.observed)

	p.Close()
	assert.True(t, conn.drained)
	assert.True(t, conn.closed)
}

func TestPublishPosition_NoMetrics(t *testing.T) {
	conn := &fakeConn{}
	p := New(conn, "rt.vehicles", nil, zerolog.Nop())
	require.NoError(t, p.PublishPosition("R1", "T1", PositionMessage{TripID: "T1"}))
	assert.Equal(t, "rt_vehicles.R1.T1", conn.msgs[0].subject)
}

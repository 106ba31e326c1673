package gtfsrt_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/gtfs-journey/gtfsrt"
)

func TestClient_FetchHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tu":
			assert.NotEmpty(t, r.Header.Get("User-Agent"))
			_, _ = w.Write([]byte("payload"))
		default:
			http.Error(w, "nope", http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	c := gtfsrt.NewClient(gtfsrt.FeedLocations{
		gtfsrt.TripUpdates:      srv.URL + "/tu",
		gtfsrt.VehiclePositions: srv.URL + "/down",
	}, time.Second)

	b, err := c.Fetch(context.Background(), gtfsrt.TripUpdates)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(b))

	_, err = c.Fetch(context.Background(), gtfsrt.VehiclePositions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 503")

	_, err = c.Fetch(context.Background(), gtfsrt.ServiceAlerts)
	assert.ErrorIs(t, err, gtfsrt.ErrFeedNotConfigured)
}

func TestClient_FetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := gtfsrt.NewClient(nil, 50*time.Millisecond)
	start := time.Now()
	_, err := c.FetchURL(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestClient_FetchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerts.pb")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o644))

	c := gtfsrt.NewClient(gtfsrt.FeedLocations{gtfsrt.ServiceAlerts: "file://" + path}, 0)
	b, err := c.Fetch(context.Background(), gtfsrt.ServiceAlerts)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(b))

	_, err = c.FetchURL(context.Background(), filepath.Join(t.TempDir(), "missing.pb"))
	assert.Error(t, err)
}

package gtfs_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/gtfs-journey/gtfs"
)

func TestHaversineKM(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want, tol              float64
	}{
		{"same point", 43.9, -78.8, 43.9, -78.8, 0, 1e-9},
		{"one degree of latitude", 0, 0, 1, 0, 111.195, 0.01},
		{"Toronto to Oshawa", 43.6532, -79.3832, 43.8971, -78.8658, 49.61, 0.01},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := gtfs.HaversineKM(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.want, got, tt.tol)
		})
	}
}

func TestSpatialIndex_Nearest(t *testing.T) {
	stops := []gtfs.Stop{
		{ID: "A", Lat: 43.8971, Lon: -78.8658},
		{ID: "B", Lat: 43.8990, Lon: -78.8620},
		{ID: "C", Lat: 43.8890, Lon: -78.8800},
		{ID: "FAR", Lat: 45.4215, Lon: -75.6972},
	}
	sp := gtfs.NewSpatialIndex(stops)
	require.Equal(t, 4, sp.Len())

	near, km, ok := sp.Nearest(43.8972, -78.8657)
	require.True(t, ok)
	assert.Equal(t, "A", near.ID)
	assert.Less(t, km, 0.05)

	// far away from every stop; the window has to grow
	near, km, ok = sp.Nearest(49.0, -70.0)
	require.True(t, ok)
	assert.Equal(t, "FAR", near.ID)
	assert.InDelta(t, gtfs.HaversineKM(49.0, -70.0, 45.4215, -75.6972), km, 1e-9)

	// brute force agrees on a grid of sample points
	for lat := 43.85; lat <= 43.95; lat += 0.01 {
		for lon := -78.95; lon <= -78.80; lon += 0.01 {
			got, gotKM, _ := sp.Nearest(lat, lon)
			bestKM := math.Inf(1)
			for _, s := range stops {
				bestKM = math.Min(bestKM, gtfs.HaversineKM(lat, lon, s.Lat, s.Lon))
			}
			assert.InDelta(t, bestKM, gotKM, 1e-9, "point %.2f,%.2f -> %s", lat, lon, got.ID)
		}
	}
}

func TestSpatialIndex_NearestTieBreaksOnID(t *testing.T) {
	sp := gtfs.NewSpatialIndex([]gtfs.Stop{
		{ID: "Z", Lat: 0, Lon: 11},
		{ID: "M", Lat: 0, Lon: 9},
	})
	got, _, ok := sp.Nearest(0, 10)
	require.True(t, ok)
	assert.Equal(t, "M", got.ID)
}

func TestSpatialIndex_Empty(t *testing.T) {
	var nilIndex *gtfs.SpatialIndex
	assert.Zero(t, nilIndex.Len())
	assert.Nil(t, nilIndex.InBounds(-90, -180, 90, 180))

	_, _, ok := gtfs.NewSpatialIndex(nil).Nearest(0, 0)
	assert.False(t, ok)
}

func TestSpatialIndex_InBounds(t *testing.T) {
	sp := gtfs.NewSpatialIndex([]gtfs.Stop{
		{ID: "in", Lat: 43.9, Lon: -78.86},
		{ID: "edge", Lat: 44.0, Lon: -78.8},
		{ID: "out", Lat: 44.5, Lon: -78.86},
	})
	// corners given in reverse order
	got := sp.InBounds(44.0, -78.8, 43.8, -78.9)
	ids := map[string]bool{}
	for _, s := range got {
		ids[s.ID] = true
	}
	assert.Equal(t, map[string]bool{"in": true, "edge": true}, ids)
}

func TestNearestSegmentProjection(t *testing.T) {
	line := [][2]float64{{0, 0}, {1, 0}, {1, 1}}

	idx, frac, pt := gtfs.NearestSegmentProjection(line, [2]float64{0.25, 0.1})
	assert.Equal(t, 0, idx)
	assert.InDelta(t, 0.25, frac, 1e-9)
	assert.InDelta(t, 0.25, pt[0], 1e-9)
	assert.InDelta(t, 0.0, pt[1], 1e-9)

	idx, frac, _ = gtfs.NearestSegmentProjection(line, [2]float64{1.2, 0.75})
	assert.Equal(t, 1, idx)
	assert.InDelta(t, 0.75, frac, 1e-9)

	idx, frac, _ = gtfs.NearestSegmentProjection(line, [2]float64{-1, -1})
	assert.Equal(t, 0, idx)
	assert.Zero(t, frac)
}

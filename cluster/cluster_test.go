package cluster_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theoremus-urban-solutions/gtfs-journey/cluster"
	"github.com/theoremus-urban-solutions/gtfs-journey/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-journey/internal/fixtures"
)

func TestCellSize(t *testing.T) {
	tests := []struct {
		zoom float64
		want float64
	}{
		{12, 0.04},
		{13, 0.02},
		{11, 0.08},
		{20, 0.005},
		{2, 1.0},
		{0, 1.0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, cluster.CellSize(tt.zoom), 1e-12, "zoom %v", tt.zoom)
	}
}

func TestCluster_GroupsByCell(t *testing.T) {
	stops := []gtfs.Stop{
		{ID: "b", Lat: 0.01, Lon: 0.01},
		{ID: "a", Lat: 0.03, Lon: 0.03},
		{ID: "c", Lat: 0.05, Lon: 0.01},
		{ID: "d", Lat: -0.01, Lon: 0.01},
	}
	groups := cluster.Cluster(stops, 12)
	require.Len(t, groups, 3)

	// rows -1, 0, 1 at 0.04 degree cells
	assert.Equal(t, []string{"d"}, groups[0].StopIDs)
	assert.Equal(t, -0.01, groups[0].Lat)

	assert.Equal(t, 2, groups[1].Count)
	assert.Equal(t, []string{"a", "b"}, groups[1].StopIDs)
	assert.InDelta(t, 0.02, groups[1].Lat, 1e-12)
	assert.InDelta(t, 0.02, groups[1].Lon, 1e-12)

	assert.Equal(t, []string{"c"}, groups[2].StopIDs)
	assert.Equal(t, 0.05, groups[2].Lat)
	assert.Equal(t, 0.01, groups[2].Lon)
}

func TestCluster_ZoomSplitsGroups(t *testing.T) {
	stops := fixtures.Index(t, fixtures.Corridor()).AllStops()

	coarse := cluster.Cluster(stops, 4)
	require.Len(t, coarse, 1)
	assert.Equal(t, len(stops), coarse[0].Count)

	fine := cluster.Cluster(stops, 18)
	assert.Len(t, fine, len(stops))
	total := 0
	for _, g := range fine {
		total += g.Count
		assert.Equal(t, 1, g.Count)
	}
	assert.Equal(t, len(stops), total)
}

func TestCluster_Empty(t *testing.T) {
	assert.Empty(t, cluster.Cluster(nil, 12))
}

func TestClusterInBounds(t *testing.T) {
	idx := fixtures.Index(t, fixtures.ThreeStops())

	// a box around A and B, excluding C further south-west
	groups := cluster.ClusterInBounds(idx.Spatial(), cluster.Bounds{
		MinLat: 43.900, MinLon: -78.86, MaxLat: 43.895, MaxLon: -78.87,
	}, 4)
	require.Len(t, groups, 1)
	assert.Equal(t, []string{"A", "B"}, groups[0].StopIDs)

	assert.Empty(t, cluster.ClusterInBounds(idx.Spatial(), cluster.Bounds{MinLat: 10, MinLon: 10, MaxLat: 11, MaxLon: 11}, 12))
	assert.Empty(t, cluster.ClusterInBounds(gtfs.NewIndex(nil).Spatial(), cluster.Bounds{}, 12))
}

package cluster

import (
	"math"
	"sort"

	"github.com/theoremus-urban-solutions/gtfs-journey/gtfs"
)

const (
	baseCellDeg = 0.04
	baseZoom    = 12
	minCellDeg  = 0.005
	maxCellDeg  = 1.0
)

// Group is one map marker standing for the stops sharing a grid cell.
type Group struct {
	Lat     float64  `json:"lat"`
	Lon     float64  `json:"lon"`
	Count   int      `json:"count"`
	StopIDs []string `json:"stop_ids"`

	row, col int64
}

// Bounds is a map viewport. Corners may be given in any order.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// CellSize returns the grid cell edge in degrees for a map zoom level. Each
// zoom step halves the cell.
func CellSize(zoom float64) float64 {
	size := baseCellDeg * math.Pow(2, baseZoom-zoom)
	return math.Min(maxCellDeg, math.Max(minCellDeg, size))
}

type cellKey struct{ row, col int64 }

// Cluster buckets stops into square cells sized for zoom. Single-stop groups
// keep the stop's coordinates; larger groups sit at the mean position of
// their members. Groups are ordered by cell, south-west first.
func Cluster(stops []gtfs.Stop, zoom float64) []Group {
	size := CellSize(zoom)
	type acc struct {
		latSum, lonSum float64
		ids            []string
	}
	cells := map[cellKey]*acc{}
	for _, s := range stops {
		k := cellKey{
			row: int64(math.Floor(s.Lat / size)),
			col: int64(math.Floor(s.Lon / size)),
		}
		a := cells[k]
		if a == nil {
			a = &acc{}
			cells[k] = a
		}
		a.latSum += s.Lat
		a.lonSum += s.Lon
		a.ids = append(a.ids, s.ID)
	}

	out := make([]Group, 0, len(cells))
	for k, a := range cells {
		sort.Strings(a.ids)
		n := float64(len(a.ids))
		out = append(out, Group{
			Lat:     a.latSum / n,
			Lon:     a.lonSum / n,
			Count:   len(a.ids),
			StopIDs: a.ids,
			row:     k.row,
			col:     k.col,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].row != out[j].row {
			return out[i].row < out[j].row
		}
		return out[i].col < out[j].col
	})
	return out
}

// ClusterInBounds clusters only the stops inside the viewport.
func ClusterInBounds(spatial *gtfs.SpatialIndex, b Bounds, zoom float64) []Group {
	stops := spatial.InBounds(b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
	// tree order is unspecified
	sort.Slice(stops, func(i, j int) bool { return stops[i].ID < stops[j].ID })
	return Cluster(stops, zoom)
}

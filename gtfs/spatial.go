package gtfs

import (
	"math"

	"github.com/tidwall/rtree"
)

const (
	earthRadiusKM = 6371.0
	kmPerDegree   = earthRadiusKM * math.Pi / 180
)

// HaversineKM returns the great-circle distance between two points in km.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	la1 := lat1 * math.Pi / 180
	la2 := lat2 * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(la1)*math.Cos(la2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

// SpatialIndex is an R-tree over stop coordinates, keyed [lat, lon].
type SpatialIndex struct {
	tree  rtree.RTree
	count int
}

// NewSpatialIndex inserts every stop into a fresh tree.
func NewSpatialIndex(stops []Stop) *SpatialIndex {
	s := &SpatialIndex{}
	for _, st := range stops {
		pt := [2]float64{st.Lat, st.Lon}
		s.tree.Insert(pt, pt, st)
	}
	s.count = len(stops)
	return s
}

func (s *SpatialIndex) Len() int {
	if s == nil {
		return 0
	}
	return s.count
}

// InBounds returns the stops inside the box. Corners may be given in any
// order.
func (s *SpatialIndex) InBounds(minLat, minLon, maxLat, maxLon float64) []Stop {
	if s.Len() == 0 {
		return nil
	}
	minLat, maxLat = math.Min(minLat, maxLat), math.Max(minLat, maxLat)
	minLon, maxLon = math.Min(minLon, maxLon), math.Max(minLon, maxLon)
	var out []Stop
	s.tree.Search([2]float64{minLat, minLon}, [2]float64{maxLat, maxLon},
		func(min, max [2]float64, data interface{}) bool {
			if st, ok := data.(Stop); ok {
				out = append(out, st)
			}
			return true
		})
	return out
}

// Nearest returns the stop closest to (lat, lon) by haversine distance,
// preferring the lower id on ties.
func (s *SpatialIndex) Nearest(lat, lon float64) (Stop, float64, bool) {
	if s.Len() == 0 {
		return Stop{}, 0, false
	}
	var best Stop
	bestKM := math.Inf(1)
	found := false
	consider := func(min, max [2]float64, data interface{}) bool {
		st, ok := data.(Stop)
		if !ok {
			return true
		}
		d := HaversineKM(lat, lon, st.Lat, st.Lon)
		if !found || d < bestKM || (d == bestKM && st.ID < best.ID) {
			best, bestKM, found = st, d, true
		}
		return true
	}

	// grow the window until it holds a stop
	for half := 0.01; !found; half *= 4 {
		s.searchWindow(lat, half, lon, half, consider)
		if half > 360 {
			break
		}
	}
	if !found {
		return Stop{}, 0, false
	}

	// anything closer than best lies within bestKM of the point
	dLat := bestKM/kmPerDegree + 1e-9
	dLon := 360.0
	if c := math.Cos((math.Abs(lat) + dLat) * math.Pi / 180); c > 1e-6 {
		dLon = dLat / c
	}
	s.searchWindow(lat, dLat, lon, dLon, consider)
	return best, bestKM, true
}

func (s *SpatialIndex) searchWindow(lat, dLat, lon, dLon float64, iter func(min, max [2]float64, data interface{}) bool) {
	minLat, maxLat := math.Max(lat-dLat, -90), math.Min(lat+dLat, 90)
	minLon, maxLon := lon-dLon, lon+dLon
	if minLon < -180 || maxLon > 180 {
		// window wraps the antimeridian
		minLon, maxLon = -180, 180
	}
	s.tree.Search([2]float64{minLat, minLon}, [2]float64{maxLat, maxLon}, iter)
}

// NearestSegmentProjection projects coord onto the polyline pts (both
// [lon, lat]) in planar degrees. It returns the index of the closest segment,
// the fraction along it, and the projected point.
func NearestSegmentProjection(pts [][2]float64, coord [2]float64) (int, float64, [2]float64) {
	bestIdx, bestT := 0, 0.0
	bestPt := coord
	minDist := math.MaxFloat64
	for i := 0; i+1 < len(pts); i++ {
		c1, c2 := pts[i], pts[i+1]
		vx, vy := c2[0]-c1[0], c2[1]-c1[1]
		wx, wy := coord[0]-c1[0], coord[1]-c1[1]
		t := 0.0
		if denom := vx*vx + vy*vy; denom > 0 {
			t = (wx*vx + wy*vy) / denom
			if t < 0 {
				t = 0
			} else if t > 1 {
				t = 1
			}
		}
		px, py := c1[0]+t*vx, c1[1]+t*vy
		dx, dy := coord[0]-px, coord[1]-py
		if d := dx*dx + dy*dy; d < minDist {
			minDist = d
			bestIdx, bestT = i, t
			bestPt = [2]float64{px, py}
		}
	}
	return bestIdx, bestT, bestPt
}

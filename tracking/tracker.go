package tracking

import (
	"math"

	"github.com/theoremus-urban-solutions/gtfs-journey/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-journey/gtfsrt"
)

// atStopKM is the distance under which a vehicle counts as at a stop.
const atStopKM = 0.05

// VehicleState flags where a vehicle sits on its trip.
type VehicleState struct {
	AtStop        bool `json:"at_stop"`
	AtOrigin      bool `json:"at_origin"`
	AtDestination bool `json:"at_destination"`
}

// Progress locates a vehicle along its trip's stop sequence.
type Progress struct {
	TripID string `json:"trip_id"`
	// NextStopID is the first stop not yet passed.
	NextStopID   string       `json:"next_stop_id"`
	NextStopName string       `json:"next_stop_name"`
	NextSequence int          `json:"next_sequence"`
	NearStopID   string       `json:"near_stop_id"`
	NearStopName string       `json:"near_stop_name"`
	DistAlongKM  float64      `json:"dist_along_km"`
	TripLengthKM float64      `json:"trip_length_km"`
	ToNextStopKM float64      `json:"to_next_stop_km"`
	Bearing      float64      `json:"bearing"`
	State        VehicleState `json:"state"`
}

// Fraction returns the share of the trip already covered, in [0, 1].
func (p Progress) Fraction() float64 {
	if p.TripLengthKM <= 0 {
		return 0
	}
	return math.Min(1, math.Max(0, p.DistAlongKM/p.TripLengthKM))
}

// Locate projects the vehicle onto the straight segments joining the trip's
// stops and reports the stop it is heading to. It fails when the trip has
// fewer than two located stops.
func Locate(idx *gtfs.Index, tripID string, v gtfsrt.VehiclePosition) (Progress, bool) {
	sts := idx.StopTimesForTrip(tripID)
	var stops []gtfs.Stop
	var seqs []int
	for _, st := range sts {
		if s, ok := idx.Stop(st.StopID); ok {
			stops = append(stops, s)
			seqs = append(seqs, st.Sequence)
		}
	}
	if len(stops) < 2 {
		return Progress{}, false
	}

	line := make([][2]float64, len(stops))
	for i, s := range stops {
		line[i] = [2]float64{s.Lon, s.Lat}
	}
	vehCoord := [2]float64{v.Lon, v.Lat}
	bestSegIdx, bestT, _ := gtfs.NearestSegmentProjection(line, vehCoord)

	// cumulative distance to the best segment plus the fraction within it
	segKM := make([]float64, len(stops)-1)
	total := 0.0
	for i := range segKM {
		segKM[i] = gtfs.HaversineKM(stops[i].Lat, stops[i].Lon, stops[i+1].Lat, stops[i+1].Lon)
		total += segKM[i]
	}
	along := bestT * segKM[bestSegIdx]
	for j := 0; j < bestSegIdx; j++ {
		along += segKM[j]
	}

	next := bestSegIdx + 1
	if bestT == 0 {
		next = bestSegIdx
	}
	near, nearKM := 0, math.Inf(1)
	for i, s := range stops {
		if d := gtfs.HaversineKM(v.Lat, v.Lon, s.Lat, s.Lon); d < nearKM {
			near, nearKM = i, d
		}
	}

	p := Progress{
		TripID:       tripID,
		NextStopID:   stops[next].ID,
		NextStopName: stops[next].Name,
		NextSequence: seqs[next],
		NearStopID:   stops[near].ID,
		NearStopName: stops[near].Name,
		DistAlongKM:  along,
		TripLengthKM: total,
		ToNextStopKM: gtfs.HaversineKM(v.Lat, v.Lon, stops[next].Lat, stops[next].Lon),
		Bearing:      v.Bearing,
	}
	p.State.AtStop = nearKM <= atStopKM
	p.State.AtOrigin = p.State.AtStop && near == 0
	p.State.AtDestination = p.State.AtStop && near == len(stops)-1
	return p, true
}

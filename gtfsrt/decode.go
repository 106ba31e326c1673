package gtfsrt

import (
	"fmt"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// ParseFeed decodes a FeedMessage payload. Missing required fields are
// tolerated; producers frequently omit them.
func ParseFeed(payload []byte) (*gtfsrtpb.FeedMessage, error) {
	var fm gtfsrtpb.FeedMessage
	if err := (proto.UnmarshalOptions{AllowPartial: true, DiscardUnknown: true}).Unmarshal(payload, &fm); err != nil {
		return nil, fmt.Errorf("decode feed message: %w", err)
	}
	return &fm, nil
}

// Validate checks that payload decodes as a FeedMessage.
func Validate(payload []byte) error {
	_, err := ParseFeed(payload)
	return err
}

// DecodeTripUpdates extracts one delay per trip update carrying stop time
// updates. The delay is taken from the first stop time update exposing a
// departure delay, else an arrival delay; updates with neither give 0.
func DecodeTripUpdates(payload []byte) ([]TripDelay, error) {
	fm, err := ParseFeed(payload)
	if err != nil {
		return nil, err
	}
	out := []TripDelay{}
	for _, e := range fm.Entity {
		tu := e.GetTripUpdate()
		if tu == nil || tu.Trip == nil || tu.Trip.TripId == nil {
			continue
		}
		if len(tu.StopTimeUpdate) == 0 {
			continue
		}
		out = append(out, TripDelay{TripID: *tu.Trip.TripId, DelaySec: firstDelay(tu.StopTimeUpdate)})
	}
	return out, nil
}

func firstDelay(stus []*gtfsrtpb.TripUpdate_StopTimeUpdate) int32 {
	for _, stu := range stus {
		if stu.Departure != nil && stu.Departure.Delay != nil {
			return *stu.Departure.Delay
		}
		if stu.Arrival != nil && stu.Arrival.Delay != nil {
			return *stu.Arrival.Delay
		}
	}
	return 0
}

// DecodeVehiclePositions extracts vehicle positions that carry coordinates.
func DecodeVehiclePositions(payload []byte) ([]VehiclePosition, error) {
	fm, err := ParseFeed(payload)
	if err != nil {
		return nil, err
	}
	out := []VehiclePosition{}
	for _, e := range fm.Entity {
		v := e.GetVehicle()
		if v == nil || v.Position == nil || v.Position.Latitude == nil || v.Position.Longitude == nil {
			continue
		}
		vp := VehiclePosition{
			ID:  e.GetId(),
			Lat: float64(*v.Position.Latitude),
			Lon: float64(*v.Position.Longitude),
		}
		if v.Vehicle != nil && v.Vehicle.Id != nil {
			vp.ID = *v.Vehicle.Id
		}
		if v.Trip != nil {
			if v.Trip.TripId != nil {
				vp.TripID = *v.Trip.TripId
			}
			if v.Trip.RouteId != nil {
				vp.RouteID = *v.Trip.RouteId
			}
		}
		if v.Position.Bearing != nil {
			vp.Bearing = float64(*v.Position.Bearing)
		}
		if v.Timestamp != nil {
			vp.Timestamp = int64(*v.Timestamp)
		}
		out = append(out, vp)
	}
	return out, nil
}

// DecodeAlerts extracts service alerts and the entities they inform.
func DecodeAlerts(payload []byte) ([]RTAlert, error) {
	fm, err := ParseFeed(payload)
	if err != nil {
		return nil, err
	}
	out := []RTAlert{}
	for _, e := range fm.Entity {
		a := e.GetAlert()
		if a == nil {
			continue
		}
		ra := RTAlert{ID: e.GetId()}
		if a.HeaderText != nil {
			ra.Header = translatedText(a.HeaderText)
		}
		if a.DescriptionText != nil {
			ra.Description = translatedText(a.DescriptionText)
		}
		if a.Cause != nil {
			ra.Cause = a.Cause.String()
		}
		if a.Effect != nil {
			ra.Effect = a.Effect.String()
		}
		if a.SeverityLevel != nil {
			ra.Severity = a.SeverityLevel.String()
		}
		// ActivePeriod: first window only
		if len(a.ActivePeriod) > 0 {
			ap := a.ActivePeriod[0]
			if ap.Start != nil {
				ra.Start = int64(*ap.Start)
			}
			if ap.End != nil {
				ra.End = int64(*ap.End)
			}
		}
		for _, ie := range a.InformedEntity {
			if ie.RouteId != nil {
				ra.RouteIDs = append(ra.RouteIDs, *ie.RouteId)
			}
			if ie.Trip != nil && ie.Trip.TripId != nil {
				ra.TripIDs = append(ra.TripIDs, *ie.Trip.TripId)
			}
			if ie.StopId != nil {
				ra.StopIDs = append(ra.StopIDs, *ie.StopId)
			}
		}
		out = append(out, ra)
	}
	return out, nil
}

// translatedText prefers the untagged translation, then the first one.
func translatedText(ts *gtfsrtpb.TranslatedString) string {
	var first string
	for _, tr := range ts.Translation {
		if tr.GetLanguage() == "" {
			return tr.GetText()
		}
		if first == "" {
			first = tr.GetText()
		}
	}
	return first
}

package fixtures

import (
	"testing"

	gtfsrtpb "github.com/MobilityData/gtfs-realtime-bindings/golang/gtfs"
	"google.golang.org/protobuf/proto"
)

// Feed marshals entities into a FeedMessage payload.
func Feed(t testing.TB, entities ...*gtfsrtpb.FeedEntity) []byte {
	t.Helper()
	fm := &gtfsrtpb.FeedMessage{
		Header: &gtfsrtpb.FeedHeader{
			GtfsRealtimeVersion: proto.String("2.0"),
			Timestamp:           proto.Uint64(1718629200),
		},
		Entity: entities,
	}
	b, err := proto.Marshal(fm)
	if err != nil {
		t.Fatalf("marshal feed: %v", err)
	}
	return b
}

// StopUpdate builds a stop time update. A nil delay leaves the event unset.
func StopUpdate(stopID string, arrivalDelay, departureDelay *int32) *gtfsrtpb.TripUpdate_StopTimeUpdate {
	stu := &gtfsrtpb.TripUpdate_StopTimeUpdate{StopId: proto.String(stopID)}
	if arrivalDelay != nil {
		stu.Arrival = &gtfsrtpb.TripUpdate_StopTimeEvent{Delay: arrivalDelay}
	}
	if departureDelay != nil {
		stu.Departure = &gtfsrtpb.TripUpdate_StopTimeEvent{Delay: departureDelay}
	}
	return stu
}

// TripUpdate builds a trip update entity.
func TripUpdate(id, tripID string, stus ...*gtfsrtpb.TripUpdate_StopTimeUpdate) *gtfsrtpb.FeedEntity {
	return &gtfsrtpb.FeedEntity{
		Id: proto.String(id),
		TripUpdate: &gtfsrtpb.TripUpdate{
			Trip:           &gtfsrtpb.TripDescriptor{TripId: proto.String(tripID)},
			StopTimeUpdate: stus,
		},
	}
}

// Vehicle builds a vehicle position entity.
func Vehicle(id, tripID, routeID string, lat, lon float32) *gtfsrtpb.FeedEntity {
	return &gtfsrtpb.FeedEntity{
		Id: proto.String(id),
		Vehicle: &gtfsrtpb.VehiclePosition{
			Trip:      &gtfsrtpb.TripDescriptor{TripId: proto.String(tripID), RouteId: proto.String(routeID)},
			Vehicle:   &gtfsrtpb.VehicleDescriptor{Id: proto.String("bus-" + id)},
			Position:  &gtfsrtpb.Position{Latitude: proto.Float32(lat), Longitude: proto.Float32(lon), Bearing: proto.Float32(90)},
			Timestamp: proto.Uint64(1718629200),
		},
	}
}

// Alert builds a service alert informing the given route and stop.
func Alert(id, header, routeID, stopID string) *gtfsrtpb.FeedEntity {
	var informed []*gtfsrtpb.EntitySelector
	if routeID != "" {
		informed = append(informed, &gtfsrtpb.EntitySelector{RouteId: proto.String(routeID)})
	}
	if stopID != "" {
		informed = append(informed, &gtfsrtpb.EntitySelector{StopId: proto.String(stopID)})
	}
	return &gtfsrtpb.FeedEntity{
		Id: proto.String(id),
		Alert: &gtfsrtpb.Alert{
			HeaderText: &gtfsrtpb.TranslatedString{Translation: []*gtfsrtpb.TranslatedString_Translation{
				{Text: proto.String(header + " (fr)"), Language: proto.String("fr")},
				{Text: proto.String(header)},
			}},
			Cause:          gtfsrtpb.Alert_CONSTRUCTION.Enum(),
			Effect:         gtfsrtpb.Alert_DETOUR.Enum(),
			ActivePeriod:   []*gtfsrtpb.TimeRange{{Start: proto.Uint64(1718600000), End: proto.Uint64(1718700000)}},
			InformedEntity: informed,
		},
	}
}

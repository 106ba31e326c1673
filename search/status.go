package search

import (
	"fmt"
	"math"
	"strings"

	"github.com/theoremus-urban-solutions/gtfs-journey/gtfs"
	"github.com/theoremus-urban-solutions/gtfs-journey/tracking"
	"github.com/theoremus-urban-solutions/gtfs-journey/utils"
)

// StatusLine renders a trip option as one line of rider text, e.g.
// "900 to Oshawa Centre · departs 08:00 (+3 min late) · arrives 08:33 · 33 min".
func StatusLine(o TripOption) string {
	var b strings.Builder
	b.WriteString(o.RouteShortName)
	if o.Headsign != "" {
		b.WriteString(" to ")
		b.WriteString(o.Headsign)
	}
	b.WriteString(" · departs ")
	if o.Tomorrow {
		b.WriteString("tomorrow ")
	}
	b.WriteString(utils.FormatClock(o.DepartureSec))
	b.WriteString(" (")
	b.WriteString(DelayText(o.DelaySec))
	b.WriteString(") · arrives ")
	b.WriteString(utils.FormatClock(o.ArrivalSec))
	fmt.Fprintf(&b, " · %d min", o.DurationSec/60)
	if o.VehicleNear != "" {
		b.WriteString(" · vehicle near ")
		b.WriteString(o.VehicleNear)
	}
	return b.String()
}

// DelayText describes a delay in whole minutes.
func DelayText(delaySec int32) string {
	mins := int(math.Round(float64(delaySec) / 60))
	switch {
	case mins > 0:
		return fmt.Sprintf("+%d min late", mins)
	case mins < 0:
		return fmt.Sprintf("%d min early", -mins)
	}
	return "on time"
}

// annotate adds alert headers and the vehicle's position from the realtime
// snapshot.
func annotate(idx *gtfs.Index, q Query, o *TripOption) {
	rt := q.Realtime
	seen := map[string]bool{}
	add := func(header, id string) {
		if header == "" || seen[id] {
			return
		}
		seen[id] = true
		o.Alerts = append(o.Alerts, header)
	}
	for _, a := range rt.AlertsForTrip(o.TripID) {
		add(a.Header, a.ID)
	}
	for _, a := range rt.AlertsForRoute(o.RouteID) {
		add(a.Header, a.ID)
	}
	for _, a := range rt.AlertsForStop(q.OriginStopID) {
		add(a.Header, a.ID)
	}
	for _, a := range rt.AlertsForStop(q.DestinationStopID) {
		add(a.Header, a.ID)
	}

	if v, ok := rt.VehicleForTrip(o.TripID); ok {
		if p, ok := tracking.Locate(idx, o.TripID, v); ok {
			o.VehicleNear = p.NearStopName
		}
	}
}

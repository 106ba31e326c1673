package gtfs

import "time"

// Stop is a row of stops.txt.
type Stop struct {
	ID   string  `json:"stop_id"`
	Code string  `json:"stop_code,omitempty"`
	Name string  `json:"stop_name"`
	Desc string  `json:"stop_desc,omitempty"`
	Lat  float64 `json:"stop_lat"`
	Lon  float64 `json:"stop_lon"`
}

// Route is a row of routes.txt.
type Route struct {
	ID        string `json:"route_id"`
	AgencyID  string `json:"agency_id,omitempty"`
	ShortName string `json:"route_short_name"`
	LongName  string `json:"route_long_name"`
	Desc      string `json:"route_desc,omitempty"`
	Type      string `json:"route_type"`
	URL       string `json:"route_url,omitempty"`
}

// DisplayName prefers the short name, then the long name, then the id.
func (r Route) DisplayName() string {
	switch {
	case r.ShortName != "":
		return r.ShortName
	case r.LongName != "":
		return r.LongName
	}
	return r.ID
}

// Trip is a row of trips.txt.
type Trip struct {
	ID        string `json:"trip_id"`
	RouteID   string `json:"route_id"`
	ServiceID string `json:"service_id"`
	Headsign  string `json:"trip_headsign,omitempty"`
}

// StopTime is a row of stop_times.txt. Times are seconds since local
// midnight of the service day and may exceed 86399 for trips running past
// midnight.
type StopTime struct {
	TripID       string `json:"trip_id"`
	StopID       string `json:"stop_id"`
	ArrivalSec   int    `json:"arrival_sec"`
	DepartureSec int    `json:"departure_sec"`
	Sequence     int    `json:"stop_sequence"`
}

// CalendarRule is a row of calendar.txt. Weekdays is indexed Monday first,
// matching the column order of the file.
type CalendarRule struct {
	ServiceID string
	Weekdays  [7]bool
	Start     time.Time // date only, UTC midnight
	End       time.Time // date only, UTC midnight
}

// Exception types of calendar_dates.txt.
const (
	ServiceAdded   = 1
	ServiceRemoved = 2
)

// CalendarException is a row of calendar_dates.txt.
type CalendarException struct {
	ServiceID string
	Date      time.Time // date only, UTC midnight
	Type      int
}

// Catalog holds the typed rows of one static feed load. It is immutable
// once returned by a loader.
type Catalog struct {
	Stops         []Stop
	Routes        []Route
	Trips         []Trip
	StopTimes     []StopTime
	Calendar      []CalendarRule
	CalendarDates []CalendarException
}

// Empty reports whether the catalog holds no stops and no trips.
func (c *Catalog) Empty() bool {
	return c == nil || (len(c.Stops) == 0 && len(c.Trips) == 0)
}

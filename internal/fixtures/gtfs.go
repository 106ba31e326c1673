// Package fixtures builds small in-memory GTFS and GTFS-RT data sets for
// tests.
package fixtures

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/theoremus-urban-solutions/gtfs-journey/gtfs"
)

// Files maps a table file name to its lines, header first.
type Files map[string][]string

// Tables turns files into loader input. Absent files stay nil.
func Tables(files Files) gtfs.Tables {
	var t gtfs.Tables
	reader := func(name string) *strings.Reader {
		lines, ok := files[name]
		if !ok {
			return nil
		}
		return strings.NewReader(strings.Join(lines, "\n") + "\n")
	}
	if r := reader(gtfs.StopsFile); r != nil {
		t.Stops = r
	}
	if r := reader(gtfs.RoutesFile); r != nil {
		t.Routes = r
	}
	if r := reader(gtfs.TripsFile); r != nil {
		t.Trips = r
	}
	if r := reader(gtfs.StopTimesFile); r != nil {
		t.StopTimes = r
	}
	if r := reader(gtfs.CalendarFile); r != nil {
		t.Calendar = r
	}
	if r := reader(gtfs.CalendarDatesFile); r != nil {
		t.CalendarDates = r
	}
	return t
}

// Index loads files and builds an index, failing the test on skipped rows.
func Index(t testing.TB, files Files) *gtfs.Index {
	t.Helper()
	cat, rep := gtfs.LoadCatalog(Tables(files))
	if n := rep.Skipped(); n != 0 {
		t.Fatalf("fixture has %d skipped rows: %+v", n, rep)
	}
	return gtfs.NewIndex(cat)
}

// ThreeStops is one route with one trip A -> B -> C on service S, running
// weekdays through 2024.
func ThreeStops() Files {
	return Files{
		gtfs.StopsFile: {
			"stop_id,stop_code,stop_name,stop_desc,stop_lat,stop_lon",
			"A,100,Main St & King St,,43.8971,-78.8658",
			"B,101,Simcoe St & Bond St,,43.8990,-78.8620",
			"C,102,Oshawa Centre,Terminal,43.8890,-78.8800",
		},
		gtfs.RoutesFile: {
			"route_id,agency_id,route_short_name,route_long_name,route_desc,route_type,route_url",
			"R1,DRT,900,Pulse,,3,",
		},
		gtfs.TripsFile: {
			"route_id,service_id,trip_id,trip_headsign",
			"R1,S,T1,Oshawa Centre",
		},
		gtfs.StopTimesFile: {
			"trip_id,arrival_time,departure_time,stop_id,stop_sequence",
			"T1,08:00:00,08:00:00,A,1",
			"T1,08:15:00,08:15:00,B,2",
			"T1,08:30:00,08:30:00,C,3",
		},
		gtfs.CalendarFile: {
			"service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date",
			"S,1,1,1,1,1,0,0,20240101,20241231",
		},
	}
}

// Corridor is several routes and trips sharing stops A and C, for ranking
// tests. Trips on route R4 run on service W only.
func Corridor() Files {
	return Files{
		gtfs.StopsFile: {
			"stop_id,stop_code,stop_name,stop_desc,stop_lat,stop_lon",
			"A,100,Main St & King St,,43.8971,-78.8658",
			"B,101,Simcoe St & Bond St,,43.8990,-78.8620",
			"C,102,Oshawa Centre,Terminal,43.8890,-78.8800",
			"D,103,King St & Ritson Rd,,43.8975,-78.8500",
		},
		gtfs.RoutesFile: {
			"route_id,agency_id,route_short_name,route_long_name,route_desc,route_type,route_url",
			"R1,DRT,900,Pulse,,3,",
			"R2,DRT,401,Simcoe,,3,",
			"R3,DRT,402,King,,3,",
			"R4,DRT,403,Weekend,,3,",
			"R5,DRT,404,Ritson,,3,",
			"R6,DRT,405,Bond,,3,",
			"R7,DRT,406,Centre,,3,",
			"R8,DRT,407,Express,,3,",
		},
		gtfs.TripsFile: {
			"route_id,service_id,trip_id,trip_headsign",
			"R1,S,R1-0800,Oshawa Centre",
			"R1,S,R1-0900,Oshawa Centre",
			"R1,S,R1-1000,Oshawa Centre",
			"R2,S,R2-0830,Oshawa Centre",
			"R3,S,R3-0845,Oshawa Centre",
			"R4,W,R4-0810,Oshawa Centre",
			"R5,S,R5-0700,Oshawa Centre",
			"R6,S,R6-1100,Oshawa Centre",
			"R7,S,R7-1200,Oshawa Centre",
			"R8,S,R8-1300,Oshawa Centre",
			"R1,S,R1-REV,Main St",
		},
		gtfs.StopTimesFile: {
			"trip_id,arrival_time,departure_time,stop_id,stop_sequence",
			"R1-0800,08:00:00,08:00:00,A,1", "R1-0800,08:20:00,08:20:00,C,2",
			"R1-0900,09:00:00,09:00:00,A,1", "R1-0900,09:20:00,09:20:00,C,2",
			"R1-1000,10:00:00,10:00:00,A,1", "R1-1000,10:20:00,10:20:00,C,2",
			"R2-0830,08:30:00,08:30:00,A,1", "R2-0830,08:40:00,08:40:00,B,2", "R2-0830,08:55:00,08:55:00,C,3",
			"R3-0845,08:45:00,08:45:00,A,1", "R3-0845,09:05:00,09:05:00,C,2",
			"R4-0810,08:10:00,08:10:00,A,1", "R4-0810,08:25:00,08:25:00,C,2",
			"R5-0700,07:00:00,07:00:00,A,1", "R5-0700,07:30:00,07:30:00,C,2",
			"R6-1100,11:00:00,11:00:00,A,1", "R6-1100,11:20:00,11:20:00,C,2",
			"R7-1200,12:00:00,12:00:00,A,1", "R7-1200,12:20:00,12:20:00,C,2",
			"R8-1300,13:00:00,13:00:00,A,1", "R8-1300,13:15:00,13:15:00,D,2", "R8-1300,13:20:00,13:20:00,C,3",
			"R1-REV,14:00:00,14:00:00,C,1", "R1-REV,14:20:00,14:20:00,A,2",
		},
		gtfs.CalendarFile: {
			"service_id,monday,tuesday,wednesday,thursday,friday,saturday,sunday,start_date,end_date",
			"S,1,1,1,1,1,0,0,20240101,20241231",
			"W,0,0,0,0,0,1,1,20240101,20241231",
		},
	}
}

// WriteDir writes files as .txt tables into dir.
func WriteDir(t testing.TB, dir string, files Files) {
	t.Helper()
	for name, lines := range files {
		body := strings.Join(lines, "\n") + "\n"
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
}

package gtfs

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Table file names inside a GTFS bundle.
const (
	StopsFile         = "stops.txt"
	RoutesFile        = "routes.txt"
	TripsFile         = "trips.txt"
	StopTimesFile     = "stop_times.txt"
	CalendarFile      = "calendar.txt"
	CalendarDatesFile = "calendar_dates.txt"
)

// Tables carries one reader per static table. A nil reader is a missing
// table and loads as empty.
type Tables struct {
	Stops         io.Reader
	Routes        io.Reader
	Trips         io.Reader
	StopTimes     io.Reader
	Calendar      io.Reader
	CalendarDates io.Reader
}

// TableReport counts data rows of a single table. Rows == Loaded + Skipped.
type TableReport struct {
	Rows    int  `json:"rows"`
	Loaded  int  `json:"loaded"`
	Skipped int  `json:"skipped"`
	Missing bool `json:"missing,omitempty"`
}

// LoadReport aggregates the per-table counts of a catalog load.
type LoadReport struct {
	Stops         TableReport `json:"stops"`
	Routes        TableReport `json:"routes"`
	Trips         TableReport `json:"trips"`
	StopTimes     TableReport `json:"stop_times"`
	Calendar      TableReport `json:"calendar"`
	CalendarDates TableReport `json:"calendar_dates"`
}

// Skipped returns the total number of rejected rows across all tables.
func (r LoadReport) Skipped() int {
	return r.Stops.Skipped + r.Routes.Skipped + r.Trips.Skipped +
		r.StopTimes.Skipped + r.Calendar.Skipped + r.CalendarDates.Skipped
}

// ByTable returns the reports keyed by file name.
func (r LoadReport) ByTable() map[string]TableReport {
	return map[string]TableReport{
		StopsFile:         r.Stops,
		RoutesFile:        r.Routes,
		TripsFile:         r.Trips,
		StopTimesFile:     r.StopTimes,
		CalendarFile:      r.Calendar,
		CalendarDatesFile: r.CalendarDates,
	}
}

// column describes where a field lives: by header name, or by position when
// the file carries no recognisable header.
type column struct {
	name     string
	pos      int
	required bool
}

// layout lists the columns consumed from a table. minFields is the minimum
// row width when the positional fallback is in effect.
type layout struct {
	columns   []column
	minFields int
}

var (
	stopsLayout = layout{columns: []column{
		{"stop_id", 0, true}, {"stop_code", 1, false}, {"stop_name", 2, true},
		{"stop_desc", 3, false}, {"stop_lat", 4, true}, {"stop_lon", 5, true},
	}, minFields: 6}
	routesLayout = layout{columns: []column{
		{"route_id", 0, true}, {"agency_id", 1, false}, {"route_short_name", 2, false},
		{"route_long_name", 3, false}, {"route_desc", 4, false}, {"route_type", 5, false},
		{"route_url", 6, false},
	}, minFields: 7}
	tripsLayout = layout{columns: []column{
		{"route_id", 0, true}, {"service_id", 1, true}, {"trip_id", 2, true},
		{"trip_headsign", 3, false},
	}, minFields: 3}
	stopTimesLayout = layout{columns: []column{
		{"trip_id", 0, true}, {"arrival_time", 1, true}, {"departure_time", 2, true},
		{"stop_id", 3, true}, {"stop_sequence", 4, true},
	}, minFields: 5}
	calendarLayout = layout{columns: []column{
		{"service_id", 0, true}, {"monday", 1, true}, {"tuesday", 2, true},
		{"wednesday", 3, true}, {"thursday", 4, true}, {"friday", 5, true},
		{"saturday", 6, true}, {"sunday", 7, true}, {"start_date", 8, true},
		{"end_date", 9, true},
	}, minFields: 10}
	calendarDatesLayout = layout{columns: []column{
		{"service_id", 0, true}, {"date", 1, true}, {"exception_type", 2, true},
	}, minFields: 3}
)

// fields maps a header row onto a layout. Named headers win; a header that
// contains none of the layout's names falls back to positions.
type fields struct {
	idx       []int
	minFields int
}

func resolveHeader(head []string, l layout) fields {
	pos := make(map[string]int, len(head))
	for i, h := range head {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	named := false
	for _, c := range l.columns {
		if _, ok := pos[c.name]; ok {
			named = true
			break
		}
	}
	f := fields{idx: make([]int, len(l.columns))}
	if !named {
		for i, c := range l.columns {
			f.idx[i] = c.pos
		}
		f.minFields = l.minFields
		return f
	}
	for i, c := range l.columns {
		p, ok := pos[c.name]
		if !ok {
			p = -1
		}
		f.idx[i] = p
		if c.required {
			if !ok {
				// a required column is absent: every row is unusable
				f.minFields = len(head) + 1
			} else if p+1 > f.minFields {
				f.minFields = p + 1
			}
		}
	}
	return f
}

// get returns the trimmed value of the i-th layout column, or "".
func (f fields) get(row []string, i int) string {
	p := f.idx[i]
	if p < 0 || p >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[p])
}

// eachRow streams the data rows of a table. fn reports whether the row was
// accepted. A nil reader marks the table missing.
func eachRow(r io.Reader, l layout, fn func(f fields, row []string) bool) TableReport {
	var rep TableReport
	if r == nil {
		rep.Missing = true
		return rep
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false
	head, err := cr.Read()
	if err != nil {
		if !errors.Is(err, io.EOF) {
			rep.Missing = true
		}
		return rep
	}
	f := resolveHeader(head, l)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				rep.Rows++
				rep.Skipped++
				continue
			}
			// the underlying reader failed; keep what was read so far
			break
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		rep.Rows++
		if len(row) < f.minFields || !fn(f, row) {
			rep.Skipped++
			continue
		}
		rep.Loaded++
	}
	return rep
}

// LoadCatalog parses every table present in t. Row-level problems are
// counted in the report and never abort the load.
func LoadCatalog(t Tables) (*Catalog, LoadReport) {
	cat := &Catalog{}
	var rep LoadReport

	rep.Stops = eachRow(t.Stops, stopsLayout, func(f fields, row []string) bool {
		lat, err := strconv.ParseFloat(f.get(row, 4), 64)
		if err != nil || !(lat >= -90 && lat <= 90) {
			return false
		}
		lon, err := strconv.ParseFloat(f.get(row, 5), 64)
		if err != nil || !(lon >= -180 && lon <= 180) {
			return false
		}
		id := f.get(row, 0)
		if id == "" {
			return false
		}
		cat.Stops = append(cat.Stops, Stop{
			ID:   id,
			Code: f.get(row, 1),
			Name: f.get(row, 2),
			Desc: f.get(row, 3),
			Lat:  lat,
			Lon:  lon,
		})
		return true
	})

	rep.Routes = eachRow(t.Routes, routesLayout, func(f fields, row []string) bool {
		id := f.get(row, 0)
		if id == "" {
			return false
		}
		cat.Routes = append(cat.Routes, Route{
			ID:        id,
			AgencyID:  f.get(row, 1),
			ShortName: f.get(row, 2),
			LongName:  f.get(row, 3),
			Desc:      f.get(row, 4),
			Type:      f.get(row, 5),
			URL:       f.get(row, 6),
		})
		return true
	})

	rep.Trips = eachRow(t.Trips, tripsLayout, func(f fields, row []string) bool {
		id := f.get(row, 2)
		if id == "" {
			return false
		}
		cat.Trips = append(cat.Trips, Trip{
			ID:        id,
			RouteID:   f.get(row, 0),
			ServiceID: f.get(row, 1),
			Headsign:  f.get(row, 3),
		})
		return true
	})

	rep.StopTimes = eachRow(t.StopTimes, stopTimesLayout, func(f fields, row []string) bool {
		tripID, stopID := f.get(row, 0), f.get(row, 3)
		if tripID == "" || stopID == "" {
			return false
		}
		seq, err := strconv.Atoi(f.get(row, 4))
		if err != nil {
			return false
		}
		arr, arrOK := ParseClock(f.get(row, 1))
		dep, depOK := ParseClock(f.get(row, 2))
		switch {
		case !arrOK && !depOK:
			return false
		case !arrOK:
			arr = dep
		case !depOK:
			dep = arr
		}
		cat.StopTimes = append(cat.StopTimes, StopTime{
			TripID:       tripID,
			StopID:       stopID,
			ArrivalSec:   arr,
			DepartureSec: dep,
			Sequence:     seq,
		})
		return true
	})

	rep.Calendar = eachRow(t.Calendar, calendarLayout, func(f fields, row []string) bool {
		start, err := ParseDate(f.get(row, 8))
		if err != nil {
			return false
		}
		end, err := ParseDate(f.get(row, 9))
		if err != nil {
			return false
		}
		rule := CalendarRule{ServiceID: f.get(row, 0), Start: start, End: end}
		for d := 0; d < 7; d++ {
			rule.Weekdays[d] = f.get(row, 1+d) == "1"
		}
		cat.Calendar = append(cat.Calendar, rule)
		return true
	})

	rep.CalendarDates = eachRow(t.CalendarDates, calendarDatesLayout, func(f fields, row []string) bool {
		date, err := ParseDate(f.get(row, 1))
		if err != nil {
			return false
		}
		typ, err := strconv.Atoi(f.get(row, 2))
		if err != nil {
			return false
		}
		cat.CalendarDates = append(cat.CalendarDates, CalendarException{
			ServiceID: f.get(row, 0),
			Date:      date,
			Type:      typ,
		})
		return true
	})

	return cat, rep
}

// LoadCatalogFromZip loads the tables found in a GTFS zip archive.
func LoadCatalogFromZip(data []byte) (*Catalog, LoadReport, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("open gtfs zip: %w", err)
	}
	var t Tables
	for _, f := range zr.File {
		dst := tableSlot(&t, filepath.Base(f.Name))
		if dst == nil {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, LoadReport{}, fmt.Errorf("open %s: %w", f.Name, err)
		}
		b, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, LoadReport{}, fmt.Errorf("read %s: %w", f.Name, err)
		}
		*dst = bytes.NewReader(b)
	}
	cat, rep := LoadCatalog(t)
	return cat, rep, nil
}

// LoadCatalogFromDir loads the well-known table files of dir. Absent files
// load as empty tables.
func LoadCatalogFromDir(dir string) (*Catalog, LoadReport, error) {
	var t Tables
	var open []*os.File
	defer func() {
		for _, f := range open {
			_ = f.Close()
		}
	}()
	for _, name := range []string{StopsFile, RoutesFile, TripsFile, StopTimesFile, CalendarFile, CalendarDatesFile} {
		f, err := os.Open(filepath.Join(dir, name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, LoadReport{}, fmt.Errorf("open %s: %w", name, err)
		}
		open = append(open, f)
		*tableSlot(&t, name) = f
	}
	cat, rep := LoadCatalog(t)
	return cat, rep, nil
}

// LoadCatalogFromPath dispatches on whether path is a zip file or a directory.
func LoadCatalogFromPath(path string) (*Catalog, LoadReport, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, LoadReport{}, err
	}
	if st.IsDir() {
		return LoadCatalogFromDir(path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, LoadReport{}, err
	}
	return LoadCatalogFromZip(data)
}

func tableSlot(t *Tables, name string) *io.Reader {
	switch strings.ToLower(name) {
	case StopsFile:
		return &t.Stops
	case RoutesFile:
		return &t.Routes
	case TripsFile:
		return &t.Trips
	case StopTimesFile:
		return &t.StopTimes
	case CalendarFile:
		return &t.Calendar
	case CalendarDatesFile:
		return &t.CalendarDates
	}
	return nil
}

// ParseClock parses "H:MM:SS" or "HH:MM:SS" into seconds since midnight.
// Hours past 23 are allowed.
func ParseClock(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	sec, err := strconv.Atoi(parts[2])
	if err != nil || sec < 0 || sec > 59 {
		return 0, false
	}
	return h*3600 + m*60 + sec, true
}

// ParseDate parses an 8-digit YYYYMMDD date into a UTC midnight.
func ParseDate(s string) (time.Time, error) {
	if len(s) != 8 {
		return time.Time{}, fmt.Errorf("invalid date %q", s)
	}
	return time.Parse("20060102", s)
}

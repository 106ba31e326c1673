package gtfs

import "time"

// DateOf truncates t to its calendar date in t's own location, returned as
// UTC midnight so it compares directly with parsed feed dates.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// weekdayIndex maps time.Weekday onto the Monday-first calendar columns.
func weekdayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}

// ActiveOn reports whether the rule alone runs on the given date.
func (r CalendarRule) ActiveOn(ref time.Time) bool {
	day := DateOf(ref)
	if !r.Weekdays[weekdayIndex(ref.Weekday())] {
		return false
	}
	return !day.Before(r.Start) && !day.After(r.End)
}

// ActiveServices returns the service ids running on ref's date. Rules are
// evaluated first; exceptions dated ref are then applied in table order, so
// the last row for a service wins.
func ActiveServices(rules []CalendarRule, exceptions []CalendarException, ref time.Time) map[string]bool {
	active := map[string]bool{}
	for _, r := range rules {
		if r.ActiveOn(ref) {
			active[r.ServiceID] = true
		}
	}
	day := DateOf(ref)
	for _, e := range exceptions {
		if !e.Date.Equal(day) {
			continue
		}
		switch e.Type {
		case ServiceAdded:
			active[e.ServiceID] = true
		case ServiceRemoved:
			delete(active, e.ServiceID)
		}
	}
	return active
}

// ActiveServicesOn resolves the catalog's calendar tables for ref.
func (c *Catalog) ActiveServicesOn(ref time.Time) map[string]bool {
	if c == nil {
		return map[string]bool{}
	}
	return ActiveServices(c.Calendar, c.CalendarDates, ref)
}

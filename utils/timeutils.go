package utils

import (
	"fmt"
	"time"
)

// SecondsPerDay is the length of a service day in seconds.
const SecondsPerDay = 24 * 3600

// Iso8601FromUnixSeconds converts Unix timestamp to ISO8601 format
func Iso8601FromUnixSeconds(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}

// SecondsSinceMidnight returns the time of day of t in t's location.
func SecondsSinceMidnight(t time.Time) int {
	h, m, s := t.Clock()
	return h*3600 + m*60 + s
}

// FormatClock renders seconds since midnight as HH:MM, folding values past
// 24h back onto the clock.
func FormatClock(sec int) string {
	sec %= SecondsPerDay
	if sec < 0 {
		sec += SecondsPerDay
	}
	return fmt.Sprintf("%02d:%02d", sec/3600, (sec%3600)/60)
}

// FormatClockSeconds renders seconds since midnight as HH:MM:SS without
// folding, the way schedule tables write times past midnight.
func FormatClockSeconds(sec int) string {
	sign := ""
	if sec < 0 {
		sign, sec = "-", -sec
	}
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, sec/3600, (sec%3600)/60, sec%60)
}

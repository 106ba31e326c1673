package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDelayText(t *testing.T) {
	tests := []struct {
		delay int32
		want  string
	}{
		{0, "on time"},
		{29, "on time"},
		{-29, "on time"},
		{30, "+1 min late"},
		{300, "+5 min late"},
		{-120, "2 min early"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DelayText(tt.delay), "%ds", tt.delay)
	}
}

func TestStatusLine(t *testing.T) {
	o := TripOption{
		RouteShortName: "401",
		DepartureSec:   23*3600 + 55*60,
		ArrivalSec:     24*3600 + 20*60,
		DurationSec:    25 * 60,
		Tomorrow:       true,
	}
	assert.Equal(t, "401 · departs tomorrow 23:55 (on time) · arrives 00:20 · 25 min", StatusLine(o))
}

// Package server exposes stop resolution, trip search, clustering and
// realtime state over HTTP.
//
// Routes:
//
//	GET /api/health
//	GET /api/stops/suggest?q=
//	GET /api/stops/resolve?q=&commit=
//	GET /api/trips?from=&to=&at=
//	GET /api/trips/:tripId/vehicle
//	GET /api/clusters?zoom=&minLat=&minLon=&maxLat=&maxLon=
//	GET /api/alerts?route=&stop=&all=
//	GET /api/realtime
//	GET /metrics
package server

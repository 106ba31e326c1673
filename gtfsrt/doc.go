// Package gtfsrt fetches, decodes and merges GTFS-Realtime protobuf feeds.
//
// It supports three feed types:
//   - Trip Updates: reduced to one signed delay per trip
//   - Vehicle Positions: current vehicle locations
//   - Service Alerts: disruptions and the routes, stops and trips they inform
//
// Fetching goes through a FallbackPolicy: the live source is tried with a
// per-attempt timeout and bounded retries, then the last payload that
// decoded cleanly, then nothing. Callers never see an error.
//
// # Usage
//
//	client := gtfsrt.NewClient(gtfsrt.FeedLocations{
//		gtfsrt.TripUpdates: "https://example.org/tripupdates.pb",
//	}, 10*time.Second)
//	policy := &gtfsrt.FallbackPolicy{Primary: client, Cache: gtfsrt.NewMemoryCache(), Retries: 2}
//	r := gtfsrt.NewRefresher(policy)
//	go r.Run(ctx, 30*time.Second)
//
//	delay := r.Snapshot().DelayFor(tripID)
//
// Refresher.Refresh is reentrancy-guarded; a trigger that arrives while a
// refresh is running is a no-op. Each refresh installs a complete Snapshot
// atomically.
package gtfsrt

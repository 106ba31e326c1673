/*
Package gtfs provides GTFS static data loading and indexing.

This package is data-source agnostic - it accepts one io.Reader per table, raw
zip bytes, or a directory, and builds immutable in-memory indices. It does NOT
handle HTTP downloads.

# Basic Usage

Load from raw bytes:

	cat, report, err := gtfs.LoadCatalogFromZip(zipBytes)
	if err != nil {
	    log.Fatal(err)
	}
	log.Printf("skipped %d rows", report.Skipped())

	idx := gtfs.NewIndex(cat)
	routes := idx.RoutesForStop("stop_456")
	stopTimes := idx.StopTimesForTrip("trip_123")

Load from readers:

	cat, report := gtfs.LoadCatalog(gtfs.Tables{
	    Stops:     stopsReader,
	    StopTimes: stopTimesReader,
	})

A nil reader is a missing table and loads as empty. Malformed rows are
counted in the LoadReport and skipped; they never abort the load.

# Reloading

Store holds the current Index behind an atomic pointer. Build the new Index
first, then Swap it in; readers see either the previous or the new index.

	store := gtfs.NewStore(idx)
	store.Swap(gtfs.NewIndex(freshCatalog))

# Data Structure

The index provides fast lookups for:

- Stops (stop_id → stop, lat/lon, R-tree nearest neighbour)
- Routes (route_id → route, stop_id → distinct routes)
- Trips (trip_id → route_id, service_id, headsign)
- Stop times (trip_id → stop times ordered by stop_sequence)
- Calendar (service ids active on a given date)
*/
package gtfs

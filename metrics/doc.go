// Package metrics exposes Prometheus collectors for the schedule catalog,
// realtime refreshes, searches, geocoding and the NATS publisher.
package metrics

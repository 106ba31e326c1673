// Package tracking places realtime vehicles on their scheduled trips.
//
// Locate projects a vehicle position onto the polyline through the trip's
// stops, in stop sequence order, and reports distance travelled, the next
// stop and whether the vehicle is at a stop.
package tracking

// Package utils provides small shared helpers for the journey service.
//
// It contains:
//   - Clock formatting for schedule seconds since midnight
//   - Distance formatting
//   - An injectable wall clock for timers and rate limits
package utils

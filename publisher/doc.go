// Package publisher forwards realtime vehicle positions to NATS.
package publisher

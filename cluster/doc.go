// Package cluster groups stops into zoom-dependent grid cells for map display.
package cluster

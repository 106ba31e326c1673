// Package config handles application configuration loading and validation.
//
// Configuration is read from config.yml, overlaid with .env and environment
// variables, and validated using struct tags. Several named feeds may be
// configured and one selected by name.
package config

// Package config loads, defaults, and validates the YAML configuration for
// a poller instance. Values support ${VAR} environment expansion.
package config

// Package config manages the revq configuration: per-platform credentials,
// fan-out concurrency, output format, and project-cache settings, merged
// from defaults, the config file, environment variables, and CLI flag
// overrides in that order.
package config

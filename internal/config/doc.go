// Package config loads and validates the synapse-mcp server configuration.
//
// Configuration is assembled once at process start from three layers:
// built-in defaults, an optional YAML file, and environment variables
// (environment wins). The resulting Config is immutable for the lifetime
// of the process; nothing re-reads configuration after boot, so the
// authentication mode can never change mid-flight.
//
// The personal access token (SYNAPSE_PAT) is deliberately only readable
// from the environment, never from a file on disk.
package config

// Package config loads, normalizes, and validates beaconsync configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides for the
// external tool locations and log level. The Config type converts into the
// protocol, detector, and ffmpeg parameter types so downstream packages never
// parse TOML themselves.
package config

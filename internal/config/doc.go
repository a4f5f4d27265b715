// Package config loads, normalizes, and validates recoder configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// RECODER_NTFY_TOPIC. The Config type centralizes every knob the CLI and the
// batch orchestrator need: state and log directories, encode quality and
// preset, benchmark freshness, scheduler timing, and notification templates.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

// Package config loads, normalizes, and validates scoreflow configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks such as SCOREFLOW_API_TOKEN
// and SCOREFLOW_ENV. Routing thresholds are decoded straight into
// routing.Thresholds so the daemon and CLI evaluate sessions with the same
// cutoffs.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical log formats, and clear validation errors.
package config

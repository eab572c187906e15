// Package config loads, normalizes, and validates Mantrify client configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MANTRIFY_API_BASE_URL. The Config type centralizes the API endpoint, the
// composition limits enforced before submission, the sound catalog, and the
// polling and stall thresholds handed to the pipeline tracker.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

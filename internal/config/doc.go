// Package config loads, normalizes, and validates Shutterpost configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// BLOG_API_KEY. The Config type centralizes every knob the daemon and CLI
// need, so watch/failed directories, rate-limit budgets, and external service
// credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config

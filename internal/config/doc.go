// Package config loads, normalizes, and validates meetingintel configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads optional .env files, and honours
// environment fallbacks such as MEETINGINTEL_LLM_API_KEY. The pipeline section
// carries the stage registry definition (inline or in a YAML definition file)
// together with per-stage timeouts, so neither is hard-coded in the runner.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, parsed durations, and clear validation errors.
package config

// Package config loads, validates, and normalizes the TOML configuration
// for the de-identification pipeline.
package config

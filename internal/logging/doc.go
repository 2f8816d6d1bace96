// Package logging centralizes slog construction and the structured field
// vocabulary used across the pipeline.
package logging

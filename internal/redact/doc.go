// Package redact implements the metadata pattern matcher and the redaction
// policy settings that drive review decisions.
package redact

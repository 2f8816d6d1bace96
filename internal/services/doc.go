// Package services defines shared utilities consumed by the workflow engine
// and the batch operations.
//
// Key responsibilities:
//   - Context helpers that stamp item IDs, action names, and job identifiers
//     for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     into the outcome categories the batch engines report.
//
// Use these helpers when wiring new batch or per-item logic so operational
// behaviour (error handling, observability) stays uniform across the pipeline.
package services

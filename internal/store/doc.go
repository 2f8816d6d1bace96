// Package store persists managed items in SQLite. Items carry their workflow
// state, serialized redaction ledger, manifest fields, and export
// bookkeeping. All state-changing writes are compare-and-swap updates guarded
// by a per-item version so concurrent edits surface as conflicts instead of
// lost updates.
package store

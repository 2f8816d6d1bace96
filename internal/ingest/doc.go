// Package ingest reconciles the import location against its spreadsheet
// manifests. A run discovers slide files and manifests, matches files to rows
// by image identifier, ingests new and changed material into the workflow,
// and classifies every file and row into exactly one outcome category with a
// CSV audit report. Runs are serialized by a file lock and are idempotent:
// re-running over unchanged material reports everything as present.
package ingest

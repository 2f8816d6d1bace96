// Package manifest parses import manifests (xlsx or csv) into rows keyed by
// the configured token and image identifier fields. Malformed files surface as
// parse errors; malformed rows are collected individually so a single bad
// entry never sinks the run.
package manifest

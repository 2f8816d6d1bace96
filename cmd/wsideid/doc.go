// Package main hosts the wsideid CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into batch
// runs (import, export, label recognition), per-item workflow actions, and
// review queries against the item store. It centralizes configuration
// resolution and structured logging setup so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main

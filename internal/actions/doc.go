// Package actions is the operational surface of the pipeline. It exposes the
// batch operations (import, export, label recognition) as synchronous calls
// and as background jobs, dispatches the per-item workflow actions through a
// single named-action table, and answers the review queries a presentation
// layer needs.
package actions

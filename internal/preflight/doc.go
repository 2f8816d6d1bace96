// Package preflight provides readiness checks for the filesystem locations
// and external binaries the pipeline depends on.
//
// These checks run in two contexts:
//   - Batch runs (ingest, export) call RunAll before touching any item.
//     If the import or export share is unreachable the run aborts instead of
//     producing a half-reconciled outcome.
//   - The CLI "wsideid status" command uses individual check functions to
//     display pipeline health.
package preflight

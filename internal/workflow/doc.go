// Package workflow defines the item review state machine: the states an
// item moves through from intake to export and the legal transitions between
// them. It is purely declarative; the store applies transitions atomically
// and the action handlers attach side effects.
package workflow

package workflow

import "strings"

// State represents the review lifecycle of an item. Each state corresponds
// to a logical container (folder) holding the item.
type State string

const (
	// StateUnfiled holds files ingested without a manifest match.
	StateUnfiled State = "unfiled"
	// StateIngest holds matched files awaiting redaction review.
	StateIngest State = "ingest"
	// StateQuarantine holds items flagged for re-review after a correction.
	StateQuarantine State = "quarantine"
	// StateProcessed holds items with recorded redaction decisions awaiting
	// approval.
	StateProcessed State = "processed"
	// StateRejected holds explicitly rejected items.
	StateRejected State = "rejected"
	// StateFinished holds approved items eligible for export.
	StateFinished State = "finished"
)

var allStates = []State{
	StateUnfiled,
	StateIngest,
	StateQuarantine,
	StateProcessed,
	StateRejected,
	StateFinished,
}

var stateSet = func() map[State]struct{} {
	set := make(map[State]struct{}, len(allStates))
	for _, state := range allStates {
		set[state] = struct{}{}
	}
	return set
}()

// AllStates returns the ordered list of known states.
func AllStates() []State {
	cp := make([]State, len(allStates))
	copy(cp, allStates)
	return cp
}

// ParseState converts a string into a known State.
func ParseState(value string) (State, bool) {
	normalized := State(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := stateSet[normalized]
	return normalized, ok
}

// NeedsAttention reports whether a state still requires reviewer work.
func (s State) NeedsAttention() bool {
	switch s {
	case StateUnfiled, StateIngest, StateQuarantine, StateProcessed:
		return true
	default:
		return false
	}
}

// attentionOrder is the scan order used when picking the next item needing
// reviewer attention.
var attentionOrder = []State{StateUnfiled, StateIngest, StateQuarantine, StateProcessed}

// AttentionOrder returns the state scan order for next-unprocessed selection.
func AttentionOrder() []State {
	cp := make([]State, len(attentionOrder))
	copy(cp, attentionOrder)
	return cp
}

// AggregateState summarizes a set of item states into the single state shown
// for their containing folder. It is informational only; enforcement is
// always per item.
func AggregateState(states []State) State {
	present := map[State]bool{}
	for _, s := range states {
		present[s] = true
	}
	for _, s := range []State{StateUnfiled, StateQuarantine, StateIngest, StateProcessed, StateRejected} {
		if present[s] {
			return s
		}
	}
	return StateFinished
}

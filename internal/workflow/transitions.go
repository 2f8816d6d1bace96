package workflow

import (
	"fmt"
	"strings"
)

// Action names a reviewer or system operation that may move an item between
// states.
type Action string

const (
	// ActionProcess records redaction decisions and advances to processed.
	ActionProcess Action = "process"
	// ActionFinish approves a processed item for export.
	ActionFinish Action = "finish"
	// ActionReject refuses a processed item.
	ActionReject Action = "reject"
	// ActionQuarantine re-opens an item for correction.
	ActionQuarantine Action = "quarantine"
	// ActionUnquarantine returns a rejected item to the review queue.
	ActionUnquarantine Action = "unquarantine"
	// ActionRefile resolves an unfiled item against the manifest.
	ActionRefile Action = "refile"
)

var allActions = []Action{
	ActionProcess,
	ActionFinish,
	ActionReject,
	ActionQuarantine,
	ActionUnquarantine,
	ActionRefile,
}

// transitions maps each action to its legal source states and destination.
var transitions = map[Action]struct {
	from []State
	to   State
}{
	ActionProcess:      {from: []State{StateIngest, StateQuarantine}, to: StateProcessed},
	ActionFinish:       {from: []State{StateProcessed}, to: StateFinished},
	ActionReject:       {from: []State{StateProcessed}, to: StateRejected},
	ActionQuarantine:   {from: []State{StateIngest, StateProcessed, StateRejected, StateFinished}, to: StateQuarantine},
	ActionUnquarantine: {from: []State{StateRejected}, to: StateQuarantine},
	ActionRefile:       {from: []State{StateUnfiled}, to: StateIngest},
}

// AllActions returns the ordered list of known actions.
func AllActions() []Action {
	cp := make([]Action, len(allActions))
	copy(cp, allActions)
	return cp
}

// ParseAction converts a string into a known Action.
func ParseAction(value string) (Action, bool) {
	normalized := Action(strings.ToLower(strings.TrimSpace(value)))
	_, ok := transitions[normalized]
	return normalized, ok
}

// TransitionError reports an attempted illegal transition. The item's state
// is left unchanged by the caller.
type TransitionError struct {
	From   State
	Action Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s an item in state %s", e.Action, e.From)
}

// Next validates an action against the current state and returns the
// destination state.
func Next(from State, action Action) (State, error) {
	t, ok := transitions[action]
	if !ok {
		return "", &TransitionError{From: from, Action: action}
	}
	for _, legal := range t.from {
		if from == legal {
			return t.to, nil
		}
	}
	return "", &TransitionError{From: from, Action: action}
}

// Allowed returns the actions legal from the given state, in declaration
// order.
func Allowed(from State) []Action {
	var actions []Action
	for _, action := range allActions {
		if _, err := Next(from, action); err == nil {
			actions = append(actions, action)
		}
	}
	return actions
}

package applications

import (
	"fmt"
	"sort"
)

// State is an application lifecycle state.
type State string

const (
	StateDraft     State = "draft"
	StateSubmitted State = "submitted"
	StateReviewing State = "reviewing"
	StateAccepted  State = "accepted"
	StateRejected  State = "rejected"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// transitions lists the permitted next states from each state. Rejected,
// completed and cancelled are terminal.
var transitions = map[State][]State{
	StateDraft:     {StateSubmitted, StateCancelled},
	StateSubmitted: {StateReviewing, StateCancelled},
	StateReviewing: {StateAccepted, StateRejected},
	StateAccepted:  {StateCompleted, StateCancelled},
	StateRejected:  {},
	StateCompleted: {},
	StateCancelled: {},
}

var actionToState = map[string]State{
	"submit":   StateSubmitted,
	"review":   StateReviewing,
	"accept":   StateAccepted,
	"reject":   StateRejected,
	"complete": StateCompleted,
	"cancel":   StateCancelled,
}

var stateToAction = map[State]string{
	StateSubmitted: "submit",
	StateReviewing: "review",
	StateAccepted:  "accept",
	StateRejected:  "reject",
	StateCompleted: "complete",
	StateCancelled: "cancel",
}

// ValidState reports whether s is a known application state.
func ValidState(s State) bool {
	_, ok := transitions[s]
	return ok
}

// StateMachine governs the allowed transitions of one application. It is
// pure state: timestamps and side effects are the owning service's job.
type StateMachine struct {
	state State
}

// NewStateMachine creates a state machine positioned at initial. It fails
// with a ValidationError for unknown states so a corrupted status never
// silently becomes transitionable.
func NewStateMachine(initial State) (*StateMachine, error) {
	if !ValidState(initial) {
		return nil, &ValidationError{Reason: fmt.Sprintf("unknown application state: %q", initial)}
	}
	return &StateMachine{state: initial}, nil
}

// State returns the current state.
func (m *StateMachine) State() State {
	return m.state
}

// CanTransition reports whether action is valid from the current state.
func (m *StateMachine) CanTransition(action string) bool {
	target, ok := actionToState[action]
	if !ok {
		return false
	}
	for _, next := range transitions[m.state] {
		if next == target {
			return true
		}
	}
	return false
}

// Transition executes action and returns the new state. It fails with a
// ValidationError when the action is unknown or not permitted from the
// current state.
func (m *StateMachine) Transition(action string) (State, error) {
	if _, ok := actionToState[action]; !ok {
		return m.state, &ValidationError{Reason: fmt.Sprintf("unknown action: %q", action)}
	}
	if !m.CanTransition(action) {
		return m.state, &ValidationError{Reason: fmt.Sprintf(
			"cannot %s application in %s state, valid actions: %v",
			action, m.state, m.AvailableActions())}
	}
	m.state = actionToState[action]
	return m.state, nil
}

// AvailableActions returns the action names valid from the current state,
// sorted for deterministic output.
func (m *StateMachine) AvailableActions() []string {
	var actions []string
	for _, next := range transitions[m.state] {
		if action, ok := stateToAction[next]; ok {
			actions = append(actions, action)
		}
	}
	sort.Strings(actions)
	return actions
}

// IsTerminal reports whether the current state has no outgoing transitions.
func (m *StateMachine) IsTerminal() bool {
	return len(transitions[m.state]) == 0
}

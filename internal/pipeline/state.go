package pipeline

import "fmt"

// State is the worker state.
type State int

const (
	// StateIdle accepts a new submission.
	StateIdle State = iota
	// StateBusy has one request in flight and rejects submissions.
	StateBusy
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateBusy:
		return "Busy"
	default:
		return fmt.Sprintf("Unknown(%d)", s)
	}
}

// validTransitions defines the allowed state transitions.
var validTransitions = map[State][]State{
	StateIdle: {StateBusy},
	StateBusy: {StateIdle},
}

// CanTransitionTo checks if transitioning from the current state to the target state is valid.
func (s State) CanTransitionTo(target State) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

package workflows

import "fmt"

// StateMachine enforces status transitions
type StateMachine struct {
	current            string
	allowedTransitions map[string][]string
}

// NewStateMachine creates a state machine starting in initial
func NewStateMachine(initial string, transitions map[string][]string) *StateMachine {
	return &StateMachine{
		current:            initial,
		allowedTransitions: transitions,
	}
}

// Current returns the current status
func (sm *StateMachine) Current() string {
	return sm.current
}

// CanTransition checks if a status transition is allowed
func (sm *StateMachine) CanTransition(from, to string) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// Transition moves to status to, or fails leaving the state unchanged
func (sm *StateMachine) Transition(to string) error {
	if !sm.CanTransition(sm.current, to) {
		return fmt.Errorf("invalid transition from %s to %s", sm.current, to)
	}
	sm.current = to
	return nil
}

// GetAllowedTransitions returns the allowed next statuses for a given status
func (sm *StateMachine) GetAllowedTransitions(from string) []string {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []string{}
	}
	return allowed
}

// Package state defines the run phase machine.
package state

import "fmt"

// RunPhase represents the lifecycle phase of a script run.
type RunPhase int

const (
	// PhaseIdle is the phase before validation starts.
	PhaseIdle RunPhase = iota
	// PhaseValidating indicates the state graph is being checked.
	PhaseValidating
	// PhaseRunning indicates the runner loop is polling frames.
	PhaseRunning
	// PhaseCompleted indicates an action requested termination.
	PhaseCompleted
	// PhaseQuit indicates the operator quit or cancelled the run.
	PhaseQuit
	// PhaseStalled indicates the stall watchdog fired.
	PhaseStalled
	// PhaseFaulted indicates validation or infrastructure failure.
	PhaseFaulted
)

// String returns the string representation of the phase.
func (p RunPhase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseValidating:
		return "Validating"
	case PhaseRunning:
		return "Running"
	case PhaseCompleted:
		return "Completed"
	case PhaseQuit:
		return "Quit"
	case PhaseStalled:
		return "Stalled"
	case PhaseFaulted:
		return "Faulted"
	default:
		return fmt.Sprintf("Unknown(%d)", p)
	}
}

// validTransitions defines the allowed phase transitions.
// Key is the current phase, value is a list of valid target phases.
var validTransitions = map[RunPhase][]RunPhase{
	PhaseIdle:       {PhaseValidating},
	PhaseValidating: {PhaseRunning, PhaseFaulted},
	PhaseRunning:    {PhaseCompleted, PhaseQuit, PhaseStalled, PhaseFaulted},
	PhaseCompleted:  {},
	PhaseQuit:       {},
	PhaseStalled:    {},
	PhaseFaulted:    {},
}

// CanTransitionTo checks if moving from the current phase to target is valid.
func (p RunPhase) CanTransitionTo(target RunPhase) bool {
	for _, t := range validTransitions[p] {
		if t == target {
			return true
		}
	}
	return false
}

// ValidTransitions returns the list of valid target phases from the current phase.
func (p RunPhase) ValidTransitions() []RunPhase {
	return validTransitions[p]
}

// IsTerminal returns true if no further transitions are possible.
func (p RunPhase) IsTerminal() bool {
	switch p {
	case PhaseCompleted, PhaseQuit, PhaseStalled, PhaseFaulted:
		return true
	default:
		return false
	}
}

// IsFailure returns true for phases that end the process with a non-zero code.
func (p RunPhase) IsFailure() bool {
	return p == PhaseStalled || p == PhaseFaulted
}

// TransitionError represents an invalid phase transition attempt.
type TransitionError struct {
	From RunPhase
	To   RunPhase
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid phase transition from %s to %s", e.From, e.To)
}

// Machine tracks the current phase and enforces the transition table.
// It is owned by a single runner goroutine.
type Machine struct {
	phase RunPhase
}

// Phase returns the current phase.
func (m *Machine) Phase() RunPhase {
	return m.phase
}

// Transition moves to target and returns the previous phase.
func (m *Machine) Transition(target RunPhase) (RunPhase, error) {
	if !m.phase.CanTransitionTo(target) {
		return m.phase, &TransitionError{From: m.phase, To: target}
	}
	old := m.phase
	m.phase = target
	return old, nil
}

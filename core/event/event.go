// Package event defines all events that can be published by a run.
// Events represent lifecycle changes and are consumed by observers such as
// the journal, the metrics collector and the log.
package event

import (
	"time"

	"autopad-go/core/state"
)

// Event is the base interface for all events.
type Event interface {
	// EventName returns the name of the event for logging/debugging
	EventName() string
}

// RunEvent is an event that originates from a specific run.
type RunEvent interface {
	Event
	// RunID returns the source run ID
	RunID() string
	// OccurredAt returns the engine clock time of the event
	OccurredAt() time.Time
}

type baseRunEvent struct {
	runID string
	at    time.Time
}

func (e *baseRunEvent) RunID() string {
	return e.runID
}

func (e *baseRunEvent) OccurredAt() time.Time {
	return e.at
}

// StopReason indicates why a run stopped.
type StopReason int

const (
	// StopReasonNormal indicates an action requested termination.
	StopReasonNormal StopReason = iota
	// StopReasonQuit indicates the operator pressed the quit key.
	StopReasonQuit
	// StopReasonManual indicates the run context was cancelled.
	StopReasonManual
	// StopReasonStalled indicates the stall watchdog fired.
	StopReasonStalled
	// StopReasonError indicates a validation or infrastructure fault.
	StopReasonError
)

func (r StopReason) String() string {
	switch r {
	case StopReasonNormal:
		return "Normal"
	case StopReasonQuit:
		return "Quit"
	case StopReasonManual:
		return "Manual"
	case StopReasonStalled:
		return "Stalled"
	case StopReasonError:
		return "Error"
	default:
		return "Unknown"
	}
}

// RunStarted is published once the graph validated and the loop begins.
type RunStarted struct {
	baseRunEvent
	ScriptName   string
	InitialState string
}

func NewRunStarted(runID string, at time.Time, scriptName, initial string) *RunStarted {
	return &RunStarted{
		baseRunEvent: baseRunEvent{runID: runID, at: at},
		ScriptName:   scriptName,
		InitialState: initial,
	}
}

func (e *RunStarted) EventName() string {
	return "RunStarted"
}

// StateTransitioned is published when the current state changes.
type StateTransitioned struct {
	baseRunEvent
	From string
	To   string
	// Dwell is how long the run stayed in From.
	Dwell time.Duration
}

func NewStateTransitioned(runID string, at time.Time, from, to string, dwell time.Duration) *StateTransitioned {
	return &StateTransitioned{
		baseRunEvent: baseRunEvent{runID: runID, at: at},
		From:         from,
		To:           to,
		Dwell:        dwell,
	}
}

func (e *StateTransitioned) EventName() string {
	return "StateTransitioned"
}

// RunPhaseChanged is published when the run phase changes.
type RunPhaseChanged struct {
	baseRunEvent
	OldPhase state.RunPhase
	NewPhase state.RunPhase
}

func NewRunPhaseChanged(runID string, at time.Time, oldPhase, newPhase state.RunPhase) *RunPhaseChanged {
	return &RunPhaseChanged{
		baseRunEvent: baseRunEvent{runID: runID, at: at},
		OldPhase:     oldPhase,
		NewPhase:     newPhase,
	}
}

func (e *RunPhaseChanged) EventName() string {
	return "RunPhaseChanged"
}

// RunStopped is published when a run ends for any reason.
type RunStopped struct {
	baseRunEvent
	ScriptName  string
	State       string
	Reason      StopReason
	ExitCode    int
	Polls       int
	Transitions int
	Error       error // nil unless Reason is Stalled or Error
}

func NewRunStopped(runID string, at time.Time, scriptName, st string, reason StopReason, exitCode, polls, transitions int, err error) *RunStopped {
	return &RunStopped{
		baseRunEvent: baseRunEvent{runID: runID, at: at},
		ScriptName:   scriptName,
		State:        st,
		Reason:       reason,
		ExitCode:     exitCode,
		Polls:        polls,
		Transitions:  transitions,
		Error:        err,
	}
}

func (e *RunStopped) EventName() string {
	return "RunStopped"
}

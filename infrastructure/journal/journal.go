// Package journal keeps a write-only history of runs: one document per run
// with its transition path and outcome. It is never read back by the engine.
package journal

import (
	"context"
	"time"
)

// Run is the opening record of a run.
type Run struct {
	ID        string
	Script    string
	Initial   string
	StartedAt time.Time
}

// Transition is one state change within a run.
type Transition struct {
	From  string
	To    string
	At    time.Time
	Dwell time.Duration
}

// Outcome closes a run record.
type Outcome struct {
	EndedAt     time.Time
	State       string
	Reason      string
	ExitCode    int
	Polls       int
	Transitions int
	Error       string
}

// Store persists run history.
type Store interface {
	StartRun(ctx context.Context, run Run) error
	AppendTransition(ctx context.Context, runID string, t Transition) error
	FinishRun(ctx context.Context, runID string, o Outcome) error
}

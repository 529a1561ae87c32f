package runner

import (
	"fmt"
	"time"
)

// UnknownStateError is returned when the initial state is not in the graph.
type UnknownStateError struct {
	State string
}

func (e *UnknownStateError) Error() string {
	return fmt.Sprintf("initial state %s is not defined", e.State)
}

// StallError is returned when no transition happened within the stall
// timeout. The screen is most likely not what the script believes it is.
type StallError struct {
	State   string
	Elapsed time.Duration
	Timeout time.Duration
}

func (e *StallError) Error() string {
	return fmt.Sprintf("stalled in state %s for %s (timeout %s)", e.State, e.Elapsed, e.Timeout)
}

// TerminalReachedError is returned when a rule moves into the terminal
// sentinel without its action requesting termination first.
type TerminalReachedError struct {
	From string
}

func (e *TerminalReachedError) Error() string {
	return fmt.Sprintf("state %s transitioned to the terminal state without exiting", e.From)
}

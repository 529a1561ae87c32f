// Package timer injects elapsed-time and counting state into the
// frame-reactive rule model. Each helper is shared by reference between the
// rule that arms or updates it and the rule that checks it.
package timer

import (
	"context"
	"time"

	"autopad-go/core/clock"
	"autopad-go/domain/action"
	"autopad-go/domain/frame"
	"autopad-go/domain/match"
)

// Timeout is a deadline cell. A fresh Timeout, including the zero value, is
// already expired. The zero value reads the system clock.
type Timeout struct {
	clock clock.Clock
	end   time.Time
}

// NewTimeout creates a Timeout reading time from c (system clock when nil).
func NewTimeout(c clock.Clock) *Timeout {
	if c == nil {
		c = clock.System{}
	}
	return &Timeout{clock: c}
}

func (t *Timeout) now() time.Time {
	if t.clock == nil {
		return clock.System{}.Now()
	}
	return t.clock.Now()
}

// After returns an action that arms the deadline at now+d.
func (t *Timeout) After(d time.Duration) action.Action {
	return action.Func(func(context.Context, *action.Device) (action.Result, error) {
		t.end = t.now().Add(d)
		return action.Continue, nil
	})
}

// Expired returns a matcher that is true once the clock is past the deadline
// and stays true until the timeout is re-armed.
func (t *Timeout) Expired() match.Matcher {
	return match.Func(func(*frame.Frame) bool {
		return t.now().After(t.end)
	})
}

// Remaining is the time left before expiry, never negative.
func (t *Timeout) Remaining() time.Duration {
	if d := t.end.Sub(t.now()); d > 0 {
		return d
	}
	return 0
}

// Debounce suppresses an inner matcher for a hold period, e.g. a crash
// dialog check that must stay quiet while the game restarts.
type Debounce struct {
	inner match.Matcher
	hold  *Timeout
}

// NewDebounce wraps inner. Until Hold is executed the inner matcher is live.
func NewDebounce(c clock.Clock, inner match.Matcher) *Debounce {
	return &Debounce{inner: inner, hold: NewTimeout(c)}
}

// Hold returns an action that silences the inner matcher for d.
func (db *Debounce) Hold(d time.Duration) action.Action {
	return db.hold.After(d)
}

// Check matches when the hold has elapsed and the inner matcher matches. The
// inner matcher is not evaluated during the hold.
func (db *Debounce) Check() match.Matcher {
	return match.All(db.hold.Expired(), db.inner)
}

// Counter is an integer cell for scripts that count attempts or loops.
type Counter struct {
	n int
}

// Value returns the current count.
func (c *Counter) Value() int { return c.n }

// Incr returns an action that adds one.
func (c *Counter) Incr() action.Action {
	return action.Func(func(context.Context, *action.Device) (action.Result, error) {
		c.n++
		return action.Continue, nil
	})
}

// Reset returns an action that sets the count to zero.
func (c *Counter) Reset() action.Action {
	return action.Func(func(context.Context, *action.Device) (action.Result, error) {
		c.n = 0
		return action.Continue, nil
	})
}

// AtLeast matches once the count reaches n.
func (c *Counter) AtLeast(n int) match.Matcher {
	return match.Func(func(*frame.Frame) bool {
		return c.n >= n
	})
}

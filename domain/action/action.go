// Package action provides the effects state-graph rules perform: controller
// writes and frame-draining waits.
package action

import (
	"context"
	"log/slog"
	"time"

	"autopad-go/core/clock"
	"autopad-go/domain/frame"
)

// Controller is the command channel to the controller firmware.
type Controller interface {
	Write(p []byte) (int, error)
}

// Device bundles everything an action may touch.
type Device struct {
	Controller Controller
	Frames     frame.Source
	Clock      clock.Clock
	Logger     *slog.Logger
}

// Now returns the device clock's time.
func (d *Device) Now() time.Time {
	if d.Clock == nil {
		return time.Now()
	}
	return d.Clock.Now()
}

func (d *Device) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// Wait blocks for dur while continuously pulling frames, so the capture
// buffer never accumulates stale frames. It returns the frame source's error,
// including frame.ErrQuit, as soon as one occurs.
func (d *Device) Wait(ctx context.Context, dur time.Duration) error {
	end := d.Now().Add(dur)

	if d.Frames == nil {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(dur):
			return nil
		}
	}

	for d.Now().Before(end) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := d.Frames.Next(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Result tells the runner whether to keep going.
type Result struct {
	terminate bool
	code      int
}

// Continue is the result of an ordinary action.
var Continue = Result{}

// Terminate asks the runner to end the run with the given exit code.
func Terminate(code int) Result {
	return Result{terminate: true, code: code}
}

// Terminated reports whether the run should end.
func (r Result) Terminated() bool { return r.terminate }

// Code is the requested exit code; meaningful only when Terminated.
func (r Result) Code() int { return r.code }

// Action is an effect executed when a rule fires.
type Action interface {
	Run(ctx context.Context, d *Device) (Result, error)
}

// Func adapts a function to Action.
type Func func(ctx context.Context, d *Device) (Result, error)

// Run calls fn(ctx, d).
func (fn Func) Run(ctx context.Context, d *Device) (Result, error) { return fn(ctx, d) }

// Nothing does nothing.
var Nothing Action = Func(func(context.Context, *Device) (Result, error) { return Continue, nil })

type sequence []Action

func (s sequence) Run(ctx context.Context, d *Device) (Result, error) {
	for _, a := range s {
		res, err := a.Run(ctx, d)
		if err != nil || res.Terminated() {
			return res, err
		}
	}
	return Continue, nil
}

// Do runs actions in order against the same device. It stops at the first
// error or termination request and returns it.
func Do(actions ...Action) Action {
	return sequence(actions)
}

// Exit ends the run with code. The rule carrying it conventionally targets
// the terminal sentinel, which is never entered.
func Exit(code int) Action {
	return Func(func(ctx context.Context, d *Device) (Result, error) {
		d.logger().Info("Exit requested", "code", code)
		return Terminate(code), nil
	})
}

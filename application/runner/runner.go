// Package runner drives a validated state graph against live frames: it
// polls the frame source, evaluates the current state's rules in priority
// order, runs the first matching rule's action, transitions, and enforces the
// stall timeout.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"autopad-go/core/clock"
	"autopad-go/core/event"
	"autopad-go/core/eventbus"
	"autopad-go/core/state"
	"autopad-go/domain/action"
	"autopad-go/domain/frame"
	"autopad-go/domain/graph"
)

// DefaultStallTimeout is how long a run may stay in one state.
const DefaultStallTimeout = 420 * time.Second

// NoStallTimeout disables the stall watchdog.
const NoStallTimeout time.Duration = -1

// ManualExitCode is the exit code of a run cancelled through its context.
const ManualExitCode = 130

// Outcome summarizes a finished run.
type Outcome[S comparable] struct {
	Reason      event.StopReason
	ExitCode    int
	State       S
	Polls       int
	Transitions int
	Phase       state.RunPhase
}

// Option configures a Runner.
type Option func(*options)

type options struct {
	stallTimeout time.Duration
	logger       *slog.Logger
	bus          eventbus.EventBus
	runID        string
	name         string
}

// WithStallTimeout overrides DefaultStallTimeout. NoStallTimeout disables it.
func WithStallTimeout(d time.Duration) Option {
	return func(o *options) { o.stallTimeout = d }
}

// WithLogger sets the runner's logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEventBus publishes run events to bus.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(o *options) { o.bus = bus }
}

// WithRunID sets the run identifier; a random UUID is used otherwise.
func WithRunID(id string) Option {
	return func(o *options) { o.runID = id }
}

// WithName sets the script name reported in events.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// Runner executes one run of a graph. It is single-use and not safe for
// concurrent use.
type Runner[S comparable] struct {
	graph   *graph.Graph[S]
	initial S
	device  *action.Device
	clock   clock.Clock
	opts    options
	logger  *slog.Logger
	machine state.Machine
}

// New prepares a run of g starting at initial. The initial state must be a
// state of g. Nothing is read or written before Run.
func New[S comparable](g *graph.Graph[S], initial S, dev *action.Device, opts ...Option) (*Runner[S], error) {
	o := options{stallTimeout: DefaultStallTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.runID == "" {
		o.runID = uuid.NewString()
	}

	r := &Runner[S]{
		graph:   g,
		initial: initial,
		device:  dev,
		opts:    o,
		logger:  o.logger.With("run_id", o.runID),
	}
	if dev != nil {
		r.clock = dev.Clock
	}
	if r.clock == nil {
		r.clock = clock.System{}
	}

	r.setPhase(state.PhaseValidating)
	if err := r.validate(); err != nil {
		r.setPhase(state.PhaseFaulted)
		return nil, err
	}
	return r, nil
}

func (r *Runner[S]) validate() error {
	if r.device == nil || r.device.Frames == nil {
		return errors.New("runner requires a device with a frame source")
	}
	if !r.graph.Has(r.initial) {
		return &UnknownStateError{State: fmt.Sprint(r.initial)}
	}
	return nil
}

// RunID returns the run identifier.
func (r *Runner[S]) RunID() string {
	return r.opts.runID
}

// Phase returns the current run phase.
func (r *Runner[S]) Phase() state.RunPhase {
	return r.machine.Phase()
}

// Run polls frames until an action terminates the run, the quit key is
// pressed, ctx is cancelled, or a fault occurs. The outcome is always
// populated; err is non-nil for faults, stalls and cancellation.
func (r *Runner[S]) Run(ctx context.Context) (Outcome[S], error) {
	out := Outcome[S]{State: r.initial}
	if err := r.setPhase(state.PhaseRunning); err != nil {
		return out, fmt.Errorf("failed to start run: %w", err)
	}

	current := r.initial
	lastTransition := r.clock.Now()
	r.publish(event.NewRunStarted(r.opts.runID, lastTransition, r.opts.name, fmt.Sprint(current)))
	r.logger.Info("Run started", "script", r.opts.name, "state", current, "stall_timeout", r.opts.stallTimeout)

	for {
		out.State = current

		if err := ctx.Err(); err != nil {
			return r.finish(out, event.StopReasonManual, ManualExitCode, err)
		}

		f, err := r.device.Frames.Next(ctx)
		if err != nil {
			return r.interrupted(ctx, out, fmt.Errorf("failed to read frame: %w", err))
		}
		out.Polls++

		rules, _ := r.graph.Rules(current)
		for _, rule := range rules {
			if !rule.Matcher.Match(f) {
				continue
			}

			res, err := rule.Action.Run(ctx, r.device)
			if err != nil {
				return r.interrupted(ctx, out, fmt.Errorf("failed to run action in state %v: %w", current, err))
			}
			if res.Terminated() {
				return r.finish(out, event.StopReasonNormal, res.Code(), nil)
			}

			if rule.Next != current {
				if rule.Next == r.graph.Terminal() {
					return r.finish(out, event.StopReasonError, 1, &TerminalReachedError{From: fmt.Sprint(current)})
				}
				now := r.clock.Now()
				r.logger.Info("State transition", "from", current, "to", rule.Next)
				r.publish(event.NewStateTransitioned(r.opts.runID, now, fmt.Sprint(current), fmt.Sprint(rule.Next), now.Sub(lastTransition)))
				current = rule.Next
				out.State = current
				out.Transitions++
				lastTransition = now
			}
			break
		}

		if r.opts.stallTimeout >= 0 {
			if elapsed := r.clock.Now().Sub(lastTransition); elapsed > r.opts.stallTimeout {
				return r.finish(out, event.StopReasonStalled, 1, &StallError{
					State:   fmt.Sprint(current),
					Elapsed: elapsed,
					Timeout: r.opts.stallTimeout,
				})
			}
		}
	}
}

// interrupted classifies an error from the frame source or an action.
func (r *Runner[S]) interrupted(ctx context.Context, out Outcome[S], err error) (Outcome[S], error) {
	switch {
	case errors.Is(err, frame.ErrQuit):
		return r.finish(out, event.StopReasonQuit, 0, nil)
	case ctx.Err() != nil:
		return r.finish(out, event.StopReasonManual, ManualExitCode, ctx.Err())
	default:
		return r.finish(out, event.StopReasonError, 1, err)
	}
}

func (r *Runner[S]) finish(out Outcome[S], reason event.StopReason, code int, err error) (Outcome[S], error) {
	out.Reason = reason
	out.ExitCode = code

	var phase state.RunPhase
	switch reason {
	case event.StopReasonNormal:
		phase = state.PhaseCompleted
	case event.StopReasonQuit, event.StopReasonManual:
		phase = state.PhaseQuit
	case event.StopReasonStalled:
		phase = state.PhaseStalled
	default:
		phase = state.PhaseFaulted
	}
	r.setPhase(phase)
	out.Phase = phase

	attrs := []any{
		"reason", reason,
		"exit_code", code,
		"state", out.State,
		"polls", out.Polls,
		"transitions", out.Transitions,
	}
	if err != nil && phase.IsFailure() {
		r.logger.Error("Run failed", append(attrs, "error", err)...)
	} else {
		r.logger.Info("Run stopped", attrs...)
	}

	r.publish(event.NewRunStopped(r.opts.runID, r.clock.Now(), r.opts.name, fmt.Sprint(out.State),
		reason, code, out.Polls, out.Transitions, err))
	return out, err
}

func (r *Runner[S]) setPhase(target state.RunPhase) error {
	old, err := r.machine.Transition(target)
	if err != nil {
		return err
	}
	r.publish(event.NewRunPhaseChanged(r.opts.runID, r.clock.Now(), old, target))
	return nil
}

func (r *Runner[S]) publish(e event.Event) {
	if r.opts.bus != nil {
		r.opts.bus.Publish(e)
	}
}

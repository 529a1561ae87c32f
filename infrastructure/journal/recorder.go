package journal

import (
	"context"
	"log/slog"
	"time"

	"autopad-go/core/event"
	"autopad-go/core/eventbus"
)

// Recorder writes run events from the bus into a Store. Store failures are
// logged and never reach the engine.
type Recorder struct {
	store   Store
	timeout time.Duration
	logger  *slog.Logger
	subID   string
	bus     eventbus.EventBus
}

// NewRecorder creates a recorder for store.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		store:   store,
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

// Attach subscribes the recorder to every run on bus.
func (r *Recorder) Attach(bus eventbus.EventBus) {
	r.bus = bus
	r.subID = bus.Subscribe(r.Handle)
}

// Detach removes the subscription.
func (r *Recorder) Detach() {
	if r.bus != nil {
		r.bus.Unsubscribe(r.subID)
		r.bus = nil
	}
}

// Handle records a single event.
func (r *Recorder) Handle(e event.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	var err error
	switch ev := e.(type) {
	case *event.RunStarted:
		err = r.store.StartRun(ctx, Run{
			ID:        ev.RunID(),
			Script:    ev.ScriptName,
			Initial:   ev.InitialState,
			StartedAt: ev.OccurredAt(),
		})
	case *event.StateTransitioned:
		err = r.store.AppendTransition(ctx, ev.RunID(), Transition{
			From:  ev.From,
			To:    ev.To,
			At:    ev.OccurredAt(),
			Dwell: ev.Dwell,
		})
	case *event.RunStopped:
		o := Outcome{
			EndedAt:     ev.OccurredAt(),
			State:       ev.State,
			Reason:      ev.Reason.String(),
			ExitCode:    ev.ExitCode,
			Polls:       ev.Polls,
			Transitions: ev.Transitions,
		}
		if ev.Error != nil {
			o.Error = ev.Error.Error()
		}
		err = r.store.FinishRun(ctx, ev.RunID(), o)
	default:
		return
	}

	if err != nil {
		r.logger.Warn("Failed to journal event", "event", e.EventName(), "error", err)
	}
}

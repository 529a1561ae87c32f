// Package metrics exports run progress as Prometheus metrics and serves a
// small status API next to them.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"autopad-go/core/event"
	"autopad-go/core/eventbus"
)

// Status is the latest known state of the current (or last) run.
type Status struct {
	RunID       string    `json:"run_id"`
	Script      string    `json:"script"`
	Phase       string    `json:"phase"`
	State       string    `json:"state"`
	Transitions int       `json:"transitions"`
	Since       time.Time `json:"since"`
	Reason      string    `json:"reason,omitempty"`
	ExitCode    *int      `json:"exit_code,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Collector turns bus events into metrics.
type Collector struct {
	registry *prometheus.Registry

	runsStarted *prometheus.CounterVec
	runsStopped *prometheus.CounterVec
	transitions *prometheus.CounterVec
	dwell       *prometheus.HistogramVec
	polls       prometheus.Gauge

	mu     sync.RWMutex
	status Status
	subID  string
	bus    eventbus.EventBus
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runsStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autopad_runs_started_total",
				Help: "Total number of runs started",
			},
			[]string{"script"},
		),
		runsStopped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autopad_runs_stopped_total",
				Help: "Total number of runs stopped, by reason",
			},
			[]string{"script", "reason"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "autopad_state_transitions_total",
				Help: "Total number of state transitions",
			},
			[]string{"from", "to"},
		),
		dwell: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "autopad_state_dwell_seconds",
				Help:    "Time spent in a state before leaving it",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"state"},
		),
		polls: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "autopad_last_run_polls",
				Help: "Frames polled by the last finished run",
			},
		),
	}
	c.registry.MustRegister(c.runsStarted, c.runsStopped, c.transitions, c.dwell, c.polls)
	return c
}

// Registry returns the registry metrics are registered on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Attach subscribes the collector to bus.
func (c *Collector) Attach(bus eventbus.EventBus) {
	c.bus = bus
	c.subID = bus.Subscribe(c.Handle)
}

// Detach removes the subscription.
func (c *Collector) Detach() {
	if c.bus != nil {
		c.bus.Unsubscribe(c.subID)
		c.bus = nil
	}
}

// Handle records a single event.
func (c *Collector) Handle(e event.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev := e.(type) {
	case *event.RunStarted:
		c.runsStarted.WithLabelValues(ev.ScriptName).Inc()
		c.status = Status{
			RunID:  ev.RunID(),
			Script: ev.ScriptName,
			State:  ev.InitialState,
			Since:  ev.OccurredAt(),
			Phase:  c.status.Phase,
		}
	case *event.RunPhaseChanged:
		c.status.Phase = ev.NewPhase.String()
	case *event.StateTransitioned:
		c.transitions.WithLabelValues(ev.From, ev.To).Inc()
		c.dwell.WithLabelValues(ev.From).Observe(ev.Dwell.Seconds())
		c.status.State = ev.To
		c.status.Since = ev.OccurredAt()
		c.status.Transitions++
	case *event.RunStopped:
		c.runsStopped.WithLabelValues(ev.ScriptName, ev.Reason.String()).Inc()
		c.polls.Set(float64(ev.Polls))
		code := ev.ExitCode
		c.status.Reason = ev.Reason.String()
		c.status.ExitCode = &code
		if ev.Error != nil {
			c.status.Error = ev.Error.Error()
		}
	}
}

// Status returns a copy of the current status.
func (c *Collector) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"autopad-go/core/eventbus"
	"autopad-go/infrastructure/journal"
	"autopad-go/infrastructure/metrics"
)

// observers feeds run events to the journal and the metrics endpoint. Both
// are optional and never influence the run.
type observers struct {
	bus       eventbus.EventBus
	collector *metrics.Collector
	server    *metrics.Server
	recorder  *journal.Recorder
	runs      *journal.MongoRunRepository
	logger    *slog.Logger
}

func (a *app) startObservers(ctx context.Context) (*observers, error) {
	o := &observers{
		bus:    eventbus.NewWithLogger(256, a.logger),
		logger: a.logger,
	}

	if a.cfg.Metrics.Enabled {
		o.collector = metrics.NewCollector()
		o.collector.Attach(o.bus)
		srv, err := metrics.Start(a.cfg.Metrics.Addr, o.collector, a.logger)
		if err != nil {
			o.Close()
			return nil, fmt.Errorf("failed to start metrics server: %w", err)
		}
		o.server = srv
	}

	if a.cfg.Journal.Enabled {
		runs, err := journal.Open(ctx, a.cfg.Mongo(), a.logger)
		if err != nil {
			o.Close()
			return nil, err
		}
		o.runs = runs
		o.recorder = journal.NewRecorder(runs, a.logger)
		o.recorder.Attach(o.bus)
	}

	return o, nil
}

// Close drains pending events before tearing down the sinks.
func (o *observers) Close() {
	o.bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if o.server != nil {
		if err := o.server.Shutdown(ctx); err != nil {
			o.logger.Warn("Failed to stop metrics server", "error", err)
		}
	}
	if o.runs != nil {
		if err := o.runs.Close(ctx); err != nil {
			o.logger.Warn("Failed to close journal", "error", err)
		}
	}
}

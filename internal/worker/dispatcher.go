package worker

import (
	"context"
	"log/slog"

	"github.com/Priya8975/status-relay/internal/domain"
	"github.com/Priya8975/status-relay/internal/engine"
)

// IncidentHandler processes one incident update event to completion.
type IncidentHandler interface {
	OnIncidentUpdate(ctx context.Context, event domain.IncidentUpdateEvent) (engine.FanOutResult, error)
}

// ErrorReporter receives failures that need a human, such as a fan-out that
// could not read subscriptions.
type ErrorReporter interface {
	CaptureError(err error, tags map[string]string)
}

// Dispatcher feeds incident update events to the reconciler one at a time,
// in the order the feed produced them.
type Dispatcher struct {
	events   <-chan domain.IncidentUpdateEvent
	handler  IncidentHandler
	reporter ErrorReporter
	logger   *slog.Logger
}

func NewDispatcher(events <-chan domain.IncidentUpdateEvent, handler IncidentHandler, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		events:  events,
		handler: handler,
		logger:  logger,
	}
}

// Start consumes events until ctx is cancelled or the feed closes. A
// fan-out that has started is allowed to settle even if ctx is cancelled
// while it runs.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping")
			return
		case ev, ok := <-d.events:
			if !ok {
				d.logger.Info("incident feed closed, dispatcher stopping")
				return
			}
			d.dispatch(ctx, ev)
		}
	}
}

// SetErrorReporter makes failed fan-outs reach r in addition to the log.
func (d *Dispatcher) SetErrorReporter(r ErrorReporter) {
	d.reporter = r
}

func (d *Dispatcher) dispatch(ctx context.Context, ev domain.IncidentUpdateEvent) {
	res, err := d.handler.OnIncidentUpdate(context.WithoutCancel(ctx), ev)
	if err != nil {
		d.logger.Error("fan-out failed",
			"incident_id", ev.IncidentID(),
			"cycle_id", res.CycleID,
			"error", err,
		)
		if d.reporter != nil {
			d.reporter.CaptureError(err, map[string]string{
				"component":   "dispatcher",
				"incident_id": ev.IncidentID(),
				"cycle_id":    res.CycleID,
			})
		}
	}
}

package statuspage

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/Priya8975/status-relay/internal/domain"
	"github.com/Priya8975/status-relay/internal/metrics"
)

// IncidentSource lists incidents newest first.
type IncidentSource interface {
	Incidents(ctx context.Context) ([]domain.Incident, error)
}

// Poller turns periodic incident listings into an ordered stream of
// incident update events.
type Poller struct {
	source    IncidentSource
	snapshots SnapshotStore
	logger    *slog.Logger
	metrics   metrics.Recorder
	interval  time.Duration

	previous Snapshot
	primed   bool
}

func NewPoller(source IncidentSource, snapshots SnapshotStore, interval time.Duration, logger *slog.Logger, rec metrics.Recorder) *Poller {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Poller{
		source:    source,
		snapshots: snapshots,
		logger:    logger,
		metrics:   rec,
		interval:  interval,
	}
}

// Load restores the previous snapshot. Without one, the next poll only
// primes the snapshot so existing history is not announced.
func (p *Poller) Load(ctx context.Context) error {
	snap, ok, err := p.snapshots.Load(ctx)
	if err != nil {
		return err
	}
	p.previous = snap
	p.primed = ok
	return nil
}

// Poll fetches incidents once and returns the events for every update not
// present in the previous snapshot. On error the snapshot is left as is.
func (p *Poller) Poll(ctx context.Context) ([]domain.IncidentUpdateEvent, error) {
	incidents, err := p.source.Incidents(ctx)
	if err != nil {
		p.metrics.RecordPoll(false, 0)
		return nil, err
	}

	var events []domain.IncidentUpdateEvent
	if p.primed {
		events = Diff(p.previous, incidents, time.Now().UTC())
	} else {
		p.logger.Info("priming incident snapshot", "incidents", len(incidents))
	}

	current := SnapshotOf(incidents)
	if err := p.snapshots.Save(ctx, current); err != nil {
		p.logger.Error("failed to persist incident snapshot", "error", err)
	}
	p.previous = current
	p.primed = true

	p.metrics.RecordPoll(true, len(events))
	return events, nil
}

// Run polls on the configured interval and sends events to out until ctx
// is done. It closes out on return.
func (p *Poller) Run(ctx context.Context, out chan<- domain.IncidentUpdateEvent) {
	defer close(out)

	if err := p.Load(ctx); err != nil {
		p.logger.Error("failed to load incident snapshot, priming from scratch", "error", err)
	}

	p.logger.Info("poller started", "interval", p.interval.String(), "primed", p.primed)
	defer p.logger.Info("poller stopped")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if !p.cycle(ctx, out) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) cycle(ctx context.Context, out chan<- domain.IncidentUpdateEvent) bool {
	start := time.Now()
	events, err := p.Poll(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Warn("poll cycle failed", "error", err)
		return true
	}

	p.logger.Debug("poll-cycle", "events", len(events), "duration_ms", time.Since(start).Milliseconds())

	for _, ev := range events {
		latest, _ := ev.Latest()
		p.logger.Info("incident update observed",
			"incident_id", ev.IncidentID(),
			"update_id", latest.ID,
			"status", string(latest.Status),
		)
		select {
		case out <- ev:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// Diff compares incidents against prev and returns one event per unseen
// update, oldest first. Each event's incident carries the update history
// up to and including the announced update, so Latest is that update.
func Diff(prev Snapshot, incidents []domain.Incident, observedAt time.Time) []domain.IncidentUpdateEvent {
	var events []domain.IncidentUpdateEvent

	// incidents and their updates are listed newest first
	for i := len(incidents) - 1; i >= 0; i-- {
		inc := incidents[i]
		seen := prev[inc.ID]

		for u := len(inc.Updates) - 1; u >= 0; u-- {
			if slices.Contains(seen, inc.Updates[u].ID) {
				continue
			}
			snapshot := inc
			snapshot.Updates = slices.Clone(inc.Updates[u:])
			events = append(events, domain.IncidentUpdateEvent{
				Incident:   snapshot,
				ObservedAt: observedAt,
			})
		}
	}

	return events
}

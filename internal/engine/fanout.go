package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Priya8975/status-relay/internal/domain"
	"github.com/Priya8975/status-relay/internal/render"
	"github.com/Priya8975/status-relay/internal/webhook"
)

// FanOutResult aggregates one pass over every subscription.
type FanOutResult struct {
	CycleID    string                   `json:"cycle_id"`
	IncidentID string                   `json:"incident_id"`
	UpdateID   string                   `json:"update_id"`
	Total      int                      `json:"total"`
	Success    int                      `json:"success"`
	Failed     int                      `json:"failed"`
	Skipped    int                      `json:"skipped"`
	Duration   time.Duration            `json:"duration"`
	Outcomes   []domain.DeliveryOutcome `json:"outcomes"`
}

// Reconciler delivers incident updates to every subscription. It keeps no
// state of its own between passes.
type Reconciler struct {
	deps Deps
}

func NewReconciler(deps Deps) *Reconciler {
	return &Reconciler{deps: deps.withDefaults()}
}

// OnIncidentUpdate announces the latest update of event to every
// subscription. Deliveries run concurrently and each settles independently;
// a failed delivery leaves its subscription untouched so the update stays
// eligible on the next event for the same incident. The returned error is
// non-nil only when the subscription snapshot could not be read.
func (r *Reconciler) OnIncidentUpdate(ctx context.Context, event domain.IncidentUpdateEvent) (FanOutResult, error) {
	start := time.Now()
	result := FanOutResult{
		CycleID:    uuid.NewString(),
		IncidentID: event.IncidentID(),
	}
	logger := r.deps.Logger.With("cycle_id", result.CycleID, "incident_id", result.IncidentID)

	latest, ok := event.Latest()
	if !ok {
		logger.Warn("incident has no updates, nothing to deliver")
		return result, nil
	}
	result.UpdateID = latest.ID

	subs, err := r.deps.Store.ListAll(ctx)
	if err != nil {
		return result, fmt.Errorf("listing subscriptions: %w", err)
	}

	outcomes := make([]domain.DeliveryOutcome, len(subs))

	var g errgroup.Group
	if r.deps.Concurrency > 0 {
		g.SetLimit(r.deps.Concurrency)
	}
	for i := range subs {
		i := i
		g.Go(func() error {
			outcomes[i] = r.deliver(ctx, &subs[i], event, latest)
			return nil
		})
	}
	g.Wait()

	result.Outcomes = outcomes
	result.Total = len(outcomes)
	for _, o := range outcomes {
		switch o.Kind {
		case domain.OutcomeSent:
			result.Success++
		case domain.OutcomeFailed:
			result.Failed++
		case domain.OutcomeSkipped:
			result.Skipped++
		}
	}
	result.Duration = time.Since(start)

	r.deps.Metrics.RecordFanOut(result.Duration)
	logger.Info("fan-out complete",
		"update_id", latest.ID,
		"total", result.Total,
		"success", result.Success,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"duration_ms", result.Duration.Milliseconds(),
	)

	return result, nil
}

// deliver executes the planned action for one subscription and persists the
// updated record on success.
func (r *Reconciler) deliver(ctx context.Context, sub *domain.Subscription, event domain.IncidentUpdateEvent, latest domain.IncidentUpdate) domain.DeliveryOutcome {
	outcome := domain.DeliveryOutcome{
		GuildID:    sub.GuildID,
		IncidentID: event.IncidentID(),
		UpdateID:   latest.ID,
	}

	action := PlanAction(sub, outcome.IncidentID, latest.ID)
	if action.Kind == ActionSkip {
		outcome.Kind = domain.OutcomeSkipped
		outcome.Reason = action.Reason
		return r.settle(ctx, outcome)
	}

	msg := render.RenderIncidentMessage(sub.Mode, event.Incident, sub.RolePings)
	dest := r.deps.Endpoints.Destination(sub.Endpoint)

	var (
		res domain.DeliveryResult
		err error
	)
	switch action.Kind {
	case ActionSend:
		res, err = dest.Send(ctx, msg)
	case ActionEdit:
		res, err = dest.Edit(ctx, action.MessageID, msg)
		outcome.Edited = true
	}
	if err != nil {
		outcome.Kind = domain.OutcomeFailed
		outcome.ErrorKind = string(webhook.KindOf(err))
		outcome.Err = err
		r.deps.Logger.Warn("delivery failed",
			"guild_id", sub.GuildID,
			"incident_id", outcome.IncidentID,
			"update_id", latest.ID,
			"action", action.Kind.String(),
			"error_kind", outcome.ErrorKind,
			"error", err,
		)
		return r.settle(ctx, outcome)
	}

	updated := sub.Clone()
	if rec := updated.Record(outcome.IncidentID); rec != nil {
		rec.MarkDelivered(latest.ID)
		if action.Kind == ActionSend {
			rec.MessageID = res.MessageID
		}
	} else {
		updated.PutRecord(domain.IncidentDeliveryRecord{
			IncidentID:         outcome.IncidentID,
			MessageID:          res.MessageID,
			DeliveredUpdateIDs: []string{latest.ID},
		})
	}

	if err := r.deps.Store.Upsert(ctx, updated); err != nil {
		outcome.Kind = domain.OutcomeFailed
		outcome.ErrorKind = "store"
		outcome.Err = &StoreError{Op: "upsert", GuildID: sub.GuildID, Err: err}
		r.deps.Logger.Error("persisting delivery record failed",
			"guild_id", sub.GuildID,
			"incident_id", outcome.IncidentID,
			"update_id", latest.ID,
			"message_id", res.MessageID,
			"error", err,
		)
		return r.settle(ctx, outcome)
	}

	outcome.Kind = domain.OutcomeSent
	outcome.MessageID = res.MessageID
	r.deps.Logger.Debug("delivered",
		"guild_id", sub.GuildID,
		"incident_id", outcome.IncidentID,
		"update_id", latest.ID,
		"message_id", res.MessageID,
		"action", action.Kind.String(),
	)
	return r.settle(ctx, outcome)
}

func (r *Reconciler) settle(ctx context.Context, outcome domain.DeliveryOutcome) domain.DeliveryOutcome {
	outcome.Timestamp = time.Now().UTC()
	if outcome.Err != nil {
		outcome.Error = outcome.Err.Error()
	}

	r.deps.Metrics.RecordDelivery(outcome.Kind, outcome.ErrorKind)
	for _, o := range r.deps.Observers {
		o.ObserveOutcome(ctx, outcome)
	}
	return outcome
}

// IsStoreError reports whether err came from persisting a delivery record.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// Package engine reconciles incident updates against subscription delivery
// history and prunes subscriptions whose webhooks no longer exist.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/Priya8975/status-relay/internal/domain"
	"github.com/Priya8975/status-relay/internal/metrics"
	"github.com/Priya8975/status-relay/internal/store"
	"github.com/Priya8975/status-relay/internal/webhook"
)

// OutcomeObserver is told about every delivery outcome after it settles.
// Observers must not block for long; they run on the delivery goroutine.
type OutcomeObserver interface {
	ObserveOutcome(ctx context.Context, outcome domain.DeliveryOutcome)
}

// SweepReportSaver persists the latest sweep report.
type SweepReportSaver interface {
	SaveSweepReport(ctx context.Context, report domain.SweepReport) error
}

// HealthForgetter drops per-guild endpoint health once a subscription is gone.
type HealthForgetter interface {
	Forget(ctx context.Context, guildID string)
}

// Deps carries the collaborators shared by the Reconciler and Sweeper.
type Deps struct {
	Store     store.SubscriptionStore
	Endpoints webhook.DestinationFactory
	Logger    *slog.Logger
	Metrics   metrics.Recorder
	Observers []OutcomeObserver
	Reports   SweepReportSaver
	// Health, when set, is cleared for every guild the sweeper deletes.
	Health HealthForgetter
	// Concurrency caps in-flight endpoint calls per pass; 0 means unbounded.
	Concurrency int
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop{}
	}
	return d
}

// StoreError wraps a persistence failure for a single subscription.
type StoreError struct {
	Op      string
	GuildID string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s for guild %s: %v", e.Op, e.GuildID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/Priya8975/status-relay/internal/domain"
)

// Sweeper validates every stored webhook and removes subscriptions whose
// webhook no longer exists.
type Sweeper struct {
	deps Deps
}

func NewSweeper(deps Deps) *Sweeper {
	return &Sweeper{deps: deps.withDefaults()}
}

// Sweep validates all endpoints concurrently. With dryRun set the store is
// never mutated and Deleted stays zero; Invalid is reported either way.
// The report is returned even when deletion or report persistence fails.
func (s *Sweeper) Sweep(ctx context.Context, dryRun bool) (domain.SweepReport, error) {
	start := time.Now()
	report := domain.SweepReport{
		CycleID:   uuid.NewString(),
		DryRun:    dryRun,
		StartedAt: start.UTC(),
	}
	logger := s.deps.Logger.With("cycle_id", report.CycleID, "dry_run", dryRun)

	subs, err := s.deps.Store.ListAll(ctx)
	if err != nil {
		return report, fmt.Errorf("listing subscriptions: %w", err)
	}
	report.Total = len(subs)

	valid := make([]bool, len(subs))

	var g errgroup.Group
	if s.deps.Concurrency > 0 {
		g.SetLimit(s.deps.Concurrency)
	}
	for i := range subs {
		i := i
		g.Go(func() error {
			valid[i] = s.deps.Endpoints.Destination(subs[i].Endpoint).Validate(ctx)
			return nil
		})
	}
	g.Wait()

	var invalid []string
	for i, ok := range valid {
		if ok {
			report.Valid++
			continue
		}
		invalid = append(invalid, subs[i].GuildID)
		logger.Debug("invalid webhook", "guild_id", subs[i].GuildID, "webhook_id", subs[i].Endpoint.ID)
	}
	report.Invalid = len(invalid)

	var errs *multierror.Error
	if !dryRun && len(invalid) > 0 {
		deleted, err := s.deps.Store.DeleteMany(ctx, invalid)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("deleting invalid subscriptions: %w", err))
		} else if s.deps.Health != nil {
			for _, guildID := range invalid {
				s.deps.Health.Forget(ctx, guildID)
			}
		}
		report.Deleted = deleted
	}
	report.Duration = time.Since(start).Round(time.Millisecond).String()

	if s.deps.Reports != nil {
		if err := s.deps.Reports.SaveSweepReport(ctx, report); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	s.deps.Metrics.RecordSweep(report)
	logger.Info("sweep complete",
		"total", report.Total,
		"valid", report.Valid,
		"invalid", report.Invalid,
		"deleted", report.Deleted,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return report, errs.ErrorOrNil()
}

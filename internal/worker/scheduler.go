package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/Priya8975/status-relay/internal/domain"
)

// Sweeper runs one maintenance sweep.
type Sweeper interface {
	Sweep(ctx context.Context, dryRun bool) (domain.SweepReport, error)
}

// SweepScheduler runs a destructive sweep on a fixed interval.
type SweepScheduler struct {
	sweeper    Sweeper
	interval   time.Duration
	runOnStart bool
	reporter   ErrorReporter
	logger     *slog.Logger
}

func NewSweepScheduler(sweeper Sweeper, interval time.Duration, runOnStart bool, logger *slog.Logger) *SweepScheduler {
	return &SweepScheduler{
		sweeper:    sweeper,
		interval:   interval,
		runOnStart: runOnStart,
		logger:     logger,
	}
}

// Start blocks until ctx is cancelled.
func (s *SweepScheduler) Start(ctx context.Context) {
	s.logger.Info("sweep scheduler started", "interval", s.interval.String(), "run_on_start", s.runOnStart)

	if s.runOnStart {
		s.run(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweep scheduler stopping")
			return
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

// SetErrorReporter makes failed sweeps reach r in addition to the log.
func (s *SweepScheduler) SetErrorReporter(r ErrorReporter) {
	s.reporter = r
}

func (s *SweepScheduler) run(ctx context.Context) {
	report, err := s.sweeper.Sweep(ctx, false)
	if err != nil {
		s.logger.Error("scheduled sweep failed", "cycle_id", report.CycleID, "error", err)
		if s.reporter != nil {
			s.reporter.CaptureError(err, map[string]string{
				"component": "sweeper",
				"cycle_id":  report.CycleID,
			})
		}
	}
}

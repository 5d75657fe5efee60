package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Priya8975/status-relay/internal/domain"
)

// Sweeper runs an on-demand maintenance sweep.
type Sweeper interface {
	Sweep(ctx context.Context, dryRun bool) (domain.SweepReport, error)
}

// SweepReports reads the most recent sweep report.
type SweepReports interface {
	LastSweepReport(ctx context.Context) (*domain.SweepReport, error)
}

type MaintenanceHandler struct {
	sweeper Sweeper
	reports SweepReports
	logger  *slog.Logger
}

func NewMaintenanceHandler(sweeper Sweeper, reports SweepReports, logger *slog.Logger) *MaintenanceHandler {
	return &MaintenanceHandler{sweeper: sweeper, reports: reports, logger: logger}
}

type sweepResponse struct {
	domain.SweepReport
	Error string `json:"error,omitempty"`
}

// Sweep validates every stored webhook and, unless dry_run=true, deletes
// the subscriptions whose webhook is gone.
func (h *MaintenanceHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	dryRun := false
	if v := r.URL.Query().Get("dry_run"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "dry_run must be true or false")
			return
		}
		dryRun = parsed
	}

	report, err := h.sweeper.Sweep(r.Context(), dryRun)
	if err != nil {
		h.logger.Error("manual sweep failed", "cycle_id", report.CycleID, "error", err)
		if report.Total == 0 {
			respondError(w, http.StatusInternalServerError, "sweep failed")
			return
		}
		respondJSON(w, http.StatusMultiStatus, sweepResponse{SweepReport: report, Error: err.Error()})
		return
	}

	respondJSON(w, http.StatusOK, sweepResponse{SweepReport: report})
}

func (h *MaintenanceHandler) LastSweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.LastSweepReport(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load sweep report")
		return
	}
	if report == nil {
		respondError(w, http.StatusNotFound, "no sweep has run yet")
		return
	}
	respondJSON(w, http.StatusOK, report)
}

package api

import (
	"net/http"

	"github.com/Priya8975/status-relay/internal/domain"
	"github.com/Priya8975/status-relay/internal/store"
)

// ClientCounter reports connected live-stream clients.
type ClientCounter interface {
	ClientCount() int
}

type DashboardHandler struct {
	store   store.SubscriptionStore
	reports SweepReports
	hub     ClientCounter
}

func NewDashboardHandler(s store.SubscriptionStore, reports SweepReports, hub ClientCounter) *DashboardHandler {
	return &DashboardHandler{store: s, reports: reports, hub: hub}
}

// Overview returns aggregate relay state for the dashboard.
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	subs, err := h.store.ListAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}

	type overviewResponse struct {
		Subscriptions    int                 `json:"subscriptions"`
		EditMode         int                 `json:"edit_mode"`
		PostMode         int                 `json:"post_mode"`
		TrackedIncidents int                 `json:"tracked_incidents"`
		WebSocketClients int                 `json:"websocket_clients"`
		LastSweep        *domain.SweepReport `json:"last_sweep,omitempty"`
	}

	resp := overviewResponse{Subscriptions: len(subs)}
	incidents := make(map[string]struct{})
	for _, sub := range subs {
		if sub.Mode == domain.ModePost {
			resp.PostMode++
		} else {
			resp.EditMode++
		}
		for _, rec := range sub.DeliveryHistory {
			incidents[rec.IncidentID] = struct{}{}
		}
	}
	resp.TrackedIncidents = len(incidents)

	if h.hub != nil {
		resp.WebSocketClients = h.hub.ClientCount()
	}
	if h.reports != nil {
		// The overview still renders without the last sweep.
		if report, err := h.reports.LastSweepReport(r.Context()); err == nil {
			resp.LastSweep = report
		}
	}

	respondJSON(w, http.StatusOK, resp)
}

package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Priya8975/status-relay/internal/domain"
	"github.com/Priya8975/status-relay/internal/engine"
	"github.com/Priya8975/status-relay/internal/store"
)

// HealthReader exposes the endpoint-health tracker to the admin API.
type HealthReader interface {
	GetState(ctx context.Context, guildID string) engine.EndpointHealth
	Forget(ctx context.Context, guildID string)
}

type SubscriptionHandler struct {
	store  store.SubscriptionStore
	health HealthReader
}

func NewSubscriptionHandler(s store.SubscriptionStore, health HealthReader) *SubscriptionHandler {
	return &SubscriptionHandler{store: s, health: health}
}

// subscriptionView hides the webhook token from API responses.
type subscriptionView struct {
	GuildID         string                          `json:"guild_id"`
	ChannelID       string                          `json:"channel_id,omitempty"`
	WebhookID       string                          `json:"webhook_id"`
	RolePings       []string                        `json:"role_pings"`
	Mode            domain.Mode                     `json:"mode"`
	DeliveryHistory []domain.IncidentDeliveryRecord `json:"delivery_history"`
}

func toView(sub domain.Subscription) subscriptionView {
	v := subscriptionView{
		GuildID:         sub.GuildID,
		ChannelID:       sub.ChannelID,
		WebhookID:       sub.Endpoint.ID,
		RolePings:       sub.RolePings,
		Mode:            sub.Mode,
		DeliveryHistory: sub.DeliveryHistory,
	}
	if v.RolePings == nil {
		v.RolePings = []string{}
	}
	if v.DeliveryHistory == nil {
		v.DeliveryHistory = []domain.IncidentDeliveryRecord{}
	}
	return v
}

func (h *SubscriptionHandler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.store.ListAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}

	views := make([]subscriptionView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, toView(sub))
	}
	respondJSON(w, http.StatusOK, views)
}

func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.load(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, toView(*sub))
}

func (h *SubscriptionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guild_id")

	deleted, err := h.store.Delete(r.Context(), guildID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete subscription")
		return
	}
	if !deleted {
		respondError(w, http.StatusNotFound, "subscription not found")
		return
	}

	if h.health != nil {
		h.health.Forget(r.Context(), guildID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SubscriptionHandler) Health(w http.ResponseWriter, r *http.Request) {
	sub, ok := h.load(w, r)
	if !ok {
		return
	}
	if h.health == nil {
		respondError(w, http.StatusNotImplemented, "health tracking is disabled")
		return
	}

	type healthResponse struct {
		GuildID   string                `json:"guild_id"`
		WebhookID string                `json:"webhook_id"`
		Health    engine.EndpointHealth `json:"health"`
	}

	respondJSON(w, http.StatusOK, healthResponse{
		GuildID:   sub.GuildID,
		WebhookID: sub.Endpoint.ID,
		Health:    h.health.GetState(r.Context(), sub.GuildID),
	})
}

func (h *SubscriptionHandler) load(w http.ResponseWriter, r *http.Request) (*domain.Subscription, bool) {
	sub, err := h.store.Get(r.Context(), chi.URLParam(r, "guild_id"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get subscription")
		return nil, false
	}
	if sub == nil {
		respondError(w, http.StatusNotFound, "subscription not found")
		return nil, false
	}
	return sub, true
}

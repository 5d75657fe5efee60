package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"github.com/Priya8975/status-relay/internal/domain"
	"github.com/Priya8975/status-relay/internal/render"
	"github.com/Priya8975/status-relay/internal/store"
	"github.com/Priya8975/status-relay/internal/webhook"
)

const (
	discordAuthorizeURL = "https://discord.com/oauth2/authorize"
	webhookScope        = "webhook.incoming"
	stateTTL            = 10 * time.Minute
)

// OAuthSettings configures the webhook install flow.
type OAuthSettings struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// APIBaseURL hosts the token endpoint, e.g. https://discord.com/api/v10.
	APIBaseURL string
}

// OAuthHandler runs the webhook.incoming install: the user picks a channel
// on Discord, and the callback turns the returned webhook into a
// subscription for that guild.
type OAuthHandler struct {
	config      *oauth2.Config
	store       store.SubscriptionStore
	endpoints   webhook.DestinationFactory
	redisClient *redis.Client
	logger      *slog.Logger
}

func NewOAuthHandler(settings OAuthSettings, s store.SubscriptionStore, endpoints webhook.DestinationFactory, redisClient *redis.Client, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		config: &oauth2.Config{
			ClientID:     settings.ClientID,
			ClientSecret: settings.ClientSecret,
			RedirectURL:  settings.RedirectURL,
			Scopes:       []string{webhookScope},
			Endpoint: oauth2.Endpoint{
				AuthURL:   discordAuthorizeURL,
				TokenURL:  strings.TrimRight(settings.APIBaseURL, "/") + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store:       s,
		endpoints:   endpoints,
		redisClient: redisClient,
		logger:      logger,
	}
}

// InstallURL derives the public install link from the callback URL.
func InstallURL(redirectURL string) string {
	return strings.TrimSuffix(redirectURL, "/oauth/callback") + "/oauth/install"
}

func stateKey(state string) string {
	return fmt.Sprintf("oauth:state:%s", state)
}

// Install redirects the browser to Discord's consent screen.
func (h *OAuthHandler) Install(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	if err := h.redisClient.Set(r.Context(), stateKey(state), "1", stateTTL).Err(); err != nil {
		h.logger.Error("failed to store oauth state", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to start install")
		return
	}
	http.Redirect(w, r, h.config.AuthCodeURL(state), http.StatusFound)
}

type incomingWebhook struct {
	ID        string `json:"id"`
	Token     string `json:"token"`
	GuildID   string `json:"guild_id"`
	ChannelID string `json:"channel_id"`
}

// Callback completes the install.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		respondError(w, http.StatusBadRequest, "authorization was not granted: "+reason)
		return
	}

	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		respondError(w, http.StatusBadRequest, "code and state are required")
		return
	}

	n, err := h.redisClient.Del(r.Context(), stateKey(state)).Result()
	if err != nil {
		h.logger.Error("failed to check oauth state", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to verify install")
		return
	}
	if n == 0 {
		respondError(w, http.StatusBadRequest, "unknown or expired state")
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth code exchange failed", "error", err)
		respondError(w, http.StatusBadGateway, "failed to exchange authorization code")
		return
	}

	wh, err := webhookFromToken(token)
	if err != nil {
		h.logger.Error("token response carried no webhook", "error", err)
		respondError(w, http.StatusBadGateway, "discord did not return a webhook")
		return
	}

	sub, err := h.install(r.Context(), wh)
	if err != nil {
		h.logger.Error("failed to install webhook", "guild_id", wh.GuildID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}

	h.logger.Info("webhook installed", "guild_id", sub.GuildID, "channel_id", sub.ChannelID, "webhook_id", sub.Endpoint.ID)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "Subscribed to Discord Status updates. You can close this window.")
}

func webhookFromToken(token *oauth2.Token) (incomingWebhook, error) {
	var wh incomingWebhook
	raw := token.Extra("webhook")
	if raw == nil {
		return wh, fmt.Errorf("missing webhook field")
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return wh, fmt.Errorf("encoding webhook field: %w", err)
	}
	if err := json.Unmarshal(b, &wh); err != nil {
		return wh, fmt.Errorf("decoding webhook field: %w", err)
	}
	if wh.ID == "" || wh.Token == "" || wh.GuildID == "" {
		return wh, fmt.Errorf("incomplete webhook %q", wh.ID)
	}
	return wh, nil
}

// install greets the channel through the new webhook, then stores it. A
// guild that already had a subscription keeps its mode and role pings but
// its history is reset, since old message ids belong to the old webhook.
func (h *OAuthHandler) install(ctx context.Context, wh incomingWebhook) (*domain.Subscription, error) {
	endpoint := domain.Endpoint{ID: wh.ID, Token: wh.Token}
	dest := h.endpoints.Destination(endpoint)

	if _, err := dest.Send(ctx, render.WelcomeMessage()); err != nil {
		dest.Delete(ctx)
		return nil, fmt.Errorf("sending welcome message: %w", err)
	}

	existing, err := h.store.Get(ctx, wh.GuildID)
	if err != nil {
		dest.Delete(ctx)
		return nil, fmt.Errorf("loading subscription: %w", err)
	}

	now := time.Now().UTC()
	sub := existing
	if sub == nil {
		sub = &domain.Subscription{
			GuildID:   wh.GuildID,
			Mode:      domain.ModeEdit,
			CreatedAt: now,
		}
	}
	previous := sub.Endpoint
	sub.Endpoint = endpoint
	sub.ChannelID = wh.ChannelID
	sub.DeliveryHistory = nil
	sub.UpdatedAt = now

	if err := h.store.Upsert(ctx, sub); err != nil {
		dest.Delete(ctx)
		return nil, fmt.Errorf("saving subscription: %w", err)
	}

	if existing != nil && previous.ID != "" && previous.ID != endpoint.ID {
		if !h.endpoints.Destination(previous).Delete(ctx) {
			h.logger.Warn("could not delete replaced webhook", "guild_id", sub.GuildID, "webhook_id", previous.ID)
		}
	}
	return sub, nil
}

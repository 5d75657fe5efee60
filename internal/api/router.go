package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Priya8975/status-relay/internal/store"
)

// RouterDeps wires the HTTP surface. Optional parts are skipped when nil.
type RouterDeps struct {
	Logger       *slog.Logger
	Store        store.SubscriptionStore
	Health       HealthReader
	Sweeper      Sweeper
	Reports      SweepReports
	Interactions *InteractionHandler
	OAuth        *OAuthHandler
	Hub          LiveStream
	Metrics      http.Handler
	// Middleware runs inside the panic recoverer, e.g. error reporting.
	Middleware []func(http.Handler) http.Handler
	// AdminToken guards /api/v1; the admin API is not mounted without one.
	AdminToken string
}

// LiveStream is the websocket hub serving delivery outcomes.
type LiveStream interface {
	ClientCounter
	HandleWebSocket(w http.ResponseWriter, r *http.Request)
}

// NewRouter creates and configures the HTTP router.
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(d.Middleware...)
	r.Use(middleware.Heartbeat("/ping"))

	// CORS for dashboard
	r.Use(corsMiddleware)

	r.Get("/health", HealthHandler())

	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}
	if d.Interactions != nil {
		r.Post("/interactions", d.Interactions.Handle)
	}
	if d.OAuth != nil {
		r.Get("/oauth/install", d.OAuth.Install)
		r.Get("/oauth/callback", d.OAuth.Callback)
	}

	if d.AdminToken == "" {
		return r
	}

	var counter ClientCounter
	if d.Hub != nil {
		counter = d.Hub
		r.With(bearerAuth(d.AdminToken)).Get("/ws", d.Hub.HandleWebSocket)
	}

	subHandler := NewSubscriptionHandler(d.Store, d.Health)
	dashHandler := NewDashboardHandler(d.Store, d.Reports, counter)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(bearerAuth(d.AdminToken))

		r.Get("/overview", dashHandler.Overview)

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/", subHandler.List)
			r.Get("/{guild_id}", subHandler.Get)
			r.Delete("/{guild_id}", subHandler.Delete)
			r.Get("/{guild_id}/health", subHandler.Health)
		})

		if d.Sweeper != nil && d.Reports != nil {
			maintHandler := NewMaintenanceHandler(d.Sweeper, d.Reports, d.Logger)
			r.Route("/maintenance", func(r chi.Router) {
				r.Post("/sweep", maintHandler.Sweep)
				r.Get("/sweep/last", maintHandler.LastSweep)
			})
		}
	})

	return r
}

// bearerAuth rejects requests without "Authorization: Bearer <token>".
// Browsers cannot set headers on websocket upgrades, so a token query
// parameter is also accepted.
func bearerAuth(token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got == "" {
				got = r.URL.Query().Get("token")
			}
			if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				respondError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// corsMiddleware adds CORS headers for dashboard development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

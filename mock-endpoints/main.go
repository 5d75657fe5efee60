package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Webhook ids select the behaviour: "dead-*" 404, "forbidden-*" 403,
// "limited-*" 429, "slow-*" responds after 3s, anything else succeeds.

var requestCount atomic.Int64

type fakeDiscord struct {
	mu        sync.Mutex
	messages  map[string]string // message id -> webhook id
	deleted   map[string]bool
	incidents []incident
}

type incidentUpdate struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type incident struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Status    string           `json:"status"`
	Impact    string           `json:"impact"`
	Shortlink string           `json:"shortlink"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Updates   []incidentUpdate `json:"incident_updates"`
}

func main() {
	port := "9090"
	if p := os.Getenv("PORT"); p != "" {
		port = p
	}

	d := &fakeDiscord{
		messages: make(map[string]string),
		deleted:  make(map[string]bool),
	}

	r := chi.NewRouter()

	r.Route("/webhooks/{id}/{token}", func(r chi.Router) {
		r.Use(d.behaviour)
		r.Get("/", d.getWebhook)
		r.Post("/", d.execute)
		r.Delete("/", d.deleteWebhook)
		r.Patch("/messages/{message_id}", d.editMessage)
	})

	// Status page feed for the poller
	r.Get("/api/v2/incidents.json", d.listIncidents)
	r.Get("/api/v2/summary.json", d.summary)
	r.Post("/incidents", d.postUpdate)

	// Stats endpoint, shows request count
	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		d.mu.Lock()
		defer d.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]int64{
			"total_requests": requestCount.Load(),
			"messages":       int64(len(d.messages)),
			"incidents":      int64(len(d.incidents)),
		})
	})

	log.Printf("Mock Discord server starting on :%s", port)
	log.Printf("  GET    /webhooks/{id}/{token}                        -> webhook info")
	log.Printf("  POST   /webhooks/{id}/{token}?wait=true              -> create message")
	log.Printf("  PATCH  /webhooks/{id}/{token}/messages/{message_id}  -> edit message")
	log.Printf("  DELETE /webhooks/{id}/{token}                        -> 204")
	log.Printf("  GET    /api/v2/incidents.json                        -> incident feed")
	log.Printf("  POST   /incidents {incident_id,name,status,body}     -> publish update")
	log.Printf("  GET    /stats                                        -> request count")

	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func (d *fakeDiscord) behaviour(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := requestCount.Add(1)
		id := chi.URLParam(r, "id")

		status := 0
		switch {
		case strings.HasPrefix(id, "dead-"):
			status = http.StatusNotFound
		case strings.HasPrefix(id, "forbidden-"):
			status = http.StatusForbidden
		case strings.HasPrefix(id, "limited-"):
			status = http.StatusTooManyRequests
		case strings.HasPrefix(id, "slow-"):
			time.Sleep(3 * time.Second)
		}

		d.mu.Lock()
		if d.deleted[id] {
			status = http.StatusNotFound
		}
		d.mu.Unlock()

		if status != 0 {
			logRequest(r, count, status)
			writeJSON(w, status, map[string]any{"message": http.StatusText(status), "code": 0})
			return
		}
		logRequest(r, count, http.StatusOK)
		next.ServeHTTP(w, r)
	})
}

func (d *fakeDiscord) getWebhook(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"id":         chi.URLParam(r, "id"),
		"name":       "Discord Status",
		"channel_id": "mock-channel",
		"guild_id":   "mock-guild",
	})
}

func (d *fakeDiscord) execute(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	d.mu.Lock()
	d.messages[id] = chi.URLParam(r, "id")
	d.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"id": id, "timestamp": time.Now().UTC()})
}

func (d *fakeDiscord) editMessage(w http.ResponseWriter, r *http.Request) {
	msgID := chi.URLParam(r, "message_id")

	d.mu.Lock()
	owner, ok := d.messages[msgID]
	d.mu.Unlock()

	if !ok || owner != chi.URLParam(r, "id") {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Unknown Message", "code": 10008})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": msgID, "timestamp": time.Now().UTC()})
}

func (d *fakeDiscord) deleteWebhook(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	d.deleted[chi.URLParam(r, "id")] = true
	d.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (d *fakeDiscord) listIncidents(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	incidents := d.incidents
	if incidents == nil {
		incidents = []incident{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"incidents": incidents})
}

func (d *fakeDiscord) summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": map[string]string{"indicator": "none", "description": "All Systems Operational"},
		"components": []map[string]any{
			{"id": "api", "name": "API", "status": "operational"},
		},
	})
}

type publishRequest struct {
	IncidentID string `json:"incident_id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Body       string `json:"body"`
}

// postUpdate prepends an update to an incident, creating it if needed.
func (d *fakeDiscord) postUpdate(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IncidentID == "" || req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "incident_id and status are required"})
		return
	}

	now := time.Now().UTC()
	update := incidentUpdate{ID: uuid.NewString(), Status: req.Status, Body: req.Body, CreatedAt: now, UpdatedAt: now}

	d.mu.Lock()
	defer d.mu.Unlock()

	for n := range d.incidents {
		inc := &d.incidents[n]
		if inc.ID == req.IncidentID {
			inc.Status = req.Status
			inc.UpdatedAt = now
			inc.Updates = append([]incidentUpdate{update}, inc.Updates...)
			writeJSON(w, http.StatusOK, inc)
			return
		}
	}

	name := req.Name
	if name == "" {
		name = "Mock incident " + req.IncidentID
	}
	inc := incident{
		ID:        req.IncidentID,
		Name:      name,
		Status:    req.Status,
		Impact:    "minor",
		Shortlink: "https://stspg.io/" + req.IncidentID,
		CreatedAt: now,
		UpdatedAt: now,
		Updates:   []incidentUpdate{update},
	}
	d.incidents = append([]incident{inc}, d.incidents...)
	writeJSON(w, http.StatusCreated, inc)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func logRequest(r *http.Request, count int64, status int) {
	fmt.Printf("[#%d] %s %s -> %d | webhook=%s\n",
		count,
		r.Method,
		r.URL.Path,
		status,
		truncate(chi.URLParam(r, "id"), 16),
	)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}

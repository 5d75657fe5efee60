package statuspage

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Priya8975/status-relay/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func setupTestSnapshots(t *testing.T) (*RedisSnapshotStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisSnapshotStore(client), mr
}

// incident builds an incident whose updates are given newest first.
func incident(id string, updateIDs ...string) domain.Incident {
	inc := domain.Incident{ID: id, Name: "Incident " + id, Status: domain.StatusInvestigating}
	for _, u := range updateIDs {
		inc.Updates = append(inc.Updates, domain.IncidentUpdate{ID: u, Status: domain.StatusInvestigating})
	}
	return inc
}

type fakeSource struct {
	incidents []domain.Incident
	err       error
}

func (f *fakeSource) Incidents(ctx context.Context) ([]domain.Incident, error) {
	return f.incidents, f.err
}

func latestIDs(events []domain.IncidentUpdateEvent) []string {
	ids := make([]string, len(events))
	for i, ev := range events {
		latest, _ := ev.Latest()
		ids[i] = ev.IncidentID() + "/" + latest.ID
	}
	return ids
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDiff(t *testing.T) {
	prev := Snapshot{
		"INC1": {"U1"},
		"INC2": {"V2", "V1"},
	}
	current := []domain.Incident{
		incident("INC3", "W1"),
		incident("INC2", "V2", "V1"),
		incident("INC1", "U3", "U2", "U1"),
	}

	events := Diff(prev, current, time.Now())

	want := []string{"INC1/U2", "INC1/U3", "INC3/W1"}
	if got := latestIDs(events); !equal(got, want) {
		t.Fatalf("events = %v, want %v", got, want)
	}

	// Each event carries history up to the announced update.
	if n := len(events[0].Incident.Updates); n != 2 {
		t.Errorf("expected U2 event to carry 2 updates, got %d", n)
	}
	if n := len(events[1].Incident.Updates); n != 3 {
		t.Errorf("expected U3 event to carry 3 updates, got %d", n)
	}
}

func TestDiff_NoChanges(t *testing.T) {
	current := []domain.Incident{incident("INC1", "U2", "U1")}

	if events := Diff(SnapshotOf(current), current, time.Now()); len(events) != 0 {
		t.Errorf("expected no events, got %v", latestIDs(events))
	}
}

func TestPoller_FirstPollPrimes(t *testing.T) {
	snaps, _ := setupTestSnapshots(t)
	src := &fakeSource{incidents: []domain.Incident{incident("INC1", "U1")}}
	p := NewPoller(src, snaps, time.Second, testLogger(), nil)
	ctx := context.Background()

	if err := p.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	events, err := p.Poll(ctx)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("first poll should only prime, got %v", latestIDs(events))
	}

	src.incidents = []domain.Incident{incident("INC1", "U2", "U1")}
	events, _ = p.Poll(ctx)
	if got := latestIDs(events); !equal(got, []string{"INC1/U2"}) {
		t.Errorf("events = %v, want [INC1/U2]", got)
	}
}

func TestPoller_ResumesFromStoredSnapshot(t *testing.T) {
	snaps, _ := setupTestSnapshots(t)
	ctx := context.Background()
	snaps.Save(ctx, Snapshot{"INC1": {"U1"}})

	src := &fakeSource{incidents: []domain.Incident{incident("INC1", "U2", "U1")}}
	p := NewPoller(src, snaps, time.Second, testLogger(), nil)
	p.Load(ctx)

	events, _ := p.Poll(ctx)
	if got := latestIDs(events); !equal(got, []string{"INC1/U2"}) {
		t.Errorf("events = %v, want [INC1/U2]", got)
	}

	stored, ok, err := snaps.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("expected stored snapshot, ok=%v err=%v", ok, err)
	}
	if !equal(stored["INC1"], []string{"U2", "U1"}) {
		t.Errorf("snapshot not updated: %v", stored)
	}
}

func TestPoller_FetchErrorKeepsSnapshot(t *testing.T) {
	snaps, _ := setupTestSnapshots(t)
	ctx := context.Background()
	snaps.Save(ctx, Snapshot{"INC1": {"U1"}})

	src := &fakeSource{err: errors.New("timeout")}
	p := NewPoller(src, snaps, time.Second, testLogger(), nil)
	p.Load(ctx)

	if _, err := p.Poll(ctx); err == nil {
		t.Fatal("expected poll error")
	}

	src.err = nil
	src.incidents = []domain.Incident{incident("INC1", "U2", "U1")}
	events, _ := p.Poll(ctx)
	if got := latestIDs(events); !equal(got, []string{"INC1/U2"}) {
		t.Errorf("events = %v, want [INC1/U2]", got)
	}
}

func TestPoller_RunEmitsAndCloses(t *testing.T) {
	snaps, _ := setupTestSnapshots(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	snaps.Save(ctx, Snapshot{})

	src := &fakeSource{incidents: []domain.Incident{incident("INC1", "U1")}}
	p := NewPoller(src, snaps, time.Hour, testLogger(), nil)

	out := make(chan domain.IncidentUpdateEvent)
	go p.Run(ctx, out)

	select {
	case ev := <-out:
		if ev.IncidentID() != "INC1" {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}

	cancel()
	select {
	case _, ok := <-out:
		if ok {
			t.Error("expected channel to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for close")
	}
}

func TestSnapshotStore_LoadMissing(t *testing.T) {
	snaps, _ := setupTestSnapshots(t)

	_, ok, err := snaps.Load(context.Background())
	if err != nil || ok {
		t.Errorf("expected ok=false, err=nil; got ok=%v err=%v", ok, err)
	}
}

func TestClient_Incidents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/incidents.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"incidents":[{"id":"INC1","name":"API outage","status":"identified","shortlink":"https://stspg.io/x",
			"created_at":"2024-01-01T00:00:00Z","incident_updates":[{"id":"U1","status":"identified","body":"Looking into it","created_at":"2024-01-01T00:00:00Z"}]}]}`))
	}))
	defer srv.Close()

	incidents, err := NewClient(srv.URL, time.Second).Incidents(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(incidents) != 1 || incidents[0].Status != domain.StatusIdentified {
		t.Fatalf("unexpected incidents %+v", incidents)
	}
	if len(incidents[0].Updates) != 1 || incidents[0].Updates[0].Body != "Looking into it" {
		t.Errorf("unexpected updates %+v", incidents[0].Updates)
	}
}

func TestClient_SummaryError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, time.Second).Summary(context.Background()); err == nil {
		t.Fatal("expected error on 502")
	}
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Priya8975/status-relay/internal/domain"
	"github.com/Priya8975/status-relay/internal/store"
	"github.com/Priya8975/status-relay/internal/webhook"
)

type call struct {
	Method    string
	Endpoint  string
	MessageID string
	Msg       webhook.Message
}

// fakeEndpoints hands out in-memory destinations keyed by endpoint id.
type fakeEndpoints struct {
	mu       sync.Mutex
	calls    []call
	sendErr  map[string]error
	editErr  map[string]error
	invalid  map[string]bool
	nextID   atomic.Int64
	delay    time.Duration
	inFlight atomic.Int64
	maxSeen  atomic.Int64
}

func newFakeEndpoints() *fakeEndpoints {
	return &fakeEndpoints{
		sendErr: make(map[string]error),
		editErr: make(map[string]error),
		invalid: make(map[string]bool),
	}
}

func (f *fakeEndpoints) Destination(ep domain.Endpoint) webhook.Destination {
	return &fakeDestination{f: f, id: ep.ID}
}

func (f *fakeEndpoints) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeEndpoints) callsFor(endpointID string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Endpoint == endpointID {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeEndpoints) enter() func() {
	n := f.inFlight.Add(1)
	for {
		cur := f.maxSeen.Load()
		if n <= cur || f.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { f.inFlight.Add(-1) }
}

type fakeDestination struct {
	f  *fakeEndpoints
	id string
}

func (d *fakeDestination) Validate(ctx context.Context) bool {
	defer d.f.enter()()
	d.f.record(call{Method: "validate", Endpoint: d.id})
	d.f.mu.Lock()
	defer d.f.mu.Unlock()
	return !d.f.invalid[d.id]
}

func (d *fakeDestination) Send(ctx context.Context, msg webhook.Message) (domain.DeliveryResult, error) {
	defer d.f.enter()()
	d.f.record(call{Method: "send", Endpoint: d.id, Msg: msg})
	d.f.mu.Lock()
	err := d.f.sendErr[d.id]
	d.f.mu.Unlock()
	if err != nil {
		return domain.DeliveryResult{}, err
	}
	return domain.DeliveryResult{
		MessageID: fmt.Sprintf("M%d", d.f.nextID.Add(1)),
		Timestamp: time.Now(),
	}, nil
}

func (d *fakeDestination) Edit(ctx context.Context, messageID string, msg webhook.Message) (domain.DeliveryResult, error) {
	defer d.f.enter()()
	d.f.record(call{Method: "edit", Endpoint: d.id, MessageID: messageID, Msg: msg})
	d.f.mu.Lock()
	err := d.f.editErr[d.id]
	d.f.mu.Unlock()
	if err != nil {
		return domain.DeliveryResult{}, err
	}
	return domain.DeliveryResult{MessageID: messageID, Timestamp: time.Now()}, nil
}

func (d *fakeDestination) Delete(ctx context.Context) bool {
	d.f.record(call{Method: "delete", Endpoint: d.id})
	return true
}

// flakyStore fails Upsert for selected guilds and ListAll on demand.
type flakyStore struct {
	*store.MemoryStore
	failUpsert  map[string]bool
	failList    bool
	failDeletes bool
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: store.NewMemoryStore(), failUpsert: make(map[string]bool)}
}

func (s *flakyStore) ListAll(ctx context.Context) ([]domain.Subscription, error) {
	if s.failList {
		return nil, errors.New("connection refused")
	}
	return s.MemoryStore.ListAll(ctx)
}

func (s *flakyStore) Upsert(ctx context.Context, sub *domain.Subscription) error {
	if s.failUpsert[sub.GuildID] {
		return errors.New("write timeout")
	}
	return s.MemoryStore.Upsert(ctx, sub)
}

func (s *flakyStore) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if s.failDeletes {
		return 0, errors.New("write timeout")
	}
	return s.MemoryStore.DeleteMany(ctx, ids)
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []domain.DeliveryOutcome
}

func (o *recordingObserver) ObserveOutcome(ctx context.Context, outcome domain.DeliveryOutcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

type memoryReports struct {
	saved []domain.SweepReport
}

func (m *memoryReports) SaveSweepReport(ctx context.Context, r domain.SweepReport) error {
	m.saved = append(m.saved, r)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func seed(t *testing.T, s store.SubscriptionStore, subs ...domain.Subscription) {
	t.Helper()
	for i := range subs {
		if err := s.Upsert(context.Background(), &subs[i]); err != nil {
			t.Fatalf("seeding %s: %v", subs[i].GuildID, err)
		}
	}
}

func subscription(guildID string, mode domain.Mode) domain.Subscription {
	return domain.Subscription{
		GuildID:  guildID,
		Endpoint: domain.Endpoint{ID: "wh-" + guildID, Token: "tok"},
		Mode:     mode,
	}
}

// incidentEvent builds an event whose updates are listed newest first.
func incidentEvent(incidentID string, updateIDs ...string) domain.IncidentUpdateEvent {
	inc := domain.Incident{ID: incidentID, Name: "Elevated API errors", Status: domain.StatusInvestigating}
	for _, id := range updateIDs {
		inc.Updates = append(inc.Updates, domain.IncidentUpdate{ID: id, Status: domain.StatusInvestigating, Body: "update " + id})
	}
	return domain.IncidentUpdateEvent{Incident: inc, ObservedAt: time.Now()}
}

func mustGet(t *testing.T, s store.SubscriptionStore, guildID string) *domain.Subscription {
	t.Helper()
	sub, err := s.Get(context.Background(), guildID)
	if err != nil || sub == nil {
		t.Fatalf("get %s: %v, %v", guildID, sub, err)
	}
	return sub
}

package engine

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Priya8975/status-relay/internal/domain"
)

func setupTestHealth(t *testing.T) (*HealthTracker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewHealthTracker(client, testLogger()), mr
}

func TestHealthTracker_DefaultHealthy(t *testing.T) {
	h, _ := setupTestHealth(t)

	state := h.GetState(context.Background(), "unknown")
	if state.State != HealthHealthy || state.Failures != 0 {
		t.Errorf("expected healthy default, got %+v", state)
	}
}

func TestHealthTracker_FailuresDegradeThenFail(t *testing.T) {
	h, _ := setupTestHealth(t)
	ctx := context.Background()

	h.RecordFailure(ctx, "G1", "rate_limited")
	state := h.GetState(ctx, "G1")
	if state.State != HealthDegraded || state.Failures != 1 {
		t.Fatalf("expected degraded after one failure, got %+v", state)
	}
	if state.LastErrorKind != "rate_limited" || state.LastFailedAt == "" {
		t.Errorf("expected failure details, got %+v", state)
	}

	for i := 0; i < 4; i++ {
		h.RecordFailure(ctx, "G1", "not_found")
	}
	state = h.GetState(ctx, "G1")
	if state.State != HealthFailing || state.Failures != 5 {
		t.Errorf("expected failing after 5 failures, got %+v", state)
	}
}

func TestHealthTracker_SuccessResets(t *testing.T) {
	h, _ := setupTestHealth(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		h.RecordFailure(ctx, "G1", "unknown")
	}
	h.RecordSuccess(ctx, "G1")

	state := h.GetState(ctx, "G1")
	if state.State != HealthHealthy || state.Failures != 0 {
		t.Errorf("expected healthy after success, got %+v", state)
	}
	if state.LastSuccessAt == "" {
		t.Error("expected last success time")
	}
	if state.LastErrorKind != "" {
		t.Errorf("healthy state should not report an error kind, got %q", state.LastErrorKind)
	}
}

func TestHealthTracker_ObserveOutcome(t *testing.T) {
	h, mr := setupTestHealth(t)
	ctx := context.Background()

	h.ObserveOutcome(ctx, domain.DeliveryOutcome{Kind: domain.OutcomeFailed, GuildID: "G1", ErrorKind: "forbidden"})
	h.ObserveOutcome(ctx, domain.DeliveryOutcome{Kind: domain.OutcomeSkipped, GuildID: "G2"})

	if got := h.GetState(ctx, "G1"); got.Failures != 1 || got.LastErrorKind != "forbidden" {
		t.Errorf("unexpected G1 state %+v", got)
	}
	if mr.Exists(healthKey("G2")) {
		t.Error("skipped outcomes should not be tracked")
	}
	if ttl := mr.TTL(healthKey("G1")); ttl <= 0 {
		t.Errorf("expected health key to expire, ttl=%v", ttl)
	}
}

func TestHealthTracker_Forget(t *testing.T) {
	h, mr := setupTestHealth(t)
	ctx := context.Background()

	h.RecordFailure(ctx, "G1", "unknown")
	h.Forget(ctx, "G1")

	if mr.Exists(healthKey("G1")) {
		t.Error("expected health key removed")
	}
}

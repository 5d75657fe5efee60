package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Priya8975/status-relay/internal/domain"
)

// Endpoint health states.
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthFailing  = "failing"
)

const healthTTL = 30 * 24 * time.Hour

// HealthTracker keeps a per-guild record of recent delivery results in a
// Redis hash. It is purely observational: deliveries are never gated on it.
//
// A guild is degraded after one consecutive failure and failing once the
// count reaches the threshold. Any success resets it to healthy.
type HealthTracker struct {
	redisClient      *redis.Client
	logger           *slog.Logger
	failureThreshold int
}

// EndpointHealth is the tracked state for one guild's webhook.
type EndpointHealth struct {
	State         string `json:"state"`
	Failures      int    `json:"consecutive_failures"`
	LastErrorKind string `json:"last_error_kind,omitempty"`
	LastSuccessAt string `json:"last_success_at,omitempty"`
	LastFailedAt  string `json:"last_failed_at,omitempty"`
}

func NewHealthTracker(redisClient *redis.Client, logger *slog.Logger) *HealthTracker {
	return &HealthTracker{
		redisClient:      redisClient,
		logger:           logger,
		failureThreshold: 5,
	}
}

func healthKey(guildID string) string {
	return fmt.Sprintf("health:%s", guildID)
}

// ObserveOutcome updates the guild's health from a settled delivery.
func (h *HealthTracker) ObserveOutcome(ctx context.Context, outcome domain.DeliveryOutcome) {
	switch outcome.Kind {
	case domain.OutcomeSent:
		h.RecordSuccess(ctx, outcome.GuildID)
	case domain.OutcomeFailed:
		h.RecordFailure(ctx, outcome.GuildID, outcome.ErrorKind)
	}
}

// RecordSuccess resets the consecutive failure count.
func (h *HealthTracker) RecordSuccess(ctx context.Context, guildID string) {
	key := healthKey(guildID)

	prev, _ := h.redisClient.HGet(ctx, key, "failures").Int()

	pipe := h.redisClient.TxPipeline()
	pipe.HSet(ctx, key,
		"failures", 0,
		"last_success_at", time.Now().Unix(),
	)
	pipe.Expire(ctx, key, healthTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		h.logger.Error("failed to record endpoint success", "guild_id", guildID, "error", err)
		return
	}

	if prev >= h.failureThreshold {
		h.logger.Info("endpoint recovered", "guild_id", guildID, "previous_failures", prev)
	}
}

// RecordFailure increments the consecutive failure count.
func (h *HealthTracker) RecordFailure(ctx context.Context, guildID, errorKind string) {
	key := healthKey(guildID)

	failures, err := h.redisClient.HIncrBy(ctx, key, "failures", 1).Result()
	if err != nil {
		h.logger.Error("failed to record endpoint failure", "guild_id", guildID, "error", err)
		return
	}

	pipe := h.redisClient.TxPipeline()
	pipe.HSet(ctx, key,
		"last_error_kind", errorKind,
		"last_failed_at", time.Now().Unix(),
	)
	pipe.Expire(ctx, key, healthTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		h.logger.Error("failed to record endpoint failure", "guild_id", guildID, "error", err)
		return
	}

	if failures == int64(h.failureThreshold) {
		h.logger.Warn("endpoint failing",
			"guild_id", guildID,
			"failures", failures,
			"threshold", h.failureThreshold,
			"error_kind", errorKind,
		)
	}
}

// GetState returns the tracked health for a guild. Unknown guilds are healthy.
func (h *HealthTracker) GetState(ctx context.Context, guildID string) EndpointHealth {
	data, err := h.redisClient.HGetAll(ctx, healthKey(guildID)).Result()
	if err != nil || len(data) == 0 {
		return EndpointHealth{State: HealthHealthy}
	}

	failures, _ := strconv.Atoi(data["failures"])
	result := EndpointHealth{
		State:         h.stateFor(failures),
		Failures:      failures,
		LastErrorKind: data["last_error_kind"],
		LastSuccessAt: formatUnix(data["last_success_at"]),
		LastFailedAt:  formatUnix(data["last_failed_at"]),
	}
	if failures == 0 {
		result.LastErrorKind = ""
	}

	return result
}

// Forget drops the tracked state for a guild.
func (h *HealthTracker) Forget(ctx context.Context, guildID string) {
	if err := h.redisClient.Del(ctx, healthKey(guildID)).Err(); err != nil {
		h.logger.Error("failed to clear endpoint health", "guild_id", guildID, "error", err)
	}
}

func (h *HealthTracker) stateFor(failures int) string {
	switch {
	case failures >= h.failureThreshold:
		return HealthFailing
	case failures > 0:
		return HealthDegraded
	default:
		return HealthHealthy
	}
}

func formatUnix(s string) string {
	ts, _ := strconv.ParseInt(s, 10, 64)
	if ts <= 0 {
		return ""
	}
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Priya8975/status-relay/internal/domain"
)

const lastSweepKey = "sweep:last"

type RedisStore struct {
	client *redis.Client
}

func NewRedis(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// SaveSweepReport stores the most recent sweep report, replacing the last one.
func (s *RedisStore) SaveSweepReport(ctx context.Context, report domain.SweepReport) error {
	b, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encoding sweep report: %w", err)
	}
	if err := s.client.Set(ctx, lastSweepKey, b, 0).Err(); err != nil {
		return fmt.Errorf("saving sweep report: %w", err)
	}
	return nil
}

// LastSweepReport returns nil, nil if no sweep has completed yet.
func (s *RedisStore) LastSweepReport(ctx context.Context) (*domain.SweepReport, error) {
	b, err := s.client.Get(ctx, lastSweepKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading sweep report: %w", err)
	}

	var report domain.SweepReport
	if err := json.Unmarshal(b, &report); err != nil {
		return nil, fmt.Errorf("decoding sweep report: %w", err)
	}
	return &report, nil
}

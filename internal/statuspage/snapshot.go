package statuspage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Priya8975/status-relay/internal/domain"
)

const snapshotKey = "statuspage:snapshot"

// Snapshot maps incident ids to the update ids seen for them.
type Snapshot map[string][]string

// SnapshotOf records every incident and update id in incidents.
func SnapshotOf(incidents []domain.Incident) Snapshot {
	s := make(Snapshot, len(incidents))
	for i := range incidents {
		s[incidents[i].ID] = incidents[i].UpdateIDs()
	}
	return s
}

// SnapshotStore persists the poller's last snapshot across restarts.
type SnapshotStore interface {
	// Load returns ok=false when nothing has been saved yet.
	Load(ctx context.Context) (snap Snapshot, ok bool, err error)
	Save(ctx context.Context, snap Snapshot) error
}

// RedisSnapshotStore keeps the snapshot as a JSON string.
type RedisSnapshotStore struct {
	client *redis.Client
}

func NewRedisSnapshotStore(client *redis.Client) *RedisSnapshotStore {
	return &RedisSnapshotStore{client: client}
}

func (s *RedisSnapshotStore) Load(ctx context.Context) (Snapshot, bool, error) {
	b, err := s.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("loading snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, false, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, true, nil
}

func (s *RedisSnapshotStore) Save(ctx context.Context, snap Snapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := s.client.Set(ctx, snapshotKey, b, 0).Err(); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

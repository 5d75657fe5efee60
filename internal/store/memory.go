package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Priya8975/status-relay/internal/domain"
)

// MemoryStore is a process-local SubscriptionStore. Records are cloned on
// the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	subs map[string]*domain.Subscription
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[string]*domain.Subscription)}
}

func (m *MemoryStore) ListAll(ctx context.Context) ([]domain.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Subscription, 0, len(m.subs))
	for _, sub := range m.subs {
		out = append(out, *sub.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GuildID < out[j].GuildID })
	return out, nil
}

func (m *MemoryStore) Get(ctx context.Context, guildID string) (*domain.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sub, ok := m.subs[guildID]
	if !ok {
		return nil, nil
	}
	return sub.Clone(), nil
}

func (m *MemoryStore) Upsert(ctx context.Context, sub *domain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := sub.Clone()
	now := time.Now().UTC()
	if existing, ok := m.subs[sub.GuildID]; ok {
		c.CreatedAt = existing.CreatedAt
	} else if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	m.subs[sub.GuildID] = c
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, guildID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.subs[guildID]; !ok {
		return false, nil
	}
	delete(m.subs, guildID)
	return true, nil
}

func (m *MemoryStore) DeleteMany(ctx context.Context, guildIDs []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	deleted := 0
	for _, id := range guildIDs {
		if _, ok := m.subs[id]; ok {
			delete(m.subs, id)
			deleted++
		}
	}
	return deleted, nil
}

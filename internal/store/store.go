// Package store persists subscriptions and small pieces of relay state.
package store

import (
	"context"

	"github.com/Priya8975/status-relay/internal/domain"
)

// SubscriptionStore owns every Subscription record. Writes are full-record
// replacements keyed by guild id; the last write wins.
type SubscriptionStore interface {
	// ListAll returns a snapshot of every subscription.
	ListAll(ctx context.Context) ([]domain.Subscription, error)
	// Get returns nil, nil when the guild has no subscription.
	Get(ctx context.Context, guildID string) (*domain.Subscription, error)
	Upsert(ctx context.Context, sub *domain.Subscription) error
	// Delete reports whether a record was removed.
	Delete(ctx context.Context, guildID string) (bool, error)
	// DeleteMany removes the given guilds and returns how many records existed.
	DeleteMany(ctx context.Context, guildIDs []string) (int, error)
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Priya8975/status-relay/internal/domain"
)

const subscriptionColumns = `guild_id, channel_id, webhook_id, webhook_token, mode, role_pings, delivery_history, created_at, updated_at`

func (s *PostgresStore) ListAll(ctx context.Context) ([]domain.Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		ORDER BY guild_id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating subscriptions: %w", err)
	}

	return subs, nil
}

func (s *PostgresStore) Get(ctx context.Context, guildID string) (*domain.Subscription, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions WHERE guild_id = $1
	`, guildID)

	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, sub *domain.Subscription) error {
	history, err := encodeHistory(sub.DeliveryHistory)
	if err != nil {
		return err
	}

	rolePings := sub.RolePings
	if rolePings == nil {
		rolePings = []string{}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO subscriptions (guild_id, channel_id, webhook_id, webhook_token, mode, role_pings, delivery_history)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (guild_id) DO UPDATE SET
			channel_id = EXCLUDED.channel_id,
			webhook_id = EXCLUDED.webhook_id,
			webhook_token = EXCLUDED.webhook_token,
			mode = EXCLUDED.mode,
			role_pings = EXCLUDED.role_pings,
			delivery_history = EXCLUDED.delivery_history,
			updated_at = NOW()
	`, sub.GuildID, sub.ChannelID, sub.Endpoint.ID, sub.Endpoint.Token, string(sub.Mode), rolePings, history)
	if err != nil {
		return fmt.Errorf("upserting subscription %s: %w", sub.GuildID, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, guildID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM subscriptions WHERE guild_id = $1`, guildID)
	if err != nil {
		return false, fmt.Errorf("deleting subscription %s: %w", guildID, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) DeleteMany(ctx context.Context, guildIDs []string) (int, error) {
	if len(guildIDs) == 0 {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM subscriptions WHERE guild_id = ANY($1)`, guildIDs)
	if err != nil {
		return 0, fmt.Errorf("deleting %d subscriptions: %w", len(guildIDs), err)
	}
	return int(tag.RowsAffected()), nil
}

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var (
		sub     domain.Subscription
		mode    string
		history []byte
	)
	err := row.Scan(
		&sub.GuildID, &sub.ChannelID, &sub.Endpoint.ID, &sub.Endpoint.Token,
		&mode, &sub.RolePings, &history, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning subscription: %w", err)
	}

	sub.Mode, err = domain.ParseMode(mode)
	if err != nil {
		return nil, fmt.Errorf("subscription %s: %w", sub.GuildID, err)
	}

	sub.DeliveryHistory, err = decodeHistory(history)
	if err != nil {
		return nil, fmt.Errorf("subscription %s: %w", sub.GuildID, err)
	}

	return &sub, nil
}

func encodeHistory(history []domain.IncidentDeliveryRecord) ([]byte, error) {
	if history == nil {
		history = []domain.IncidentDeliveryRecord{}
	}
	b, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("encoding delivery history: %w", err)
	}
	return b, nil
}

func decodeHistory(b []byte) ([]domain.IncidentDeliveryRecord, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var history []domain.IncidentDeliveryRecord
	if err := json.Unmarshal(b, &history); err != nil {
		return nil, fmt.Errorf("decoding delivery history: %w", err)
	}
	return history, nil
}

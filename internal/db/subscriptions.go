package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"reminder-service/internal/models"
)

// GetChannelSubscription resolves a user's configuration for one channel
// type, or models.ErrNotFound.
func (d *DB) GetChannelSubscription(ctx context.Context, userID int64, channelType string) (models.ChannelSubscription, error) {
	query := `
	SELECT user_id, channel_type, configuration, enabled, created_at, updated_at
	FROM channel_subscriptions
	WHERE user_id = $1 AND channel_type = $2`

	var sub models.ChannelSubscription
	err := d.Pool.QueryRow(ctx, query, userID, channelType).Scan(
		&sub.UserID, &sub.ChannelType, &sub.Configuration, &sub.Enabled,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ChannelSubscription{}, fmt.Errorf("subscription %s for user %d: %w", channelType, userID, models.ErrNotFound)
		}
		return models.ChannelSubscription{}, fmt.Errorf("failed to get subscription %s for user %d: %w", channelType, userID, err)
	}
	return sub, nil
}

// GetChannelSubscriptionsByUser returns all of a user's subscriptions.
func (d *DB) GetChannelSubscriptionsByUser(ctx context.Context, userID int64) ([]models.ChannelSubscription, error) {
	query := `
	SELECT user_id, channel_type, configuration, enabled, created_at, updated_at
	FROM channel_subscriptions
	WHERE user_id = $1
	ORDER BY channel_type`

	rows, err := d.Pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriptions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var subs []models.ChannelSubscription
	for rows.Next() {
		var sub models.ChannelSubscription
		err := rows.Scan(
			&sub.UserID, &sub.ChannelType, &sub.Configuration, &sub.Enabled,
			&sub.CreatedAt, &sub.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

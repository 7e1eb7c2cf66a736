package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"reminder-service/internal/models"
)

// GetEscalationProfile returns a profile with its ordered tiers, or
// models.ErrNotFound.
func (d *DB) GetEscalationProfile(ctx context.Context, id uuid.UUID) (models.EscalationProfile, error) {
	query := `
	SELECT id, user_id, name, tiers, created_at, updated_at
	FROM escalation_profiles
	WHERE id = $1`

	var p models.EscalationProfile
	err := d.Pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.UserID, &p.Name, &p.Tiers, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.EscalationProfile{}, fmt.Errorf("escalation profile %s: %w", id, models.ErrNotFound)
		}
		return models.EscalationProfile{}, fmt.Errorf("failed to get escalation profile %s: %w", id, err)
	}
	return p, nil
}

// GetChannelDefinitions returns the channel catalog.
func (d *DB) GetChannelDefinitions(ctx context.Context) ([]models.ChannelDefinition, error) {
	query := `
	SELECT type, display_name, min_tier, capabilities, config_schema
	FROM channel_definitions
	ORDER BY type`

	rows, err := d.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get channel definitions: %w", err)
	}
	defer rows.Close()

	var defs []models.ChannelDefinition
	for rows.Next() {
		var def models.ChannelDefinition
		if err := rows.Scan(&def.Type, &def.DisplayName, &def.MinTier, &def.Capabilities, &def.ConfigSchema); err != nil {
			return nil, fmt.Errorf("failed to scan channel definition: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

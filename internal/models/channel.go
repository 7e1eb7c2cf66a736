package models

import "time"

// ChannelSubscription is a user's configuration for one channel type. The
// engine reads these to resolve deliveries and never mutates them.
type ChannelSubscription struct {
	UserID        int64          `json:"user_id"`
	ChannelType   string         `json:"channel_type"`
	Configuration map[string]any `json:"configuration"`
	Enabled       bool           `json:"enabled"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// ChannelDefinition is read-only catalog metadata for a channel type.
type ChannelDefinition struct {
	Type         string         `json:"type"`
	DisplayName  string         `json:"display_name"`
	MinTier      int            `json:"min_tier"`
	Capabilities []string       `json:"capabilities"`
	ConfigSchema map[string]any `json:"config_schema,omitempty"`
}

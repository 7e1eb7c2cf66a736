package db

import (
	"context"
	"fmt"
)

// schema contains the tables this service owns. Statements are idempotent so
// every process can run them at startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS reminders (
		id UUID PRIMARY KEY,
		user_id BIGINT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		importance TEXT NOT NULL DEFAULT 'MEDIUM',
		status TEXT NOT NULL DEFAULT 'ACTIVE',
		escalation_profile_id UUID NOT NULL,
		next_trigger_at TIMESTAMPTZ,
		last_triggered_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reminders_due
		ON reminders (next_trigger_at) WHERE status = 'ACTIVE'`,
	`CREATE TABLE IF NOT EXISTS escalation_profiles (
		id UUID PRIMARY KEY,
		user_id BIGINT,
		name TEXT NOT NULL,
		tiers JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS notification_logs (
		id UUID PRIMARY KEY,
		user_id BIGINT NOT NULL,
		reminder_id UUID NOT NULL,
		escalation_state_id UUID,
		channel_type TEXT NOT NULL,
		tier_number INT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		sent_at TIMESTAMPTZ,
		delivered_at TIMESTAMPTZ,
		failure_reason TEXT NOT NULL DEFAULT '',
		metadata JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notification_logs_user
		ON notification_logs (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS channel_subscriptions (
		user_id BIGINT NOT NULL,
		channel_type TEXT NOT NULL,
		configuration JSONB NOT NULL DEFAULT '{}',
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (user_id, channel_type)
	)`,
	`CREATE TABLE IF NOT EXISTS channel_definitions (
		type TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		min_tier INT NOT NULL DEFAULT 1,
		capabilities JSONB NOT NULL DEFAULT '[]',
		config_schema JSONB NOT NULL DEFAULT '{}'
	)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id UUID PRIMARY KEY,
		queue TEXT NOT NULL,
		name TEXT NOT NULL,
		payload JSONB NOT NULL DEFAULT '{}',
		status TEXT NOT NULL DEFAULT 'pending',
		attempts INT NOT NULL DEFAULT 0,
		max_attempts INT NOT NULL DEFAULT 3,
		backoff_delay_ms BIGINT NOT NULL DEFAULT 1000,
		run_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_error TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_claim
		ON jobs (queue, name, run_at) WHERE status = 'pending'`,
}

// InitSchema creates the service tables when they do not exist yet.
func (d *DB) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := d.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

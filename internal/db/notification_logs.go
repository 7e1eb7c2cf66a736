package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"reminder-service/internal/models"
)

const logColumns = `id, user_id, reminder_id, escalation_state_id, channel_type,
	tier_number, status, sent_at, delivered_at, failure_reason, metadata, created_at`

func scanNotificationLog(row pgx.Row) (models.NotificationLog, error) {
	var n models.NotificationLog
	err := row.Scan(
		&n.ID, &n.UserID, &n.ReminderID, &n.EscalationStateID, &n.ChannelType,
		&n.TierNumber, &n.Status, &n.SentAt, &n.DeliveredAt, &n.FailureReason,
		&n.Metadata, &n.CreatedAt,
	)
	return n, err
}

// CreateNotificationLog persists one delivery attempt.
func (d *DB) CreateNotificationLog(ctx context.Context, n models.NotificationLog) error {
	query := `
	INSERT INTO notification_logs (
		id, user_id, reminder_id, escalation_state_id, channel_type, tier_number,
		status, sent_at, delivered_at, failure_reason, metadata, created_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := d.Pool.Exec(ctx, query,
		n.ID, n.UserID, n.ReminderID, n.EscalationStateID, n.ChannelType,
		n.TierNumber, n.Status, n.SentAt, n.DeliveredAt, n.FailureReason,
		n.Metadata, n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification log: %w", err)
	}
	return nil
}

// GetNotificationLog returns a log row by id, or models.ErrNotFound.
func (d *DB) GetNotificationLog(ctx context.Context, id uuid.UUID) (models.NotificationLog, error) {
	query := `SELECT ` + logColumns + ` FROM notification_logs WHERE id = $1`
	n, err := scanNotificationLog(d.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.NotificationLog{}, fmt.Errorf("notification log %s: %w", id, models.ErrNotFound)
		}
		return models.NotificationLog{}, fmt.Errorf("failed to get notification log %s: %w", id, err)
	}
	return n, nil
}

// MarkNotificationDelivered transitions a row to DELIVERED. The update keeps
// an earlier delivered_at so repeating the call is harmless. Returns false
// when no row exists.
func (d *DB) MarkNotificationDelivered(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	query := `
	UPDATE notification_logs
	SET status = $1, delivered_at = COALESCE(delivered_at, $2)
	WHERE id = $3`
	tag, err := d.Pool.Exec(ctx, query, models.NotificationDelivered, at, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification %s delivered: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// GetNotificationLogsByUser returns a user's delivery attempts, newest first.
func (d *DB) GetNotificationLogsByUser(ctx context.Context, userID int64, limit, offset int) ([]models.NotificationLog, error) {
	query := `
	SELECT ` + logColumns + `
	FROM notification_logs
	WHERE user_id = $1
	ORDER BY created_at DESC
	LIMIT $2 OFFSET $3`

	rows, err := d.Pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get notification logs for user %d: %w", userID, err)
	}
	defer rows.Close()

	var logs []models.NotificationLog
	for rows.Next() {
		n, err := scanNotificationLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification log: %w", err)
		}
		logs = append(logs, n)
	}
	return logs, rows.Err()
}

// DeliveryCounts returns delivered and failed attempt counts since the given
// time, for the health snapshot.
func (d *DB) DeliveryCounts(ctx context.Context, since time.Time) (delivered, failed int, err error) {
	query := `
	SELECT
		COUNT(*) FILTER (WHERE status = $1),
		COUNT(*) FILTER (WHERE status = $2)
	FROM notification_logs
	WHERE created_at >= $3`
	err = d.Pool.QueryRow(ctx, query, models.NotificationDelivered, models.NotificationFailed, since).
		Scan(&delivered, &failed)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count deliveries: %w", err)
	}
	return delivered, failed, nil
}

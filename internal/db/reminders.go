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

const reminderColumns = `id, user_id, title, description, importance, status,
	escalation_profile_id, next_trigger_at, last_triggered_at, completed_at,
	created_at, updated_at`

func scanReminder(row pgx.Row) (models.Reminder, error) {
	var r models.Reminder
	err := row.Scan(
		&r.ID, &r.UserID, &r.Title, &r.Description, &r.Importance, &r.Status,
		&r.EscalationProfileID, &r.NextTriggerAt, &r.LastTriggeredAt,
		&r.CompletedAt, &r.CreatedAt, &r.UpdatedAt,
	)
	return r, err
}

// GetReminder returns a reminder by id, or models.ErrNotFound.
func (d *DB) GetReminder(ctx context.Context, id uuid.UUID) (models.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = $1`
	r, err := scanReminder(d.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Reminder{}, fmt.Errorf("reminder %s: %w", id, models.ErrNotFound)
		}
		return models.Reminder{}, fmt.Errorf("failed to get reminder %s: %w", id, err)
	}
	return r, nil
}

// DueReminders returns up to limit ACTIVE reminders whose next trigger time
// has passed, ordered by next_trigger_at.
func (d *DB) DueReminders(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error) {
	query := `
	SELECT ` + reminderColumns + `
	FROM reminders
	WHERE status = $1 AND next_trigger_at IS NOT NULL AND next_trigger_at <= $2
	ORDER BY next_trigger_at
	LIMIT $3`

	rows, err := d.Pool.Query(ctx, query, models.ReminderActive, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	defer rows.Close()

	var reminders []models.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

// MarkTriggered stamps last_triggered_at after the trigger job is enqueued.
func (d *DB) MarkTriggered(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
	UPDATE reminders
	SET last_triggered_at = $1, updated_at = NOW()
	WHERE id = $2`
	_, err := d.Pool.Exec(ctx, query, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark reminder %s triggered: %w", id, err)
	}
	return nil
}

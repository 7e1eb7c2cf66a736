package models

import (
	"time"

	"github.com/google/uuid"
)

// ReminderTriggerJob is the payload of a reminder.trigger queue job.
type ReminderTriggerJob struct {
	ReminderID          uuid.UUID  `json:"reminder_id"`
	UserID              int64      `json:"user_id"`
	Title               string     `json:"title"`
	Importance          Importance `json:"importance"`
	EscalationProfileID uuid.UUID  `json:"escalation_profile_id"`
	TriggeredAt         time.Time  `json:"triggered_at"`
}

// NotificationSendJob is the payload of a notification.send queue job.
type NotificationSendJob struct {
	ReminderID     uuid.UUID `json:"reminder_id"`
	UserID         int64     `json:"user_id"`
	EscalationTier int       `json:"escalation_tier"`
}

// NotificationActions is the fixed action set attached to every outbound
// notification.
var NotificationActions = []string{"snooze", "dismiss", "complete"}

// NotificationPayload is what a channel executor delivers.
type NotificationPayload struct {
	NotificationID uuid.UUID      `json:"notification_id"`
	UserID         int64          `json:"user_id"`
	ReminderID     uuid.UUID      `json:"reminder_id"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	EscalationTier int            `json:"escalation_tier"`
	Importance     Importance     `json:"importance"`
	Actions        []string       `json:"actions"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

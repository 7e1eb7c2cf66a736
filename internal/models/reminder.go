package models

import (
	"time"

	"github.com/google/uuid"
)

// Importance levels for reminders.
type Importance string

const (
	ImportanceLow      Importance = "LOW"
	ImportanceMedium   Importance = "MEDIUM"
	ImportanceHigh     Importance = "HIGH"
	ImportanceCritical Importance = "CRITICAL"
)

// ReminderStatus values. Only ACTIVE reminders are eligible for triggering.
type ReminderStatus string

const (
	ReminderActive    ReminderStatus = "ACTIVE"
	ReminderSnoozed   ReminderStatus = "SNOOZED"
	ReminderCompleted ReminderStatus = "COMPLETED"
	ReminderArchived  ReminderStatus = "ARCHIVED"
)

// Reminder is the unit of work the escalation engine acts on. The engine only
// mutates LastTriggeredAt; snooze/complete/acknowledge transitions happen in
// the user-facing layer.
type Reminder struct {
	ID                  uuid.UUID      `json:"id"`
	UserID              int64          `json:"user_id"`
	Title               string         `json:"title"`
	Description         string         `json:"description,omitempty"`
	Importance          Importance     `json:"importance"`
	Status              ReminderStatus `json:"status"`
	EscalationProfileID uuid.UUID      `json:"escalation_profile_id"`
	NextTriggerAt       *time.Time     `json:"next_trigger_at,omitempty"`
	LastTriggeredAt     *time.Time     `json:"last_triggered_at,omitempty"`
	CompletedAt         *time.Time     `json:"completed_at,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationStatus values for delivery attempts.
type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "PENDING"
	NotificationSent      NotificationStatus = "SENT"
	NotificationDelivered NotificationStatus = "DELIVERED"
	NotificationFailed    NotificationStatus = "FAILED"
)

// NotificationLog records one delivery attempt through one channel for one
// tier of one reminder. Rows are append-mostly: the only later mutation is the
// transition to DELIVERED for channels that confirm out of band.
type NotificationLog struct {
	ID                uuid.UUID          `json:"id"`
	UserID            int64              `json:"user_id"`
	ReminderID        uuid.UUID          `json:"reminder_id"`
	EscalationStateID *uuid.UUID         `json:"escalation_state_id,omitempty"`
	ChannelType       string             `json:"channel_type"`
	TierNumber        int                `json:"tier_number"`
	Status            NotificationStatus `json:"status"`
	SentAt            *time.Time         `json:"sent_at,omitempty"`
	DeliveredAt       *time.Time         `json:"delivered_at,omitempty"`
	FailureReason     string             `json:"failure_reason,omitempty"`
	Metadata          map[string]any     `json:"metadata,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}

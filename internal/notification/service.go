// Package notification implements the tier fan-out at the heart of the
// escalation engine: one escalation step becomes one delivery attempt per
// channel listed in the tier, each recorded as a NotificationLog row.
package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"reminder-service/internal/models"
)

// Store is the slice of the persistent store this service needs.
type Store interface {
	GetReminder(ctx context.Context, id uuid.UUID) (models.Reminder, error)
	GetEscalationProfile(ctx context.Context, id uuid.UUID) (models.EscalationProfile, error)
	CreateNotificationLog(ctx context.Context, n models.NotificationLog) error
	MarkNotificationDelivered(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// Executor delivers one payload through one channel, returning a structured
// result. Implemented by the agent registry.
type Executor interface {
	Execute(ctx context.Context, channelType string, userID int64, payload models.NotificationPayload) models.AgentResult
}

// Service fans reminder escalations out to channels.
type Service struct {
	store    Store
	executor Executor
	logger   *logrus.Logger
}

func New(store Store, executor Executor, logger *logrus.Logger) *Service {
	return &Service{store: store, executor: executor, logger: logger}
}

// SendTierNotifications delivers one escalation tier of a reminder. Sends for
// the tier's channels run concurrently and their outcomes are gathered before
// any row is persisted, so results come back in declared channel order. One
// channel's failure never skips the rest: the returned slice always has one
// row per channel.
//
// A tier the profile does not define ends the escalation chain and yields an
// empty slice, not an error. A missing reminder or profile is a not-found
// error and creates no rows.
func (s *Service) SendTierNotifications(ctx context.Context, reminderID uuid.UUID, userID int64, tier int) ([]models.NotificationLog, error) {
	reminder, err := s.store.GetReminder(ctx, reminderID)
	if err != nil {
		return nil, err
	}
	profile, err := s.store.GetEscalationProfile(ctx, reminder.EscalationProfileID)
	if err != nil {
		return nil, err
	}

	t, ok := profile.TierByNumber(tier)
	if !ok {
		s.logger.Infof("Reminder %s has no tier %d in profile %s, escalation ends", reminderID, tier, profile.ID)
		return []models.NotificationLog{}, nil
	}

	payloads := make([]models.NotificationPayload, len(t.Channels))
	results := make([]models.AgentResult, len(t.Channels))
	var wg sync.WaitGroup
	for i, channel := range t.Channels {
		payloads[i] = s.buildPayload(reminder, t, tier)
		wg.Add(1)
		go func(i int, channel string) {
			defer wg.Done()
			results[i] = s.executor.Execute(ctx, channel, userID, payloads[i])
		}(i, channel)
	}
	wg.Wait()

	logs := make([]models.NotificationLog, 0, len(t.Channels))
	for i, channel := range t.Channels {
		row := s.logRow(reminder, channel, tier, payloads[i], results[i])
		if err := s.store.CreateNotificationLog(ctx, row); err != nil {
			// The attempt already happened; losing the row must not abort
			// the remaining channels of the tier.
			s.logger.Errorf("Failed to persist notification log for reminder %s via %s: %v", reminderID, channel, err)
		}
		logs = append(logs, row)
	}
	return logs, nil
}

// SendNotification is the strict single-channel path used for direct, manual
// and test sends. It logs the attempt the same way as the tier fan-out but
// returns an error when the send failed.
func (s *Service) SendNotification(ctx context.Context, userID int64, reminderID uuid.UUID, channelType string, message string) (models.NotificationLog, error) {
	reminder, err := s.store.GetReminder(ctx, reminderID)
	if err != nil {
		return models.NotificationLog{}, err
	}

	payload := s.buildPayload(reminder, models.Tier{Message: message}, 0)
	result := s.executor.Execute(ctx, channelType, userID, payload)

	row := s.logRow(reminder, channelType, 0, payload, result)
	if err := s.store.CreateNotificationLog(ctx, row); err != nil {
		return models.NotificationLog{}, err
	}
	if !result.Success {
		return row, fmt.Errorf("send via %s failed: %s", channelType, result.Error)
	}
	return row, nil
}

// MarkAsDelivered transitions a log row to DELIVERED for channels that
// confirm delivery asynchronously. The transition is idempotent; a missing
// row is a not-found error.
func (s *Service) MarkAsDelivered(ctx context.Context, notificationID uuid.UUID) error {
	found, err := s.store.MarkNotificationDelivered(ctx, notificationID, time.Now())
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("notification log %s: %w", notificationID, models.ErrNotFound)
	}
	return nil
}

// buildPayload assembles the outbound payload. The message priority is the
// tier override, then the reminder description, then the title.
func (s *Service) buildPayload(reminder models.Reminder, tier models.Tier, tierNumber int) models.NotificationPayload {
	message := tier.Message
	if message == "" {
		message = reminder.Description
	}
	if message == "" {
		message = reminder.Title
	}
	return models.NotificationPayload{
		NotificationID: uuid.New(),
		UserID:         reminder.UserID,
		ReminderID:     reminder.ID,
		Title:          reminder.Title,
		Message:        message,
		EscalationTier: tierNumber,
		Importance:     reminder.Importance,
		Actions:        models.NotificationActions,
		Metadata: map[string]any{
			"include_trusted_contacts": tier.IncludeTrustedContacts,
		},
	}
}

// logRow snapshots one delivery attempt. A confirmed synchronous send is
// DELIVERED immediately; any structured failure is FAILED with its reason.
func (s *Service) logRow(reminder models.Reminder, channel string, tier int, payload models.NotificationPayload, result models.AgentResult) models.NotificationLog {
	now := time.Now()
	row := models.NotificationLog{
		ID:          payload.NotificationID,
		UserID:      reminder.UserID,
		ReminderID:  reminder.ID,
		ChannelType: channel,
		TierNumber:  tier,
		SentAt:      &now,
		CreatedAt:   now,
		Metadata: map[string]any{
			"title":           payload.Title,
			"message":         payload.Message,
			"escalation_tier": payload.EscalationTier,
			"importance":      string(payload.Importance),
			"actions":         payload.Actions,
		},
	}
	if result.Success {
		row.Status = models.NotificationDelivered
		row.DeliveredAt = &now
	} else {
		row.Status = models.NotificationFailed
		row.FailureReason = result.Error
	}
	return row
}

package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"reminder-service/internal/models"
	"reminder-service/internal/queue"
)

// TierSender runs the tier fan-out. Implemented by the notification service.
type TierSender interface {
	SendTierNotifications(ctx context.Context, reminderID uuid.UUID, userID int64, tier int) ([]models.NotificationLog, error)
}

// NotificationProcessor consumes notification.send jobs.
type NotificationProcessor struct {
	sender TierSender
	logger *logrus.Logger
}

func NewNotificationProcessor(sender TierSender, logger *logrus.Logger) *NotificationProcessor {
	return &NotificationProcessor{sender: sender, logger: logger}
}

// HandleSend invokes the tier fan-out for one escalation step. Per-channel
// failures are already recorded as FAILED log rows and are not job failures;
// only a thrown fan-out error fails the job. A missing reminder or profile is
// permanent: retrying cannot bring it back.
func (p *NotificationProcessor) HandleSend(ctx context.Context, payload []byte) error {
	var job models.NotificationSendJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return queue.Permanent(fmt.Errorf("invalid notification.send payload: %w", err))
	}

	logs, err := p.sender.SendTierNotifications(ctx, job.ReminderID, job.UserID, job.EscalationTier)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return queue.Permanent(err)
		}
		return err
	}

	failed := 0
	for _, l := range logs {
		if l.Status == models.NotificationFailed {
			failed++
		}
	}
	p.logger.Infof("Tier %d of reminder %s notified %d channels (%d failed)",
		job.EscalationTier, job.ReminderID, len(logs), failed)
	return nil
}

// Package processor holds the queue consumers: the reminder processor that
// revalidates triggered reminders and starts tier 1, and the notification
// processor that runs the tier fan-out.
package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"reminder-service/internal/eventbus"
	"reminder-service/internal/models"
	"reminder-service/internal/queue"
)

// ReminderStore is the store slice of the reminder processor.
type ReminderStore interface {
	GetReminder(ctx context.Context, id uuid.UUID) (models.Reminder, error)
}

// Enqueuer is the queue operation of the reminder processor.
type Enqueuer interface {
	Enqueue(ctx context.Context, queueName, jobName string, payload any, opts queue.Options) error
}

// Publisher is the event bus operation of the reminder processor.
type Publisher interface {
	Publish(event eventbus.Event)
}

// ReminderProcessor consumes reminder.trigger jobs.
type ReminderProcessor struct {
	store  ReminderStore
	queue  Enqueuer
	bus    Publisher
	logger *logrus.Logger
}

func NewReminderProcessor(store ReminderStore, q Enqueuer, bus Publisher, logger *logrus.Logger) *ReminderProcessor {
	return &ReminderProcessor{store: store, queue: q, bus: bus, logger: logger}
}

// HandleTrigger revalidates a triggered reminder and starts its first
// escalation tier. The reminder may have changed since the job was enqueued:
// a missing or no-longer-ACTIVE reminder is dropped silently, which is how
// snooze/complete/archive races resolve.
func (p *ReminderProcessor) HandleTrigger(ctx context.Context, payload []byte) error {
	var job models.ReminderTriggerJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return queue.Permanent(fmt.Errorf("invalid reminder.trigger payload: %w", err))
	}

	reminder, err := p.store.GetReminder(ctx, job.ReminderID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			p.logger.Infof("Reminder %s gone, dropping trigger", job.ReminderID)
			return nil
		}
		return err
	}
	if reminder.Status != models.ReminderActive {
		p.logger.Infof("Reminder %s is %s, dropping trigger", reminder.ID, reminder.Status)
		return nil
	}

	p.bus.Publish(eventbus.NewEvent(eventbus.EventReminderTriggered, reminder, "reminder-processor"))

	send := models.NotificationSendJob{
		ReminderID:     reminder.ID,
		UserID:         reminder.UserID,
		EscalationTier: 1,
	}
	if err := p.queue.Enqueue(ctx, queue.Default, queue.JobNotificationSend, send, queue.DefaultOptions); err != nil {
		return fmt.Errorf("failed to enqueue notification.send for reminder %s: %w", reminder.ID, err)
	}
	return nil
}

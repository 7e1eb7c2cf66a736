// Package kafka consumes externally produced reminder trigger messages and
// feeds them into the durable job queue. It is optional: deployments whose
// triggers come solely from the scheduler run without it.
package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"reminder-service/internal/models"
	"reminder-service/internal/queue"
)

// Enqueuer is the queue operation the consumer needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, queueName, jobName string, payload any, opts queue.Options) error
}

type Consumer struct {
	reader *kafka.Reader
	queue  Enqueuer
	logger *logrus.Logger
}

func NewConsumer(broker, topic, groupID string, q Enqueuer, logger *logrus.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{broker},
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, queue: q, logger: logger}
}

// triggerMessage is the external trigger wire format.
type triggerMessage struct {
	ReminderID          string `json:"reminder_id"`
	UserID              int64  `json:"user_id"`
	Title               string `json:"title"`
	Importance          string `json:"importance"`
	EscalationProfileID string `json:"escalation_profile_id"`
}

// Start reads messages until ctx is cancelled. Malformed or incomplete
// messages are logged and skipped; a valid message becomes a durable
// reminder.trigger job.
func (c *Consumer) Start(ctx context.Context, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.logger.Info("Kafka trigger consumer started")

		for {
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				c.logger.Errorf("Read message failed: %v", err)
				continue
			}

			var trigger triggerMessage
			if err := json.Unmarshal(msg.Value, &trigger); err != nil {
				c.logger.Errorf("Unmarshal trigger message failed: %v", err)
				continue
			}

			reminderID, err := uuid.Parse(trigger.ReminderID)
			if err != nil || trigger.UserID < 1 {
				c.logger.Error("Invalid trigger message: missing reminder_id or user_id")
				continue
			}
			profileID, _ := uuid.Parse(trigger.EscalationProfileID)

			job := models.ReminderTriggerJob{
				ReminderID:          reminderID,
				UserID:              trigger.UserID,
				Title:               trigger.Title,
				Importance:          models.Importance(trigger.Importance),
				EscalationProfileID: profileID,
				TriggeredAt:         time.Now(),
			}
			if err := c.queue.Enqueue(ctx, queue.HighPriority, queue.JobReminderTrigger, job, queue.DefaultOptions); err != nil {
				c.logger.Errorf("Failed to enqueue trigger for reminder %s: %v", reminderID, err)
				continue
			}
			c.logger.Infof("Enqueued external trigger for reminder %s", reminderID)
		}
	}()
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Errorf("Failed to close kafka reader: %v", err)
	}
}

// Package scheduler finds due reminders and turns each into a durable
// reminder.trigger job. Exactly one process may run it; the singleton
// requirement is enforced with a Postgres advisory lock taken by cmd/scheduler
// before the tick loop starts.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"reminder-service/internal/models"
	"reminder-service/internal/queue"
)

// ReminderStore is the slice of the store the scheduler needs.
type ReminderStore interface {
	DueReminders(ctx context.Context, now time.Time, limit int) ([]models.Reminder, error)
	MarkTriggered(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Enqueuer is the queue operation the scheduler needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, queueName, jobName string, payload any, opts queue.Options) error
}

// Scheduler polls the store for due ACTIVE reminders every tick and enqueues
// a trigger job per reminder.
type Scheduler struct {
	store     ReminderStore
	queue     Enqueuer
	logger    *logrus.Logger
	tick      time.Duration
	batchSize int
	now       func() time.Time
}

func New(store ReminderStore, q Enqueuer, logger *logrus.Logger, tick time.Duration, batchSize int) *Scheduler {
	if tick <= 0 {
		tick = 60 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Scheduler{
		store:     store,
		queue:     q,
		logger:    logger,
		tick:      tick,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Infof("Scheduler started (tick %s, batch %d)", s.tick, s.batchSize)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick collects one batch of due reminders and enqueues a trigger job per
// reminder. Collection and per-reminder enqueue are independent: one
// reminder's failure is logged and never blocks the rest of the batch.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()
	due, err := s.store.DueReminders(ctx, now, s.batchSize)
	if err != nil {
		s.logger.Errorf("Failed to collect due reminders: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}
	s.logger.Infof("Triggering %d due reminders", len(due))

	for _, r := range due {
		if err := s.trigger(ctx, r, now); err != nil {
			s.logger.Errorf("Failed to trigger reminder %s: %v", r.ID, err)
		}
	}
}

func (s *Scheduler) trigger(ctx context.Context, r models.Reminder, now time.Time) error {
	payload := models.ReminderTriggerJob{
		ReminderID:          r.ID,
		UserID:              r.UserID,
		Title:               r.Title,
		Importance:          r.Importance,
		EscalationProfileID: r.EscalationProfileID,
		TriggeredAt:         now,
	}
	if err := s.queue.Enqueue(ctx, queue.HighPriority, queue.JobReminderTrigger, payload, queue.DefaultOptions); err != nil {
		return err
	}
	// Stamp after the enqueue; if this fails the reminder is re-collected
	// next tick and the processor tolerates the duplicate.
	return s.store.MarkTriggered(ctx, r.ID, now)
}

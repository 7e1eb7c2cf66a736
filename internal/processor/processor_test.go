package processor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reminder-service/internal/eventbus"
	"reminder-service/internal/models"
	"reminder-service/internal/queue"
)

type fakeReminderStore struct {
	reminders map[uuid.UUID]models.Reminder
	err       error
}

func (s *fakeReminderStore) GetReminder(_ context.Context, id uuid.UUID) (models.Reminder, error) {
	if s.err != nil {
		return models.Reminder{}, s.err
	}
	r, ok := s.reminders[id]
	if !ok {
		return models.Reminder{}, models.ErrNotFound
	}
	return r, nil
}

type fakeEnqueuer struct {
	jobs []models.NotificationSendJob
	err  error
}

func (q *fakeEnqueuer) Enqueue(_ context.Context, queueName, jobName string, payload any, _ queue.Options) error {
	if q.err != nil {
		return q.err
	}
	if queueName != queue.Default || jobName != queue.JobNotificationSend {
		return errors.New("unexpected job routing")
	}
	q.jobs = append(q.jobs, payload.(models.NotificationSendJob))
	return nil
}

type fakeBus struct {
	events []eventbus.Event
}

func (b *fakeBus) Publish(e eventbus.Event) { b.events = append(b.events, e) }

func triggerPayload(t *testing.T, id uuid.UUID) []byte {
	t.Helper()
	body, err := json.Marshal(models.ReminderTriggerJob{ReminderID: id, UserID: 42})
	require.NoError(t, err)
	return body
}

func TestHandleTrigger_ActiveReminderStartsTierOne(t *testing.T) {
	reminder := models.Reminder{
		ID:     uuid.New(),
		UserID: 42,
		Status: models.ReminderActive,
	}
	store := &fakeReminderStore{reminders: map[uuid.UUID]models.Reminder{reminder.ID: reminder}}
	q := &fakeEnqueuer{}
	bus := &fakeBus{}
	logger, _ := test.NewNullLogger()
	p := NewReminderProcessor(store, q, bus, logger)

	err := p.HandleTrigger(context.Background(), triggerPayload(t, reminder.ID))
	require.NoError(t, err)

	require.Len(t, q.jobs, 1)
	assert.Equal(t, reminder.ID, q.jobs[0].ReminderID)
	assert.Equal(t, int64(42), q.jobs[0].UserID)
	assert.Equal(t, 1, q.jobs[0].EscalationTier)

	require.Len(t, bus.events, 1)
	assert.Equal(t, eventbus.EventReminderTriggered, bus.events[0].Type)
	assert.Equal(t, reminder, bus.events[0].Payload)
}

func TestHandleTrigger_MissingReminderIsDroppedSilently(t *testing.T) {
	store := &fakeReminderStore{reminders: map[uuid.UUID]models.Reminder{}}
	q := &fakeEnqueuer{}
	bus := &fakeBus{}
	logger, _ := test.NewNullLogger()
	p := NewReminderProcessor(store, q, bus, logger)

	err := p.HandleTrigger(context.Background(), triggerPayload(t, uuid.New()))
	assert.NoError(t, err)
	assert.Empty(t, q.jobs)
	assert.Empty(t, bus.events)
}

func TestHandleTrigger_NonActiveReminderIsDropped(t *testing.T) {
	for _, status := range []models.ReminderStatus{
		models.ReminderSnoozed, models.ReminderCompleted, models.ReminderArchived,
	} {
		t.Run(string(status), func(t *testing.T) {
			reminder := models.Reminder{ID: uuid.New(), UserID: 42, Status: status}
			store := &fakeReminderStore{reminders: map[uuid.UUID]models.Reminder{reminder.ID: reminder}}
			q := &fakeEnqueuer{}
			bus := &fakeBus{}
			logger, _ := test.NewNullLogger()
			p := NewReminderProcessor(store, q, bus, logger)

			err := p.HandleTrigger(context.Background(), triggerPayload(t, reminder.ID))
			assert.NoError(t, err)
			assert.Empty(t, q.jobs)
			assert.Empty(t, bus.events)
		})
	}
}

func TestHandleTrigger_StoreErrorIsRetryable(t *testing.T) {
	store := &fakeReminderStore{err: errors.New("db timeout")}
	logger, _ := test.NewNullLogger()
	p := NewReminderProcessor(store, &fakeEnqueuer{}, &fakeBus{}, logger)

	err := p.HandleTrigger(context.Background(), triggerPayload(t, uuid.New()))
	require.Error(t, err)
	assert.False(t, queue.IsPermanent(err))
}

func TestHandleTrigger_InvalidPayloadIsPermanent(t *testing.T) {
	logger, _ := test.NewNullLogger()
	p := NewReminderProcessor(&fakeReminderStore{}, &fakeEnqueuer{}, &fakeBus{}, logger)

	err := p.HandleTrigger(context.Background(), []byte("{not json"))
	require.Error(t, err)
	assert.True(t, queue.IsPermanent(err))
}

type fakeSender struct {
	logs []models.NotificationLog
	err  error

	gotReminder uuid.UUID
	gotTier     int
}

func (s *fakeSender) SendTierNotifications(_ context.Context, reminderID uuid.UUID, _ int64, tier int) ([]models.NotificationLog, error) {
	s.gotReminder = reminderID
	s.gotTier = tier
	return s.logs, s.err
}

func sendPayload(t *testing.T, id uuid.UUID, tier int) []byte {
	t.Helper()
	body, err := json.Marshal(models.NotificationSendJob{ReminderID: id, UserID: 42, EscalationTier: tier})
	require.NoError(t, err)
	return body
}

func TestHandleSend_RunsFanOutForRequestedTier(t *testing.T) {
	sender := &fakeSender{logs: []models.NotificationLog{
		{Status: models.NotificationDelivered},
		{Status: models.NotificationFailed},
	}}
	logger, _ := test.NewNullLogger()
	p := NewNotificationProcessor(sender, logger)
	id := uuid.New()

	err := p.HandleSend(context.Background(), sendPayload(t, id, 2))
	require.NoError(t, err)
	assert.Equal(t, id, sender.gotReminder)
	assert.Equal(t, 2, sender.gotTier)
}

func TestHandleSend_NotFoundIsPermanent(t *testing.T) {
	sender := &fakeSender{err: models.ErrNotFound}
	logger, _ := test.NewNullLogger()
	p := NewNotificationProcessor(sender, logger)

	err := p.HandleSend(context.Background(), sendPayload(t, uuid.New(), 1))
	require.Error(t, err)
	assert.True(t, queue.IsPermanent(err))
}

func TestHandleSend_TransientErrorIsRetryable(t *testing.T) {
	sender := &fakeSender{err: errors.New("pool exhausted")}
	logger, _ := test.NewNullLogger()
	p := NewNotificationProcessor(sender, logger)

	err := p.HandleSend(context.Background(), sendPayload(t, uuid.New(), 1))
	require.Error(t, err)
	assert.False(t, queue.IsPermanent(err))
}

func TestHandleSend_InvalidPayloadIsPermanent(t *testing.T) {
	logger, _ := test.NewNullLogger()
	p := NewNotificationProcessor(&fakeSender{}, logger)

	err := p.HandleSend(context.Background(), []byte("??"))
	require.Error(t, err)
	assert.True(t, queue.IsPermanent(err))
}

func TestHandleSend_ChannelFailuresAreNotJobFailures(t *testing.T) {
	sender := &fakeSender{logs: []models.NotificationLog{
		{Status: models.NotificationFailed},
		{Status: models.NotificationFailed},
	}}
	logger, _ := test.NewNullLogger()
	p := NewNotificationProcessor(sender, logger)

	assert.NoError(t, p.HandleSend(context.Background(), sendPayload(t, uuid.New(), 1)))
}

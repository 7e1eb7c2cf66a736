package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reminder-service/internal/models"
	"reminder-service/internal/queue"
)

type fakeStore struct {
	due       []models.Reminder
	dueErr    error
	triggered []uuid.UUID
	markErr   error

	gotNow   time.Time
	gotLimit int
}

func (s *fakeStore) DueReminders(_ context.Context, now time.Time, limit int) ([]models.Reminder, error) {
	s.gotNow = now
	s.gotLimit = limit
	return s.due, s.dueErr
}

func (s *fakeStore) MarkTriggered(_ context.Context, id uuid.UUID, _ time.Time) error {
	if s.markErr != nil {
		return s.markErr
	}
	s.triggered = append(s.triggered, id)
	return nil
}

type enqueued struct {
	queue   string
	name    string
	payload any
}

type fakeQueue struct {
	jobs    []enqueued
	failFor map[uuid.UUID]error
}

func (q *fakeQueue) Enqueue(_ context.Context, queueName, jobName string, payload any, _ queue.Options) error {
	if job, ok := payload.(models.ReminderTriggerJob); ok {
		if err, fail := q.failFor[job.ReminderID]; fail {
			return err
		}
	}
	q.jobs = append(q.jobs, enqueued{queue: queueName, name: jobName, payload: payload})
	return nil
}

func activeReminder(title string) models.Reminder {
	return models.Reminder{
		ID:                  uuid.New(),
		UserID:              42,
		Title:               title,
		Importance:          models.ImportanceMedium,
		Status:              models.ReminderActive,
		EscalationProfileID: uuid.New(),
	}
}

func newTestScheduler(store *fakeStore, q *fakeQueue) *Scheduler {
	logger, _ := test.NewNullLogger()
	s := New(store, q, logger, time.Minute, 100)
	s.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestTick_EnqueuesTriggerPerDueReminder(t *testing.T) {
	r1 := activeReminder("first")
	r2 := activeReminder("second")
	store := &fakeStore{due: []models.Reminder{r1, r2}}
	q := &fakeQueue{}
	s := newTestScheduler(store, q)

	s.Tick(context.Background())

	require.Len(t, q.jobs, 2)
	assert.Equal(t, queue.HighPriority, q.jobs[0].queue)
	assert.Equal(t, queue.JobReminderTrigger, q.jobs[0].name)

	job := q.jobs[0].payload.(models.ReminderTriggerJob)
	assert.Equal(t, r1.ID, job.ReminderID)
	assert.Equal(t, r1.UserID, job.UserID)
	assert.Equal(t, "first", job.Title)
	assert.Equal(t, r1.EscalationProfileID, job.EscalationProfileID)
	assert.Equal(t, s.now(), job.TriggeredAt)

	assert.Equal(t, []uuid.UUID{r1.ID, r2.ID}, store.triggered)
}

func TestTick_PassesBatchLimitAndClock(t *testing.T) {
	store := &fakeStore{}
	s := newTestScheduler(store, &fakeQueue{})

	s.Tick(context.Background())

	assert.Equal(t, 100, store.gotLimit)
	assert.Equal(t, s.now(), store.gotNow)
}

func TestTick_CollectErrorTriggersNothing(t *testing.T) {
	store := &fakeStore{dueErr: errors.New("db down")}
	q := &fakeQueue{}
	s := newTestScheduler(store, q)

	s.Tick(context.Background())

	assert.Empty(t, q.jobs)
	assert.Empty(t, store.triggered)
}

func TestTick_OneFailureDoesNotBlockBatch(t *testing.T) {
	r1 := activeReminder("breaks")
	r2 := activeReminder("survives")
	store := &fakeStore{due: []models.Reminder{r1, r2}}
	q := &fakeQueue{failFor: map[uuid.UUID]error{r1.ID: errors.New("enqueue refused")}}
	s := newTestScheduler(store, q)

	s.Tick(context.Background())

	require.Len(t, q.jobs, 1)
	job := q.jobs[0].payload.(models.ReminderTriggerJob)
	assert.Equal(t, r2.ID, job.ReminderID)
	// The failed reminder keeps its trigger timestamp so the next tick
	// re-collects it.
	assert.Equal(t, []uuid.UUID{r2.ID}, store.triggered)
}

func TestTick_EnqueueBeforeMarkTriggered(t *testing.T) {
	r := activeReminder("ordering")
	store := &fakeStore{due: []models.Reminder{r}, markErr: errors.New("stamp failed")}
	q := &fakeQueue{}
	s := newTestScheduler(store, q)

	s.Tick(context.Background())

	// Enqueue happened even though stamping failed; at-least-once, never
	// at-most-once.
	assert.Len(t, q.jobs, 1)
	assert.Empty(t, store.triggered)
}

func TestTriggerJobPayload_WireShape(t *testing.T) {
	r := activeReminder("wire")
	store := &fakeStore{due: []models.Reminder{r}}
	q := &fakeQueue{}
	s := newTestScheduler(store, q)

	s.Tick(context.Background())

	require.Len(t, q.jobs, 1)
	body, err := json.Marshal(q.jobs[0].payload)
	require.NoError(t, err)

	var decoded models.ReminderTriggerJob
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, r.ID, decoded.ReminderID)
	assert.Equal(t, models.ImportanceMedium, decoded.Importance)
}

func TestNew_DefaultsForBadConfig(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s := New(&fakeStore{}, &fakeQueue{}, logger, 0, -1)

	assert.Equal(t, 60*time.Second, s.tick)
	assert.Equal(t, 100, s.batchSize)
}

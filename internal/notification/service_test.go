package notification

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reminder-service/internal/models"
)

// --- fakes ---

type fakeStore struct {
	reminders map[uuid.UUID]models.Reminder
	profiles  map[uuid.UUID]models.EscalationProfile
	created   []models.NotificationLog
	createErr error
	delivered map[uuid.UUID]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		reminders: make(map[uuid.UUID]models.Reminder),
		profiles:  make(map[uuid.UUID]models.EscalationProfile),
		delivered: make(map[uuid.UUID]int),
	}
}

func (s *fakeStore) GetReminder(_ context.Context, id uuid.UUID) (models.Reminder, error) {
	r, ok := s.reminders[id]
	if !ok {
		return models.Reminder{}, models.ErrNotFound
	}
	return r, nil
}

func (s *fakeStore) GetEscalationProfile(_ context.Context, id uuid.UUID) (models.EscalationProfile, error) {
	p, ok := s.profiles[id]
	if !ok {
		return models.EscalationProfile{}, models.ErrNotFound
	}
	return p, nil
}

func (s *fakeStore) CreateNotificationLog(_ context.Context, n models.NotificationLog) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, n)
	return nil
}

func (s *fakeStore) MarkNotificationDelivered(_ context.Context, id uuid.UUID, _ time.Time) (bool, error) {
	if _, ok := s.delivered[id]; !ok {
		return false, nil
	}
	s.delivered[id]++
	return true, nil
}

type stubExecutor struct {
	results map[string]models.AgentResult
	calls   []string
}

func (e *stubExecutor) Execute(_ context.Context, channelType string, _ int64, _ models.NotificationPayload) models.AgentResult {
	e.calls = append(e.calls, channelType)
	if res, ok := e.results[channelType]; ok {
		return res
	}
	return models.AgentSuccess()
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setup(t *testing.T, tiers []models.Tier) (*Service, *fakeStore, *stubExecutor, models.Reminder) {
	t.Helper()
	store := newFakeStore()
	exec := &stubExecutor{results: make(map[string]models.AgentResult)}

	profile := models.EscalationProfile{ID: uuid.New(), Name: "default", Tiers: tiers}
	reminder := models.Reminder{
		ID:                  uuid.New(),
		UserID:              42,
		Title:               "Take medication",
		Description:         "Blood pressure pills, two of them",
		Importance:          models.ImportanceHigh,
		Status:              models.ReminderActive,
		EscalationProfileID: profile.ID,
	}
	store.profiles[profile.ID] = profile
	store.reminders[reminder.ID] = reminder

	return New(store, exec, testLogger()), store, exec, reminder
}

func TestSendTierNotifications_Delivered(t *testing.T) {
	svc, store, _, reminder := setup(t, []models.Tier{
		{TierNumber: 1, Channels: []string{"webhook"}},
	})

	logs, err := svc.SendTierNotifications(context.Background(), reminder.ID, reminder.UserID, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	assert.Equal(t, models.NotificationDelivered, logs[0].Status)
	assert.Equal(t, "webhook", logs[0].ChannelType)
	assert.Equal(t, 1, logs[0].TierNumber)
	assert.Equal(t, 1, logs[0].Metadata["escalation_tier"])
	assert.NotNil(t, logs[0].DeliveredAt)
	assert.Len(t, store.created, 1)
}

func TestSendTierNotifications_FailureReasonRecorded(t *testing.T) {
	svc, _, exec, reminder := setup(t, []models.Tier{
		{TierNumber: 1, Channels: []string{"webhook"}},
	})
	exec.results["webhook"] = models.AgentResult{Success: false, Error: "boom"}

	logs, err := svc.SendTierNotifications(context.Background(), reminder.ID, reminder.UserID, 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	assert.Equal(t, models.NotificationFailed, logs[0].Status)
	assert.Equal(t, "boom", logs[0].FailureReason)
	assert.Nil(t, logs[0].DeliveredAt)
}

func TestSendTierNotifications_MissingTierEndsChain(t *testing.T) {
	svc, store, exec, reminder := setup(t, []models.Tier{
		{TierNumber: 1, Channels: []string{"webhook"}},
	})

	logs, err := svc.SendTierNotifications(context.Background(), reminder.ID, reminder.UserID, 2)
	require.NoError(t, err)
	assert.Empty(t, logs)
	assert.Empty(t, store.created)
	assert.Empty(t, exec.calls)
}

func TestSendTierNotifications_ReminderNotFound(t *testing.T) {
	svc, store, _, _ := setup(t, nil)

	_, err := svc.SendTierNotifications(context.Background(), uuid.New(), 42, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, store.created)
}

func TestSendTierNotifications_ProfileNotFound(t *testing.T) {
	svc, store, _, reminder := setup(t, nil)
	// Point the reminder at a profile that does not exist.
	broken := store.reminders[reminder.ID]
	broken.EscalationProfileID = uuid.New()
	store.reminders[reminder.ID] = broken

	_, err := svc.SendTierNotifications(context.Background(), reminder.ID, reminder.UserID, 1)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, store.created)
}

func TestSendTierNotifications_RowPerChannel(t *testing.T) {
	svc, store, exec, reminder := setup(t, []models.Tier{
		{TierNumber: 1, Channels: []string{"webhook", "email", "sms"}},
	})
	exec.results["email"] = models.AgentResult{Success: false, Error: "smtp down"}
	exec.results["sms"] = models.AgentResult{Success: false, Error: "no number"}

	logs, err := svc.SendTierNotifications(context.Background(), reminder.ID, reminder.UserID, 1)
	require.NoError(t, err)
	require.Len(t, logs, 3)

	// Declared tier order is preserved even though sends run concurrently.
	assert.Equal(t, "webhook", logs[0].ChannelType)
	assert.Equal(t, "email", logs[1].ChannelType)
	assert.Equal(t, "sms", logs[2].ChannelType)
	assert.Equal(t, models.NotificationDelivered, logs[0].Status)
	assert.Equal(t, models.NotificationFailed, logs[1].Status)
	assert.Equal(t, "smtp down", logs[1].FailureReason)
	assert.Equal(t, models.NotificationFailed, logs[2].Status)
	assert.Len(t, store.created, 3)
}

func TestSendTierNotifications_MessagePriority(t *testing.T) {
	tests := []struct {
		name        string
		tierMessage string
		description string
		want        string
	}{
		{"tier override wins", "Escalated: call now", "desc", "Escalated: call now"},
		{"description next", "", "desc", "desc"},
		{"title as last resort", "", "", "Take medication"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _, reminder := setup(t, []models.Tier{
				{TierNumber: 1, Channels: []string{"webhook"}, Message: tt.tierMessage},
			})
			r := store.reminders[reminder.ID]
			r.Description = tt.description
			store.reminders[reminder.ID] = r

			logs, err := svc.SendTierNotifications(context.Background(), reminder.ID, reminder.UserID, 1)
			require.NoError(t, err)
			require.Len(t, logs, 1)
			assert.Equal(t, tt.want, logs[0].Metadata["message"])
		})
	}
}

func TestMarkAsDelivered_Idempotent(t *testing.T) {
	svc, store, _, _ := setup(t, nil)
	id := uuid.New()
	store.delivered[id] = 0

	require.NoError(t, svc.MarkAsDelivered(context.Background(), id))
	require.NoError(t, svc.MarkAsDelivered(context.Background(), id))
	assert.Equal(t, 2, store.delivered[id])
}

func TestMarkAsDelivered_NotFound(t *testing.T) {
	svc, _, _, _ := setup(t, nil)

	err := svc.MarkAsDelivered(context.Background(), uuid.New())
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSendNotification_FailureIsReturned(t *testing.T) {
	svc, store, exec, reminder := setup(t, nil)
	exec.results["telegram"] = models.AgentResult{Success: false, Error: "chat not found"}

	row, err := svc.SendNotification(context.Background(), reminder.UserID, reminder.ID, "telegram", "manual ping")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
	// The attempt is still logged, unlike the error-free tier fan-out.
	assert.Equal(t, models.NotificationFailed, row.Status)
	assert.Len(t, store.created, 1)
}

func TestSendNotification_Success(t *testing.T) {
	svc, _, _, reminder := setup(t, nil)

	row, err := svc.SendNotification(context.Background(), reminder.UserID, reminder.ID, "webhook", "manual ping")
	require.NoError(t, err)
	assert.Equal(t, models.NotificationDelivered, row.Status)
	assert.Equal(t, "manual ping", row.Metadata["message"])
}

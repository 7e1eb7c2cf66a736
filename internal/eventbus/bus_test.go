package eventbus

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_ReachesEverySubscriber(t *testing.T) {
	logger, _ := test.NewNullLogger()
	bus := New(logger)

	var wg sync.WaitGroup
	wg.Add(2)
	var mu sync.Mutex
	var got []Event
	for i := 0; i < 2; i++ {
		bus.Subscribe(EventReminderTriggered, func(e Event) {
			mu.Lock()
			got = append(got, e)
			mu.Unlock()
			wg.Done()
		})
	}

	event := NewEvent(EventReminderTriggered, "payload", "test")
	bus.Publish(event)
	wg.Wait()

	require.Len(t, got, 2)
	for _, e := range got {
		assert.Equal(t, event.Metadata.EventID, e.Metadata.EventID)
		assert.Equal(t, "payload", e.Payload)
	}
}

func TestPublish_OnlyMatchingType(t *testing.T) {
	logger, _ := test.NewNullLogger()
	bus := New(logger)

	done := make(chan struct{})
	bus.Subscribe("other.event", func(Event) { close(done) })

	bus.Publish(NewEvent(EventReminderTriggered, nil, "test"))

	select {
	case <-done:
		t.Fatal("subscriber for a different event type was invoked")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPublish_PanickingSubscriberIsIsolated(t *testing.T) {
	logger, hook := test.NewNullLogger()
	bus := New(logger)

	delivered := make(chan struct{})
	bus.Subscribe(EventReminderTriggered, func(Event) { panic("bad subscriber") })
	bus.Subscribe(EventReminderTriggered, func(Event) { close(delivered) })

	bus.Publish(NewEvent(EventReminderTriggered, nil, "test"))

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("healthy subscriber never received the event")
	}

	assert.Eventually(t, func() bool {
		for _, e := range hook.AllEntries() {
			if e.Level == logrus.ErrorLevel {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestPublish_NoSubscribersIsANoOp(t *testing.T) {
	logger, hook := test.NewNullLogger()
	bus := New(logger)

	assert.NotPanics(t, func() {
		bus.Publish(NewEvent(EventReminderTriggered, nil, "test"))
	})
	assert.Empty(t, hook.AllEntries())
}

func TestNewEvent_FreshMetadata(t *testing.T) {
	a := NewEvent(EventReminderTriggered, nil, "scheduler")
	b := NewEvent(EventReminderTriggered, nil, "scheduler")

	assert.NotEqual(t, a.Metadata.EventID, b.Metadata.EventID)
	assert.Equal(t, "scheduler", a.Metadata.Source)
	assert.WithinDuration(t, time.Now(), a.Metadata.Timestamp, time.Second)
}

// Package eventbus is an in-process, non-durable publish/subscribe channel
// for best-effort side notifications. Events with no subscriber are dropped;
// a subscriber failure never reaches the publisher.
package eventbus

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// EventReminderTriggered is published when a reminder passes revalidation and
// enters tier 1.
const EventReminderTriggered = "reminder.triggered"

// Metadata identifies one published event.
type Metadata struct {
	EventID   uuid.UUID `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// Event is the envelope delivered to subscribers.
type Event struct {
	Type     string   `json:"type"`
	Payload  any      `json:"payload"`
	Metadata Metadata `json:"metadata"`
}

// NewEvent builds an Event with fresh metadata.
func NewEvent(eventType string, payload any, source string) Event {
	return Event{
		Type:    eventType,
		Payload: payload,
		Metadata: Metadata{
			EventID:   uuid.New(),
			Timestamp: time.Now(),
			Source:    source,
		},
	}
}

// Subscriber receives events of a type it subscribed to.
type Subscriber func(Event)

// Bus dispatches events to subscribers keyed by event type. Subscriptions are
// made at startup before publishing begins.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Subscriber
	logger      *logrus.Logger
}

func New(logger *logrus.Logger) *Bus {
	return &Bus{
		subscribers: make(map[string][]Subscriber),
		logger:      logger,
	}
}

// Subscribe registers fn for the given event type.
func (b *Bus) Subscribe(eventType string, fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], fn)
}

// Publish dispatches concurrently to every subscriber of the event's type. A
// panicking subscriber is logged and never blocks or fails its siblings.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	subs := b.subscribers[event.Type]
	b.mu.RUnlock()

	for _, fn := range subs {
		go func(fn Subscriber) {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Errorf("Event subscriber for %s panicked: %v", event.Type, r)
				}
			}()
			fn(event)
		}(fn)
	}
}

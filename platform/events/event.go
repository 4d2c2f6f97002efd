// Package events carries the in-process publish/subscribe fabric the domain
// modules communicate over. Modules publish lifecycle facts and never learn
// who consumes them; the bus owns delivery.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every domain event, usually by embedding BaseEvent.
type Event interface {
	// EventName returns the stable dotted name the bus routes on.
	EventName() string
	// EventID returns the unique id assigned when the event was built.
	EventID() uuid.UUID
	// OccurredAt returns when the event was built.
	OccurredAt() time.Time
}

// BaseEvent supplies the identity and timing half of Event. The id ties log
// lines from asynchronous handlers back to the publish that caused them.
type BaseEvent struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) EventID() uuid.UUID { return e.ID }

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent stamps a fresh event with an id and the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{ID: uuid.New(), Timestamp: time.Now().UTC()}
}

// Handler consumes events. A handler subscribed to several event names
// switches on the concrete type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus routes published events to the handlers subscribed to their name.
type Bus interface {
	// Publish delivers the event to each subscribed handler in its own
	// goroutine. Handler failures are logged and never reach the publisher;
	// anything that must not be lost goes through the outbox instead.
	Publish(ctx context.Context, event Event)

	// PublishSync delivers the event inline and returns the first handler
	// error, so a failing handler can push the caller into a retry.
	PublishSync(ctx context.Context, event Event) error

	// Subscribe registers a handler for events whose EventName matches.
	Subscribe(eventName string, handler Handler)
}

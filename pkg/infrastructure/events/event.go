package events

import (
	"context"
	"time"
)

type Event interface {
	Type() string
	StreamID() string
	Data() interface{}
	Timestamp() time.Time
	Version() int
}

// Listener reacts to a published event. A returned error is reported
// back to the publisher.
type Listener interface {
	Handle(ctx context.Context, event Event) error
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(ctx context.Context, event Event) error

func (f ListenerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Publisher delivers events to listeners
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type BaseEvent struct {
	EventType    string
	Stream       string
	EventData    interface{}
	EventTime    time.Time
	EventVersion int
}

func (e BaseEvent) Type() string {
	return e.EventType
}

func (e BaseEvent) StreamID() string {
	return e.Stream
}

func (e BaseEvent) Data() interface{} {
	return e.EventData
}

func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

func (e BaseEvent) Version() int {
	return e.EventVersion
}

func NewEvent(eventType, streamID string, data interface{}) Event {
	return BaseEvent{
		EventType:    eventType,
		Stream:       streamID,
		EventData:    data,
		EventTime:    time.Now(),
		EventVersion: 1,
	}
}

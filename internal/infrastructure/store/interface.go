package store

import "context"

// EventStoreInterface defines the interface for event stores
type EventStoreInterface interface {
	Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error)
	GetEvents(aggregateID string) []Event
	GetAllEvents() []Event
}

// Publisher fans stored events out to other consumers (Kafka, live admin feed)
type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

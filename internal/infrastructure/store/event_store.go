package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a domain event
type Event struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	EventType     string          `json:"event_type"`
	Data          json.RawMessage `json:"data"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
}

// EventStore keeps events in memory and hands each one to its publishers
type EventStore struct {
	mu         sync.RWMutex
	events     map[string][]Event // aggregateID -> events
	publishers []Publisher
}

func NewEventStore(publishers ...Publisher) *EventStore {
	return &EventStore{
		events:     make(map[string][]Event),
		publishers: publishers,
	}
}

// Append stores an event and publishes it. The event stays stored when a
// publisher fails; the publish error is returned to the caller.
func (es *EventStore) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	es.mu.Lock()
	version := len(es.events[aggregateID]) + 1
	event := Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Timestamp:     time.Now(),
		Version:       version,
	}
	es.events[aggregateID] = append(es.events[aggregateID], event)
	es.mu.Unlock()

	if err := publish(ctx, es.publishers, aggregateID, event); err != nil {
		return &event, err
	}
	return &event, nil
}

// GetEvents returns all events for an aggregate
func (es *EventStore) GetEvents(aggregateID string) []Event {
	es.mu.RLock()
	defer es.mu.RUnlock()

	out := make([]Event, len(es.events[aggregateID]))
	copy(out, es.events[aggregateID])
	return out
}

// GetAllEvents returns all events
func (es *EventStore) GetAllEvents() []Event {
	es.mu.RLock()
	defer es.mu.RUnlock()

	var all []Event
	for _, events := range es.events {
		all = append(all, events...)
	}
	return all
}

// publish hands the event to every publisher even when an earlier one fails
func publish(ctx context.Context, publishers []Publisher, key string, event Event) error {
	var errs []error
	for _, p := range publishers {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, key, event); err != nil {
			errs = append(errs, fmt.Errorf("failed to publish %s: %w", event.EventType, err))
		}
	}
	return errors.Join(errs...)
}

// Package events defines the typed domain event contract shared by all
// bounded contexts. Producers publish concrete event structs; interested
// collaborators subscribe to event type names explicitly.
package events

import (
	"context"
	"time"
)

// DomainEvent represents a domain event interface
type DomainEvent interface {
	// GetAggregateID returns the ID of the aggregate that generated the event
	GetAggregateID() string

	// GetEventType returns the type/name of the event
	GetEventType() string

	// GetOccurredAt returns when the event occurred
	GetOccurredAt() time.Time

	// GetVersion returns the event version for schema evolution
	GetVersion() int
}

// BaseEvent provides common fields for all domain events
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	OccurredAt  time.Time `json:"occurred_at"`
	Version     int       `json:"version"`
}

// GetAggregateID returns the aggregate ID
func (e BaseEvent) GetAggregateID() string {
	return e.AggregateID
}

// GetEventType returns the event type
func (e BaseEvent) GetEventType() string {
	return e.EventType
}

// GetOccurredAt returns when the event occurred
func (e BaseEvent) GetOccurredAt() time.Time {
	return e.OccurredAt
}

// GetVersion returns the event version
func (e BaseEvent) GetVersion() int {
	return e.Version
}

// Publisher publishes domain events. Publishing failures must never fail the
// operation that produced the event; callers log and continue.
type Publisher interface {
	Publish(ctx context.Context, event DomainEvent) error
}

// HandlerFunc processes a single domain event.
type HandlerFunc func(ctx context.Context, event DomainEvent)

// NoopPublisher discards events. Useful in tests and tools that do not care
// about downstream subscribers.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(ctx context.Context, event DomainEvent) error {
	return nil
}

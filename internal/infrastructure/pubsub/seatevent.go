package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"seatpool/internal/domain/shared/events"
	"seatpool/internal/shared/goroutine"
	"seatpool/internal/shared/logger"
)

const seatEventChannel = "seatpool:events"

// seatEventEnvelope wraps a domain event for cross-instance delivery.
type seatEventEnvelope struct {
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	InstanceID  string          `json:"instance_id"`
	Payload     json.RawMessage `json:"payload"`
}

// RedisSeatEventBus publishes allocation domain events on Redis Pub/Sub so
// collaborating services (certificates, gamification, messaging) receive them
// across instances. It implements events.Publisher.
type RedisSeatEventBus struct {
	client     *redis.Client
	logger     logger.Interface
	instanceID string
}

// NewRedisSeatEventBus creates a new Redis-based seat event bus.
func NewRedisSeatEventBus(client *redis.Client, logger logger.Interface) *RedisSeatEventBus {
	return &RedisSeatEventBus{
		client:     client,
		logger:     logger,
		instanceID: uuid.NewString(),
	}
}

// Publish sends the event to the seat event channel. Failures are returned to
// the caller, who logs and continues; event delivery never gates seat
// bookkeeping.
func (b *RedisSeatEventBus) Publish(ctx context.Context, event events.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal domain event: %w", err)
	}

	envelope := seatEventEnvelope{
		EventType:   event.GetEventType(),
		AggregateID: event.GetAggregateID(),
		OccurredAt:  event.GetOccurredAt(),
		InstanceID:  b.instanceID,
		Payload:     payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	if err := b.client.Publish(ctx, seatEventChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish seat event: %w", err)
	}

	b.logger.Debugw("seat event published",
		"event_type", event.GetEventType(),
		"aggregate_id", event.GetAggregateID(),
	)
	return nil
}

// Subscribe consumes seat events from other instances and dispatches them to
// the handler. Blocks until the context is cancelled, reconnecting with
// exponential backoff on failure.
func (b *RedisSeatEventBus) Subscribe(ctx context.Context, handler func(eventType string, payload []byte)) error {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		err := b.consume(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		b.logger.Warnw("seat event subscription disconnected, reconnecting",
			"channel", seatEventChannel,
			"error", err,
			"backoff", backoff,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, maxBackoff)
	}
}

func (b *RedisSeatEventBus) consume(ctx context.Context, handler func(eventType string, payload []byte)) error {
	pubsub := b.client.Subscribe(ctx, seatEventChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to channel %s: %w", seatEventChannel, err)
	}

	b.logger.Infow("subscribed to seat event channel", "channel", seatEventChannel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-ch:
			if !ok {
				b.logger.Warnw("seat event channel closed", "channel", seatEventChannel)
				return nil
			}

			var envelope seatEventEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				b.logger.Warnw("failed to unmarshal seat event envelope",
					"payload", msg.Payload,
					"error", err,
				)
				continue
			}
			if envelope.InstanceID == b.instanceID {
				// Local subscribers already saw it via the in-process dispatcher.
				continue
			}

			goroutine.SafeGo(b.logger, "seat-event-handler", func() {
				handler(envelope.EventType, envelope.Payload)
			})
		}
	}
}

package allocation

import (
	"strconv"
	"time"

	"seatpool/internal/domain/shared/events"
)

// Domain event type names published on the event bus. Collaborators
// (certificates, gamification, messaging) subscribe to these explicitly
// instead of hooking a global dispatcher.
const (
	EventSeatConsumed     = "allocation.seat_consumed"
	EventSeatReleased     = "allocation.seat_released"
	EventCapacityAdjusted = "allocation.capacity_adjusted"
	EventPoolExpired      = "allocation.pool_expired"
)

// SeatConsumedEvent is published after a seat was successfully consumed.
type SeatConsumedEvent struct {
	events.BaseEvent
	PoolID    uint   `json:"pool_id"`
	PoolSID   string `json:"pool_sid"`
	OrgID     uint   `json:"org_id"`
	UserID    uint   `json:"user_id"`
	SeatsUsed int    `json:"seats_used"`
}

// NewSeatConsumedEvent creates a SeatConsumedEvent for the given pool and user.
func NewSeatConsumedEvent(pool *Pool, userID uint, seatsUsed int) SeatConsumedEvent {
	return SeatConsumedEvent{
		BaseEvent: newBaseEvent(pool.ID(), EventSeatConsumed),
		PoolID:    pool.ID(),
		PoolSID:   pool.SID(),
		OrgID:     pool.OrgID(),
		UserID:    userID,
		SeatsUsed: seatsUsed,
	}
}

// SeatReleasedEvent is published after a seat was released back to the pool.
type SeatReleasedEvent struct {
	events.BaseEvent
	PoolID    uint   `json:"pool_id"`
	PoolSID   string `json:"pool_sid"`
	OrgID     uint   `json:"org_id"`
	UserID    uint   `json:"user_id"`
	SeatsUsed int    `json:"seats_used"`
}

// NewSeatReleasedEvent creates a SeatReleasedEvent for the given pool and user.
func NewSeatReleasedEvent(pool *Pool, userID uint, seatsUsed int) SeatReleasedEvent {
	return SeatReleasedEvent{
		BaseEvent: newBaseEvent(pool.ID(), EventSeatReleased),
		PoolID:    pool.ID(),
		PoolSID:   pool.SID(),
		OrgID:     pool.OrgID(),
		UserID:    userID,
		SeatsUsed: seatsUsed,
	}
}

// CapacityAdjustedEvent is published after seatsTotal changed.
type CapacityAdjustedEvent struct {
	events.BaseEvent
	PoolID        uint   `json:"pool_id"`
	PoolSID       string `json:"pool_sid"`
	OrgID         uint   `json:"org_id"`
	OldSeatsTotal int    `json:"old_seats_total"`
	NewSeatsTotal int    `json:"new_seats_total"`
}

// NewCapacityAdjustedEvent creates a CapacityAdjustedEvent.
func NewCapacityAdjustedEvent(pool *Pool, oldTotal, newTotal int) CapacityAdjustedEvent {
	return CapacityAdjustedEvent{
		BaseEvent:     newBaseEvent(pool.ID(), EventCapacityAdjusted),
		PoolID:        pool.ID(),
		PoolSID:       pool.SID(),
		OrgID:         pool.OrgID(),
		OldSeatsTotal: oldTotal,
		NewSeatsTotal: newTotal,
	}
}

// PoolExpiredEvent is published when the expiration sweep marks a pool expired.
type PoolExpiredEvent struct {
	events.BaseEvent
	PoolID     uint   `json:"pool_id"`
	PoolSID    string `json:"pool_sid"`
	OrgID      uint   `json:"org_id"`
	SeatsTotal int    `json:"seats_total"`
	SeatsUsed  int    `json:"seats_used"`
}

// NewPoolExpiredEvent creates a PoolExpiredEvent capturing final counters.
func NewPoolExpiredEvent(pool *Pool) PoolExpiredEvent {
	return PoolExpiredEvent{
		BaseEvent:  newBaseEvent(pool.ID(), EventPoolExpired),
		PoolID:     pool.ID(),
		PoolSID:    pool.SID(),
		OrgID:      pool.OrgID(),
		SeatsTotal: pool.SeatsTotal(),
		SeatsUsed:  pool.SeatsUsed(),
	}
}

func newBaseEvent(poolID uint, eventType string) events.BaseEvent {
	return events.BaseEvent{
		AggregateID: strconv.FormatUint(uint64(poolID), 10),
		EventType:   eventType,
		OccurredAt:  time.Now().UTC(),
		Version:     1,
	}
}

package allocation

import (
	"fmt"
	"time"
)

// Meta is the typed payload carried by a ledger entry. One struct per event
// type; the persistence layer encodes it to JSON once at the boundary.
type Meta interface {
	EventType() EventType
}

// ConsumeMeta documents a seat consumption.
type ConsumeMeta struct {
	SeatsUsedAfter int `json:"seats_used_after"`
}

func (ConsumeMeta) EventType() EventType { return EventTypeConsume }

// ReleaseMeta documents a seat release.
type ReleaseMeta struct {
	SeatsUsedAfter int `json:"seats_used_after"`
}

func (ReleaseMeta) EventType() EventType { return EventTypeRelease }

// AdjustMeta captures before/after counters for capacity adjustments and
// resync drift corrections.
type AdjustMeta struct {
	OldSeatsTotal int `json:"old_seats_total"`
	NewSeatsTotal int `json:"new_seats_total"`
	OldSeatsUsed  int `json:"old_seats_used"`
	NewSeatsUsed  int `json:"new_seats_used"`
}

func (AdjustMeta) EventType() EventType { return EventTypeAdjust }

// ExpireMeta captures the final counters at the moment a pool expired.
type ExpireMeta struct {
	FinalSeatsTotal int `json:"final_seats_total"`
	FinalSeatsUsed  int `json:"final_seats_used"`
}

func (ExpireMeta) EventType() EventType { return EventTypeExpire }

// InviteMeta documents a seat invitation sent to a prospective member.
type InviteMeta struct {
	Recipient string `json:"recipient"`
}

func (InviteMeta) EventType() EventType { return EventTypeInvite }

// AssignMeta documents an explicit admin seat assignment.
type AssignMeta struct {
	ResourceCount  int `json:"resource_count"`
	SeatsUsedAfter int `json:"seats_used_after"`
}

func (AssignMeta) EventType() EventType { return EventTypeAssign }

// SeatEvent is one immutable ledger row. The ledger is append-only and is the
// sole source of truth for audit; it is never updated or deleted except as a
// cascade of an explicit administrative pool deletion.
type SeatEvent struct {
	id        uint
	poolID    uint
	userID    *uint // nil for pool-level events such as expire
	eventType EventType
	source    EventSource
	meta      Meta
	createdAt time.Time
}

// NewSeatEvent creates a ledger entry. The meta payload, when present, must
// match the event type.
func NewSeatEvent(poolID uint, userID *uint, eventType EventType, source EventSource, meta Meta) (*SeatEvent, error) {
	if poolID == 0 {
		return nil, fmt.Errorf("pool ID is required")
	}
	if !eventType.IsValid() {
		return nil, fmt.Errorf("invalid event type: %s", eventType)
	}
	if !source.IsValid() {
		return nil, fmt.Errorf("invalid event source: %s", source)
	}
	if userID != nil && *userID == 0 {
		return nil, fmt.Errorf("user ID cannot be zero when set")
	}
	if meta != nil && meta.EventType() != eventType {
		return nil, fmt.Errorf("meta payload %s does not match event type %s", meta.EventType(), eventType)
	}

	return &SeatEvent{
		poolID:    poolID,
		userID:    userID,
		eventType: eventType,
		source:    source,
		meta:      meta,
		createdAt: time.Now().UTC(),
	}, nil
}

// ReconstructSeatEvent rebuilds a ledger entry from persistence.
func ReconstructSeatEvent(
	eventID uint,
	poolID uint,
	userID *uint,
	eventType EventType,
	source EventSource,
	meta Meta,
	createdAt time.Time,
) (*SeatEvent, error) {
	if eventID == 0 {
		return nil, fmt.Errorf("event ID cannot be zero")
	}
	if poolID == 0 {
		return nil, fmt.Errorf("pool ID is required")
	}
	if !eventType.IsValid() {
		return nil, fmt.Errorf("invalid event type: %s", eventType)
	}
	if !source.IsValid() {
		return nil, fmt.Errorf("invalid event source: %s", source)
	}

	return &SeatEvent{
		id:        eventID,
		poolID:    poolID,
		userID:    userID,
		eventType: eventType,
		source:    source,
		meta:      meta,
		createdAt: createdAt,
	}, nil
}

func (e *SeatEvent) ID() uint             { return e.id }
func (e *SeatEvent) PoolID() uint         { return e.poolID }
func (e *SeatEvent) UserID() *uint        { return e.userID }
func (e *SeatEvent) Type() EventType      { return e.eventType }
func (e *SeatEvent) Source() EventSource  { return e.source }
func (e *SeatEvent) Meta() Meta           { return e.meta }
func (e *SeatEvent) CreatedAt() time.Time { return e.createdAt }

// SetID sets the event ID (only for persistence layer use)
func (e *SeatEvent) SetID(eventID uint) error {
	if e.id != 0 {
		return fmt.Errorf("event ID is already set")
	}
	if eventID == 0 {
		return fmt.Errorf("event ID cannot be zero")
	}
	e.id = eventID
	return nil
}

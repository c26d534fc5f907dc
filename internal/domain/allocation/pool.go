package allocation

import (
	"fmt"
	"time"

	"seatpool/internal/shared/id"
)

// Pool is the seat pool aggregate root. It records purchased capacity
// (seatsTotal), current consumption (seatsUsed) and the catalog scope the
// seats grant access to.
//
// Capacity invariant: 0 <= seatsUsed <= seatsTotal at all times. The counters
// are only ever mutated through the allocation engine's conditional repository
// operations; direct writes are not part of the model.
type Pool struct {
	id           uint
	sid          string
	orgID        uint
	teamID       *uint // nil = organization-wide
	scopeType    ScopeType
	scopeIDs     []uint
	seatsTotal   int
	seatsUsed    int
	expiresAt    *time.Time // nil = never expires
	autoEnroll   bool
	allowReplace bool
	orderRef     string // audit reference to the purchase order, if any
	status       PoolStatus
	createdAt    time.Time
	updatedAt    time.Time
	version      int
}

// NewPool creates a new seat pool with zero seats used.
func NewPool(
	orgID uint,
	teamID *uint,
	scopeType ScopeType,
	scopeIDs []uint,
	seatsTotal int,
	expiresAt *time.Time,
	autoEnroll bool,
	allowReplace bool,
	orderRef string,
) (*Pool, error) {
	if orgID == 0 {
		return nil, fmt.Errorf("organization ID is required")
	}
	if !scopeType.IsValid() {
		return nil, fmt.Errorf("invalid scope type: %s", scopeType)
	}
	if len(scopeIDs) == 0 {
		return nil, fmt.Errorf("at least one scope ID is required")
	}
	if seatsTotal < 0 {
		return nil, fmt.Errorf("seats total cannot be negative")
	}
	if teamID != nil && *teamID == 0 {
		return nil, fmt.Errorf("team ID cannot be zero when set")
	}

	sid, err := id.NewPoolSID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate pool SID: %w", err)
	}

	now := time.Now().UTC()
	return &Pool{
		sid:          sid,
		orgID:        orgID,
		teamID:       teamID,
		scopeType:    scopeType,
		scopeIDs:     append([]uint(nil), scopeIDs...),
		seatsTotal:   seatsTotal,
		seatsUsed:    0,
		expiresAt:    expiresAt,
		autoEnroll:   autoEnroll,
		allowReplace: allowReplace,
		orderRef:     orderRef,
		status:       PoolStatusActive,
		createdAt:    now,
		updatedAt:    now,
		version:      1,
	}, nil
}

// PoolReconstructParams carries persisted state back into the aggregate.
type PoolReconstructParams struct {
	ID           uint
	SID          string
	OrgID        uint
	TeamID       *uint
	ScopeType    ScopeType
	ScopeIDs     []uint
	SeatsTotal   int
	SeatsUsed    int
	ExpiresAt    *time.Time
	AutoEnroll   bool
	AllowReplace bool
	OrderRef     string
	Status       PoolStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int
}

// ReconstructPool rebuilds a pool from persistence.
func ReconstructPool(p PoolReconstructParams) (*Pool, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("pool ID cannot be zero")
	}
	if p.OrgID == 0 {
		return nil, fmt.Errorf("organization ID is required")
	}
	if !p.ScopeType.IsValid() {
		return nil, fmt.Errorf("invalid scope type: %s", p.ScopeType)
	}
	if !p.Status.IsValid() {
		return nil, fmt.Errorf("invalid pool status: %s", p.Status)
	}
	if p.SeatsTotal < 0 || p.SeatsUsed < 0 || p.SeatsUsed > p.SeatsTotal {
		return nil, fmt.Errorf("seat counters violate capacity invariant: used=%d total=%d",
			p.SeatsUsed, p.SeatsTotal)
	}

	return &Pool{
		id:           p.ID,
		sid:          p.SID,
		orgID:        p.OrgID,
		teamID:       p.TeamID,
		scopeType:    p.ScopeType,
		scopeIDs:     append([]uint(nil), p.ScopeIDs...),
		seatsTotal:   p.SeatsTotal,
		seatsUsed:    p.SeatsUsed,
		expiresAt:    p.ExpiresAt,
		autoEnroll:   p.AutoEnroll,
		allowReplace: p.AllowReplace,
		orderRef:     p.OrderRef,
		status:       p.Status,
		createdAt:    p.CreatedAt,
		updatedAt:    p.UpdatedAt,
		version:      p.Version,
	}, nil
}

func (p *Pool) ID() uint              { return p.id }
func (p *Pool) SID() string           { return p.sid }
func (p *Pool) OrgID() uint           { return p.orgID }
func (p *Pool) TeamID() *uint         { return p.teamID }
func (p *Pool) ScopeType() ScopeType  { return p.scopeType }
func (p *Pool) SeatsTotal() int       { return p.seatsTotal }
func (p *Pool) SeatsUsed() int        { return p.seatsUsed }
func (p *Pool) ExpiresAt() *time.Time { return p.expiresAt }
func (p *Pool) AutoEnroll() bool      { return p.autoEnroll }
func (p *Pool) AllowReplace() bool    { return p.allowReplace }
func (p *Pool) OrderRef() string      { return p.orderRef }
func (p *Pool) Status() PoolStatus    { return p.status }
func (p *Pool) CreatedAt() time.Time  { return p.createdAt }
func (p *Pool) UpdatedAt() time.Time  { return p.updatedAt }
func (p *Pool) Version() int          { return p.version }

// ScopeIDs returns a copy of the ordered scope identifiers.
func (p *Pool) ScopeIDs() []uint {
	return append([]uint(nil), p.scopeIDs...)
}

// SetID sets the pool ID (only for persistence layer use)
func (p *Pool) SetID(poolID uint) error {
	if p.id != 0 {
		return fmt.Errorf("pool ID is already set")
	}
	if poolID == 0 {
		return fmt.Errorf("pool ID cannot be zero")
	}
	p.id = poolID
	return nil
}

// SeatsFree returns the number of unconsumed seats.
func (p *Pool) SeatsFree() int {
	free := p.seatsTotal - p.seatsUsed
	if free < 0 {
		return 0
	}
	return free
}

// IsExpired reports whether the pool's expiry timestamp has passed.
// A nil expiry never expires.
func (p *Pool) IsExpired(now time.Time) bool {
	if p.expiresAt == nil {
		return false
	}
	return now.After(*p.expiresAt)
}

// CanConsume reports whether a new seat consumption is allowed right now.
func (p *Pool) CanConsume(now time.Time) bool {
	if p.status != PoolStatusActive {
		return false
	}
	if p.IsExpired(now) {
		return false
	}
	return p.seatsUsed < p.seatsTotal
}

// AdjustCapacity changes seatsTotal. Shrinking below the current consumption
// is rejected with ErrInvalidCapacity.
func (p *Pool) AdjustCapacity(newSeatsTotal int) error {
	if newSeatsTotal < 0 {
		return ErrInvalidCapacity
	}
	if newSeatsTotal < p.seatsUsed {
		return ErrInvalidCapacity
	}
	p.seatsTotal = newSeatsTotal
	p.touch()
	return nil
}

// MarkExpired transitions the pool to expired. Expiry stops new consumption;
// it does not claw back access already granted. Idempotent.
func (p *Pool) MarkExpired() {
	if p.status == PoolStatusExpired {
		return
	}
	p.status = PoolStatusExpired
	p.touch()
}

// InWarningWindow reports whether now falls inside the given lead-time window
// before expiry. Pools without an expiry or already expired never warn.
func (p *Pool) InWarningWindow(now time.Time, lead WarningLead) bool {
	if p.expiresAt == nil || p.status != PoolStatusActive {
		return false
	}
	windowStart := p.expiresAt.Add(-lead.Duration())
	return !now.Before(windowStart) && now.Before(*p.expiresAt)
}

func (p *Pool) touch() {
	p.updatedAt = time.Now().UTC()
	p.version++
}

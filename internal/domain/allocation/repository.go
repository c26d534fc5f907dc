package allocation

import (
	"context"
	"time"
)

// PoolRepository defines persistence operations for seat pools.
//
// The conditional operations (ConsumeSeat, ReleaseSeat, OverrideSeatsUsed,
// MarkExpired) are the single-writer discipline for capacity mutations: each
// is one atomic conditional UPDATE whose affected-row count tells the caller
// whether the transition happened. They are safe under concurrent engine
// instances; no in-process lock is assumed.
type PoolRepository interface {
	// Create persists a new pool
	Create(ctx context.Context, pool *Pool) error

	// Update persists scope/policy changes on an existing pool
	Update(ctx context.Context, pool *Pool) error

	// Delete hard-deletes a pool. Admin path only; ledger cascade is handled
	// by the use case via EventRepository.DeleteByPool.
	Delete(ctx context.Context, poolID uint) error

	// GetByID retrieves a pool by ID
	GetByID(ctx context.Context, poolID uint) (*Pool, error)

	// GetBySID retrieves a pool by its short ID
	GetBySID(ctx context.Context, sid string) (*Pool, error)

	// ListByOrg retrieves all pools of an organization, oldest first
	ListByOrg(ctx context.Context, orgID uint) ([]*Pool, error)

	// ListActiveByOrg retrieves the organization's active pools, oldest first
	ListActiveByOrg(ctx context.Context, orgID uint) ([]*Pool, error)

	// ListOrgIDsWithActivePools returns the IDs of organizations that own at
	// least one active pool, ascending. Drives the reconciliation loop.
	ListOrgIDsWithActivePools(ctx context.Context) ([]uint, error)

	// ListDueForExpiry returns active pools whose expiry has passed
	ListDueForExpiry(ctx context.Context, now time.Time) ([]*Pool, error)

	// ListExpiringWithin returns active pools expiring in (now, until]
	ListExpiringWithin(ctx context.Context, now, until time.Time) ([]*Pool, error)

	// ConsumeSeat atomically increments seats_used while the pool is active
	// and below capacity. Returns false when no seat was available.
	ConsumeSeat(ctx context.Context, poolID uint) (bool, error)

	// ReleaseSeat atomically decrements seats_used with a floor of zero.
	// Returns false when seats_used was already zero.
	ReleaseSeat(ctx context.Context, poolID uint) (bool, error)

	// AdjustSeatsTotal sets seats_total to newTotal only while seats_used
	// still fits under it, so a concurrent consume can never be stranded
	// above capacity. Returns false when the guard failed.
	AdjustSeatsTotal(ctx context.Context, poolID uint, newTotal int) (bool, error)

	// OverrideSeatsUsed sets seats_used to observed only if it still equals
	// expected, so a drift correction never clobbers a concurrent legitimate
	// consumption. Returns false when the guard failed.
	OverrideSeatsUsed(ctx context.Context, poolID uint, expected, observed int) (bool, error)

	// MarkExpired atomically transitions an active pool to expired.
	// Returns false when the pool was already expired.
	MarkExpired(ctx context.Context, poolID uint) (bool, error)
}

// EventRepository defines append/read operations on the seat ledger. There is
// deliberately no update operation; DeleteByPool exists solely as the cascade
// of an explicit administrative pool deletion.
type EventRepository interface {
	// Append writes one ledger entry. It succeeds or fails outright.
	Append(ctx context.Context, event *SeatEvent) error

	// QueryByPool returns a pool's entries, newest first
	QueryByPool(ctx context.Context, poolID uint, limit int) ([]*SeatEvent, error)

	// QueryByType returns a pool's entries of one type, newest first
	QueryByType(ctx context.Context, poolID uint, eventType EventType, limit int) ([]*SeatEvent, error)

	// QueryRecent returns the most recent entries across an organization's pools
	QueryRecent(ctx context.Context, orgID uint, limit int) ([]*SeatEvent, error)

	// HasActiveConsumption reports whether the user currently occupies a seat
	// in the pool according to the ledger (consume entries minus release
	// entries). Backs the per-user consume idempotence rule.
	HasActiveConsumption(ctx context.Context, poolID, userID uint) (bool, error)

	// DeleteByPool removes all entries of a pool. Cascade of the
	// administrative pool deletion only; never called by engine logic.
	DeleteByPool(ctx context.Context, poolID uint) error
}

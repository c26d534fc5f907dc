package allocation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func newValidPool(t *testing.T) *Pool {
	t.Helper()
	pool, err := NewPool(1, nil, ScopeTypeItem, []uint{10, 11}, 5, nil, false, true, "")
	require.NoError(t, err)
	require.NotNil(t, pool)
	return pool
}

func reconstructPool(t *testing.T, used, total int, status PoolStatus, expiresAt *time.Time) *Pool {
	t.Helper()
	now := time.Now().UTC()
	pool, err := ReconstructPool(PoolReconstructParams{
		ID:           1,
		SID:          "sp_test12345678",
		OrgID:        1,
		ScopeType:    ScopeTypeCategory,
		ScopeIDs:     []uint{7},
		SeatsTotal:   total,
		SeatsUsed:    used,
		ExpiresAt:    expiresAt,
		AutoEnroll:   true,
		AllowReplace: true,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	})
	require.NoError(t, err)
	return pool
}

func timePtr(t time.Time) *time.Time { return &t }

func TestNewPool_ValidInput(t *testing.T) {
	teamID := uint(3)
	expires := time.Now().UTC().AddDate(0, 6, 0)

	pool, err := NewPool(1, &teamID, ScopeTypeBundle, []uint{42}, 20, &expires, true, false, "po-1009")

	require.NoError(t, err)
	require.NotNil(t, pool)

	assert.NotEmpty(t, pool.SID(), "SID should be generated")
	assert.Equal(t, uint(1), pool.OrgID())
	require.NotNil(t, pool.TeamID())
	assert.Equal(t, uint(3), *pool.TeamID())
	assert.Equal(t, ScopeTypeBundle, pool.ScopeType())
	assert.Equal(t, []uint{42}, pool.ScopeIDs())
	assert.Equal(t, 20, pool.SeatsTotal())
	assert.Equal(t, 0, pool.SeatsUsed(), "new pools start with zero seats used")
	assert.True(t, pool.AutoEnroll())
	assert.False(t, pool.AllowReplace())
	assert.Equal(t, "po-1009", pool.OrderRef())
	assert.Equal(t, PoolStatusActive, pool.Status())
	assert.Equal(t, 1, pool.Version())
}

func TestNewPool_ValidationErrors(t *testing.T) {
	zero := uint(0)
	tests := []struct {
		name       string
		orgID      uint
		teamID     *uint
		scopeType  ScopeType
		scopeIDs   []uint
		seatsTotal int
	}{
		{"missing org", 0, nil, ScopeTypeItem, []uint{1}, 5},
		{"invalid scope type", 1, nil, ScopeType("course"), []uint{1}, 5},
		{"empty scope ids", 1, nil, ScopeTypeItem, nil, 5},
		{"negative seats", 1, nil, ScopeTypeItem, []uint{1}, -1},
		{"zero team id", 1, &zero, ScopeTypeItem, []uint{1}, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool, err := NewPool(tt.orgID, tt.teamID, tt.scopeType, tt.scopeIDs, tt.seatsTotal, nil, false, true, "")
			assert.Error(t, err)
			assert.Nil(t, pool)
		})
	}
}

func TestReconstructPool_RejectsInvariantViolation(t *testing.T) {
	now := time.Now().UTC()
	_, err := ReconstructPool(PoolReconstructParams{
		ID:         1,
		SID:        "sp_x",
		OrgID:      1,
		ScopeType:  ScopeTypeItem,
		ScopeIDs:   []uint{1},
		SeatsTotal: 2,
		SeatsUsed:  3,
		Status:     PoolStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
		Version:    1,
	})
	assert.Error(t, err)
}

func TestPool_AdjustCapacity(t *testing.T) {
	pool := reconstructPool(t, 3, 5, PoolStatusActive, nil)

	require.NoError(t, pool.AdjustCapacity(10))
	assert.Equal(t, 10, pool.SeatsTotal())
	assert.Equal(t, 2, pool.Version(), "adjustment bumps the version")

	// Shrinking to exactly the current consumption is allowed.
	require.NoError(t, pool.AdjustCapacity(3))
	assert.Equal(t, 3, pool.SeatsTotal())

	// Shrinking below consumption is not.
	err := pool.AdjustCapacity(2)
	assert.ErrorIs(t, err, ErrInvalidCapacity)
	assert.Equal(t, 3, pool.SeatsTotal(), "failed adjustment leaves capacity untouched")

	assert.ErrorIs(t, pool.AdjustCapacity(-1), ErrInvalidCapacity)
}

func TestPool_CanConsume(t *testing.T) {
	now := time.Now().UTC()

	full := reconstructPool(t, 5, 5, PoolStatusActive, nil)
	assert.False(t, full.CanConsume(now))

	spare := reconstructPool(t, 4, 5, PoolStatusActive, nil)
	assert.True(t, spare.CanConsume(now))

	expiredStatus := reconstructPool(t, 0, 5, PoolStatusExpired, nil)
	assert.False(t, expiredStatus.CanConsume(now))

	pastExpiry := reconstructPool(t, 0, 5, PoolStatusActive, timePtr(now.Add(-time.Hour)))
	assert.False(t, pastExpiry.CanConsume(now), "passed expiry blocks consumption even before the sweep runs")

	zeroCapacity := reconstructPool(t, 0, 0, PoolStatusActive, nil)
	assert.False(t, zeroCapacity.CanConsume(now))
}

func TestPool_MarkExpired_Idempotent(t *testing.T) {
	pool := reconstructPool(t, 2, 5, PoolStatusActive, nil)

	pool.MarkExpired()
	assert.Equal(t, PoolStatusExpired, pool.Status())
	version := pool.Version()

	pool.MarkExpired()
	assert.Equal(t, PoolStatusExpired, pool.Status())
	assert.Equal(t, version, pool.Version(), "second expire is a no-op")

	assert.Equal(t, 2, pool.SeatsUsed(), "expiry does not release seats")
}

func TestPool_InWarningWindow(t *testing.T) {
	now := time.Now().UTC()
	lead := WarningLead(7 * 24 * time.Hour)

	tests := []struct {
		name      string
		expiresAt *time.Time
		status    PoolStatus
		want      bool
	}{
		{"no expiry", nil, PoolStatusActive, false},
		{"outside window", timePtr(now.AddDate(0, 1, 0)), PoolStatusActive, false},
		{"inside window", timePtr(now.Add(3 * 24 * time.Hour)), PoolStatusActive, true},
		{"window boundary", timePtr(now.Add(lead.Duration())), PoolStatusActive, true},
		{"already past expiry", timePtr(now.Add(-time.Hour)), PoolStatusActive, false},
		{"already expired status", timePtr(now.Add(24 * time.Hour)), PoolStatusExpired, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := reconstructPool(t, 0, 5, tt.status, tt.expiresAt)
			assert.Equal(t, tt.want, pool.InWarningWindow(now, lead))
		})
	}
}

func TestPool_SeatsFree(t *testing.T) {
	pool := reconstructPool(t, 3, 5, PoolStatusActive, nil)
	assert.Equal(t, 2, pool.SeatsFree())

	full := reconstructPool(t, 5, 5, PoolStatusActive, nil)
	assert.Equal(t, 0, full.SeatsFree())
}

func TestWarningLead_Bucket(t *testing.T) {
	assert.Equal(t, "15d", WarningLead(15*24*time.Hour).Bucket())
	assert.Equal(t, "7d", WarningLead(7*24*time.Hour).Bucket())
	assert.Equal(t, "1d", WarningLead(24*time.Hour).Bucket())
}

func TestPool_ScopeIDs_ReturnsCopy(t *testing.T) {
	pool := newValidPool(t)
	ids := pool.ScopeIDs()
	ids[0] = 999
	assert.Equal(t, []uint{10, 11}, pool.ScopeIDs())
}

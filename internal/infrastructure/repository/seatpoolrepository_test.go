package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"seatpool/internal/domain/allocation"
	"seatpool/internal/infrastructure/persistence/models"
	"seatpool/internal/shared/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// A pooled second connection to :memory: would open a different database,
	// and concurrent writers would hit SQLITE_BUSY.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.SeatPoolModel{}, &models.SeatEventModel{})
	require.NoError(t, err)

	return db
}

func createTestPool(t *testing.T, orgID uint, seatsTotal int) *allocation.Pool {
	pool, err := allocation.NewPool(orgID, nil, allocation.ScopeTypeItem, []uint{101, 102},
		seatsTotal, nil, false, true, "order-123")
	require.NoError(t, err)
	return pool
}

func TestSeatPoolRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSeatPoolRepository(db, logger.NewLogger())
	ctx := context.Background()

	t.Run("create assigns ID", func(t *testing.T) {
		pool := createTestPool(t, 1, 5)
		err := repo.Create(ctx, pool)
		require.NoError(t, err)
		assert.NotZero(t, pool.ID())
	})

	t.Run("get by ID round-trips scope and counters", func(t *testing.T) {
		pool := createTestPool(t, 2, 10)
		require.NoError(t, repo.Create(ctx, pool))

		found, err := repo.GetByID(ctx, pool.ID())
		require.NoError(t, err)
		assert.Equal(t, pool.SID(), found.SID())
		assert.Equal(t, uint(2), found.OrgID())
		assert.Equal(t, allocation.ScopeTypeItem, found.ScopeType())
		assert.Equal(t, []uint{101, 102}, found.ScopeIDs())
		assert.Equal(t, 10, found.SeatsTotal())
		assert.Equal(t, 0, found.SeatsUsed())
		assert.True(t, found.AllowReplace())
	})

	t.Run("get by SID", func(t *testing.T) {
		pool := createTestPool(t, 3, 5)
		require.NoError(t, repo.Create(ctx, pool))

		found, err := repo.GetBySID(ctx, pool.SID())
		require.NoError(t, err)
		assert.Equal(t, pool.ID(), found.ID())
	})

	t.Run("missing pool returns ErrPoolNotFound", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 99999)
		assert.ErrorIs(t, err, allocation.ErrPoolNotFound)

		_, err = repo.GetBySID(ctx, "sp_doesnotexist")
		assert.ErrorIs(t, err, allocation.ErrPoolNotFound)
	})
}

func TestSeatPoolRepository_Update(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSeatPoolRepository(db, logger.NewLogger())
	ctx := context.Background()

	pool := createTestPool(t, 1, 5)
	require.NoError(t, repo.Create(ctx, pool))

	t.Run("update never touches seats_used or seats_total", func(t *testing.T) {
		ok, err := repo.ConsumeSeat(ctx, pool.ID())
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = repo.AdjustSeatsTotal(ctx, pool.ID(), 8)
		require.NoError(t, err)
		require.True(t, ok)

		// Domain object still carries the stale counters.
		require.NoError(t, repo.Update(ctx, pool))

		found, err := repo.GetByID(ctx, pool.ID())
		require.NoError(t, err)
		assert.Equal(t, 1, found.SeatsUsed())
		assert.Equal(t, 8, found.SeatsTotal())
	})
}

func TestSeatPoolRepository_AdjustSeatsTotal(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSeatPoolRepository(db, logger.NewLogger())
	ctx := context.Background()

	pool := createTestPool(t, 1, 5)
	require.NoError(t, repo.Create(ctx, pool))

	for i := 0; i < 3; i++ {
		ok, err := repo.ConsumeSeat(ctx, pool.ID())
		require.NoError(t, err)
		require.True(t, ok)
	}

	t.Run("grows capacity", func(t *testing.T) {
		ok, err := repo.AdjustSeatsTotal(ctx, pool.ID(), 8)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("shrink below current consumption is refused", func(t *testing.T) {
		ok, err := repo.AdjustSeatsTotal(ctx, pool.ID(), 2)
		require.NoError(t, err)
		assert.False(t, ok)

		// The guard kept the row inside the invariant; it must still load.
		found, err := repo.GetByID(ctx, pool.ID())
		require.NoError(t, err)
		assert.Equal(t, 8, found.SeatsTotal())
		assert.Equal(t, 3, found.SeatsUsed())
	})

	t.Run("shrink to exactly current consumption succeeds", func(t *testing.T) {
		ok, err := repo.AdjustSeatsTotal(ctx, pool.ID(), 3)
		require.NoError(t, err)
		assert.True(t, ok)

		found, err := repo.GetByID(ctx, pool.ID())
		require.NoError(t, err)
		assert.Equal(t, 3, found.SeatsTotal())
		assert.Equal(t, 0, found.SeatsFree())
	})
}

func TestSeatPoolRepository_ConsumeSeat(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSeatPoolRepository(db, logger.NewLogger())
	ctx := context.Background()

	t.Run("consumes until capacity then refuses", func(t *testing.T) {
		pool := createTestPool(t, 1, 2)
		require.NoError(t, repo.Create(ctx, pool))

		for i := 0; i < 2; i++ {
			ok, err := repo.ConsumeSeat(ctx, pool.ID())
			require.NoError(t, err)
			assert.True(t, ok)
		}

		ok, err := repo.ConsumeSeat(ctx, pool.ID())
		require.NoError(t, err)
		assert.False(t, ok)

		found, err := repo.GetByID(ctx, pool.ID())
		require.NoError(t, err)
		assert.Equal(t, 2, found.SeatsUsed())
	})

	t.Run("refuses on expired pool", func(t *testing.T) {
		pool := createTestPool(t, 2, 5)
		require.NoError(t, repo.Create(ctx, pool))

		ok, err := repo.MarkExpired(ctx, pool.ID())
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = repo.ConsumeSeat(ctx, pool.ID())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("concurrent consumers never oversell", func(t *testing.T) {
		pool := createTestPool(t, 3, 5)
		require.NoError(t, repo.Create(ctx, pool))

		var wg sync.WaitGroup
		var mu sync.Mutex
		wins := 0
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := repo.ConsumeSeat(ctx, pool.ID())
				if err == nil && ok {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 5, wins)

		found, err := repo.GetByID(ctx, pool.ID())
		require.NoError(t, err)
		assert.Equal(t, 5, found.SeatsUsed())
	})
}

func TestSeatPoolRepository_ReleaseSeat(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSeatPoolRepository(db, logger.NewLogger())
	ctx := context.Background()

	pool := createTestPool(t, 1, 3)
	require.NoError(t, repo.Create(ctx, pool))

	ok, err := repo.ReleaseSeat(ctx, pool.ID())
	require.NoError(t, err)
	assert.False(t, ok, "release on empty pool must refuse, not underflow")

	ok, err = repo.ConsumeSeat(ctx, pool.ID())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.ReleaseSeat(ctx, pool.ID())
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := repo.GetByID(ctx, pool.ID())
	require.NoError(t, err)
	assert.Equal(t, 0, found.SeatsUsed())
}

func TestSeatPoolRepository_OverrideSeatsUsed(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSeatPoolRepository(db, logger.NewLogger())
	ctx := context.Background()

	pool := createTestPool(t, 1, 5)
	require.NoError(t, repo.Create(ctx, pool))

	t.Run("succeeds when expected matches", func(t *testing.T) {
		ok, err := repo.OverrideSeatsUsed(ctx, pool.ID(), 0, 3)
		require.NoError(t, err)
		assert.True(t, ok)

		found, err := repo.GetByID(ctx, pool.ID())
		require.NoError(t, err)
		assert.Equal(t, 3, found.SeatsUsed())
	})

	t.Run("refuses when counter moved", func(t *testing.T) {
		ok, err := repo.OverrideSeatsUsed(ctx, pool.ID(), 0, 2)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("refuses when observed exceeds capacity", func(t *testing.T) {
		ok, err := repo.OverrideSeatsUsed(ctx, pool.ID(), 3, 9)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestSeatPoolRepository_MarkExpired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSeatPoolRepository(db, logger.NewLogger())
	ctx := context.Background()

	pool := createTestPool(t, 1, 5)
	require.NoError(t, repo.Create(ctx, pool))

	ok, err := repo.MarkExpired(ctx, pool.ID())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkExpired(ctx, pool.ID())
	require.NoError(t, err)
	assert.False(t, ok, "second transition must be refused")

	found, err := repo.GetByID(ctx, pool.ID())
	require.NoError(t, err)
	assert.Equal(t, allocation.PoolStatusExpired, found.Status())
}

func TestSeatPoolRepository_Lists(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSeatPoolRepository(db, logger.NewLogger())
	ctx := context.Background()

	soon := time.Now().UTC().Add(2 * 24 * time.Hour)
	past := time.Now().UTC().Add(-time.Hour)

	mkPool := func(orgID uint, expiresAt *time.Time) *allocation.Pool {
		pool, err := allocation.NewPool(orgID, nil, allocation.ScopeTypeItem, []uint{1},
			5, expiresAt, false, true, "")
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, pool))
		return pool
	}

	eternal := mkPool(1, nil)
	expiring := mkPool(1, &soon)
	overdue := mkPool(2, &past)
	expired := mkPool(3, nil)
	ok, err := repo.MarkExpired(ctx, expired.ID())
	require.NoError(t, err)
	require.True(t, ok)

	t.Run("list by org oldest first", func(t *testing.T) {
		pools, err := repo.ListByOrg(ctx, 1)
		require.NoError(t, err)
		require.Len(t, pools, 2)
		assert.Equal(t, eternal.ID(), pools[0].ID())
		assert.Equal(t, expiring.ID(), pools[1].ID())
	})

	t.Run("active orgs excludes fully expired org", func(t *testing.T) {
		orgIDs, err := repo.ListOrgIDsWithActivePools(ctx)
		require.NoError(t, err)
		assert.Equal(t, []uint{1, 2}, orgIDs)
	})

	t.Run("due for expiry picks only overdue active pools", func(t *testing.T) {
		pools, err := repo.ListDueForExpiry(ctx, time.Now().UTC())
		require.NoError(t, err)
		require.Len(t, pools, 1)
		assert.Equal(t, overdue.ID(), pools[0].ID())
	})

	t.Run("expiring within window", func(t *testing.T) {
		now := time.Now().UTC()
		pools, err := repo.ListExpiringWithin(ctx, now, now.Add(7*24*time.Hour))
		require.NoError(t, err)
		require.Len(t, pools, 1)
		assert.Equal(t, expiring.ID(), pools[0].ID())
	})
}

func TestSeatPoolRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSeatPoolRepository(db, logger.NewLogger())
	ctx := context.Background()

	pool := createTestPool(t, 1, 5)
	require.NoError(t, repo.Create(ctx, pool))

	require.NoError(t, repo.Delete(ctx, pool.ID()))

	_, err := repo.GetByID(ctx, pool.ID())
	assert.ErrorIs(t, err, allocation.ErrPoolNotFound)

	err = repo.Delete(ctx, pool.ID())
	assert.ErrorIs(t, err, allocation.ErrPoolNotFound)
}

package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatpool/internal/domain/allocation"
)

func newAdjustFixture() (*AdjustCapacityUseCase, *fakePoolRepo, *fakeEventRepo, *capturePublisher) {
	poolRepo := newFakePoolRepo()
	eventRepo := newFakeEventRepo()
	pub := &capturePublisher{}
	uc := NewAdjustCapacityUseCase(poolRepo, eventRepo, pub, testLogger())
	return uc, poolRepo, eventRepo, pub
}

func TestAdjustCapacity_Grow(t *testing.T) {
	uc, poolRepo, eventRepo, pub := newAdjustFixture()
	poolID := seedPool(poolRepo, 1, 5)

	res, err := uc.Execute(context.Background(), poolID, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, res.SeatsTotal)
	assert.Equal(t, 1, eventRepo.countByType(poolID, allocation.EventTypeAdjust))
	assert.Len(t, pub.published, 1)
}

func TestAdjustCapacity_ShrinkToUsed(t *testing.T) {
	uc, poolRepo, _, _ := newAdjustFixture()
	poolID := seedPool(poolRepo, 1, 5)
	forceSeatsUsed(t, poolRepo, poolID, 3)

	res, err := uc.Execute(context.Background(), poolID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, res.SeatsTotal)
	assert.Equal(t, 0, res.SeatsFree)
}

func TestAdjustCapacity_ShrinkBelowUsedRejected(t *testing.T) {
	uc, poolRepo, eventRepo, _ := newAdjustFixture()
	poolID := seedPool(poolRepo, 1, 5)
	forceSeatsUsed(t, poolRepo, poolID, 3)

	_, err := uc.Execute(context.Background(), poolID, 2)
	assert.ErrorIs(t, err, allocation.ErrInvalidCapacity)
	assert.Equal(t, 0, eventRepo.countByType(poolID, allocation.EventTypeAdjust))

	pool, err := poolRepo.GetByID(context.Background(), poolID)
	require.NoError(t, err)
	assert.Equal(t, 5, pool.SeatsTotal())
}

// racingPoolRepo lands a competing consume between the aggregate read and the
// capacity write, the window a stale shrink could slip through.
type racingPoolRepo struct {
	*fakePoolRepo
}

func (r *racingPoolRepo) AdjustSeatsTotal(ctx context.Context, poolID uint, newTotal int) (bool, error) {
	if _, err := r.fakePoolRepo.ConsumeSeat(ctx, poolID); err != nil {
		return false, err
	}
	return r.fakePoolRepo.AdjustSeatsTotal(ctx, poolID, newTotal)
}

func TestAdjustCapacity_ShrinkRacedByConsumeRejected(t *testing.T) {
	poolRepo := newFakePoolRepo()
	eventRepo := newFakeEventRepo()
	uc := NewAdjustCapacityUseCase(&racingPoolRepo{poolRepo}, eventRepo, &capturePublisher{}, testLogger())

	poolID := seedPool(poolRepo, 1, 5)
	forceSeatsUsed(t, poolRepo, poolID, 2)

	// Shrinking to 2 looks legal against the loaded state, but the racing
	// consume pushes seats_used to 3 first; the write must be refused.
	_, err := uc.Execute(context.Background(), poolID, 2)
	assert.ErrorIs(t, err, allocation.ErrInvalidCapacity)
	assert.Equal(t, 0, eventRepo.countByType(poolID, allocation.EventTypeAdjust))

	pool, err := poolRepo.GetByID(context.Background(), poolID)
	require.NoError(t, err)
	assert.Equal(t, 5, pool.SeatsTotal())
	assert.Equal(t, 3, pool.SeatsUsed())
}

func TestAdjustCapacity_NegativeRejected(t *testing.T) {
	uc, poolRepo, _, _ := newAdjustFixture()
	poolID := seedPool(poolRepo, 1, 5)

	_, err := uc.Execute(context.Background(), poolID, -1)
	assert.ErrorIs(t, err, allocation.ErrInvalidCapacity)
}

package usecases

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatpool/internal/domain/allocation"
	"seatpool/internal/domain/shared/events"
)

func newConsumeFixture() (*ConsumeSeatUseCase, *fakePoolRepo, *fakeEventRepo, *capturePublisher) {
	poolRepo := newFakePoolRepo()
	eventRepo := newFakeEventRepo()
	pub := &capturePublisher{}
	uc := NewConsumeSeatUseCase(poolRepo, eventRepo, pub, testLogger())
	return uc, poolRepo, eventRepo, pub
}

func TestConsumeSeat_TwoSeatPool(t *testing.T) {
	uc, poolRepo, eventRepo, pub := newConsumeFixture()
	poolID := seedPool(poolRepo, 1, 2)
	ctx := context.Background()

	res1, err := uc.Execute(ctx, poolID, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, res1.SeatsUsed)
	assert.Equal(t, 1, res1.SeatsFree)
	assert.False(t, res1.AlreadyHeld)

	res2, err := uc.Execute(ctx, poolID, 11)
	require.NoError(t, err)
	assert.Equal(t, 2, res2.SeatsUsed)
	assert.Equal(t, 0, res2.SeatsFree)

	_, err = uc.Execute(ctx, poolID, 12)
	assert.ErrorIs(t, err, allocation.ErrNoSeatAvailable)

	assert.Equal(t, 2, poolRepo.seatsUsed(poolID))
	assert.Equal(t, 2, eventRepo.countByType(poolID, allocation.EventTypeConsume))
	assert.Len(t, pub.published, 2)
}

func TestConsumeSeat_IdempotentPerUser(t *testing.T) {
	uc, poolRepo, eventRepo, _ := newConsumeFixture()
	poolID := seedPool(poolRepo, 1, 5)
	ctx := context.Background()

	first, err := uc.Execute(ctx, poolID, 10)
	require.NoError(t, err)
	assert.False(t, first.AlreadyHeld)

	second, err := uc.Execute(ctx, poolID, 10)
	require.NoError(t, err)
	assert.True(t, second.AlreadyHeld)
	assert.Equal(t, 1, second.SeatsUsed)

	assert.Equal(t, 1, poolRepo.seatsUsed(poolID))
	assert.Equal(t, 1, eventRepo.countByType(poolID, allocation.EventTypeConsume))
}

func TestConsumeSeat_ConcurrentNeverOversells(t *testing.T) {
	const seats = 5
	const contenders = 20

	uc, poolRepo, eventRepo, _ := newConsumeFixture()
	poolID := seedPool(poolRepo, 1, seats)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		userID := uint(100 + i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Execute(ctx, poolID, userID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	won, lost := 0, 0
	for err := range results {
		switch {
		case err == nil:
			won++
		default:
			require.ErrorIs(t, err, allocation.ErrNoSeatAvailable)
			lost++
		}
	}

	assert.Equal(t, seats, won)
	assert.Equal(t, contenders-seats, lost)
	assert.Equal(t, seats, poolRepo.seatsUsed(poolID))
	assert.Equal(t, seats, eventRepo.countByType(poolID, allocation.EventTypeConsume))
}

func TestConsumeSeat_PoolNotFound(t *testing.T) {
	uc, _, _, _ := newConsumeFixture()

	_, err := uc.Execute(context.Background(), 999, 10)
	assert.ErrorIs(t, err, allocation.ErrPoolNotFound)
}

func TestConsumeSeat_ExpiredPool(t *testing.T) {
	poolRepo := newFakePoolRepo()
	eventRepo := newFakeEventRepo()
	uc := NewConsumeSeatUseCase(poolRepo, eventRepo, events.NoopPublisher{}, testLogger())
	poolID := seedPool(poolRepo, 1, 3)
	ctx := context.Background()

	_, err := poolRepo.MarkExpired(ctx, poolID)
	require.NoError(t, err)

	_, err = uc.Execute(ctx, poolID, 10)
	assert.ErrorIs(t, err, allocation.ErrPoolExpired)
	assert.Equal(t, 0, poolRepo.seatsUsed(poolID))
}

func TestConsumeSeat_ZeroCapacityPool(t *testing.T) {
	uc, poolRepo, _, _ := newConsumeFixture()
	poolID := seedPool(poolRepo, 1, 0)

	_, err := uc.Execute(context.Background(), poolID, 10)
	assert.ErrorIs(t, err, allocation.ErrNoSeatAvailable)
}

package usecases

import (
	"context"
	"fmt"

	"seatpool/internal/application/allocation/dto"
	"seatpool/internal/domain/allocation"
	"seatpool/internal/domain/shared/events"
	"seatpool/internal/shared/logger"
)

// AdjustCapacityUseCase changes a pool's total seat count, typically after an
// upsell or a partial refund. Shrinking below the seats currently in use is
// rejected; existing holders are never evicted by a capacity change.
type AdjustCapacityUseCase struct {
	poolRepo  allocation.PoolRepository
	eventRepo allocation.EventRepository
	publisher events.Publisher
	logger    logger.Interface
}

// NewAdjustCapacityUseCase creates a new AdjustCapacityUseCase
func NewAdjustCapacityUseCase(
	poolRepo allocation.PoolRepository,
	eventRepo allocation.EventRepository,
	publisher events.Publisher,
	logger logger.Interface,
) *AdjustCapacityUseCase {
	return &AdjustCapacityUseCase{
		poolRepo:  poolRepo,
		eventRepo: eventRepo,
		publisher: publisher,
		logger:    logger,
	}
}

// Execute sets the pool's capacity to newTotal and records an adjust entry.
func (uc *AdjustCapacityUseCase) Execute(ctx context.Context, poolID uint, newTotal int) (*dto.PoolResponse, error) {
	if poolID == 0 {
		return nil, fmt.Errorf("pool ID is required")
	}

	pool, err := uc.poolRepo.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}

	oldTotal := pool.SeatsTotal()
	if err := pool.AdjustCapacity(newTotal); err != nil {
		return nil, err
	}

	ok, err := uc.poolRepo.AdjustSeatsTotal(ctx, poolID, newTotal)
	if err != nil {
		return nil, fmt.Errorf("failed to update pool capacity: %w", err)
	}
	if !ok {
		// A consume raced the shrink and pushed seats_used past the new
		// total; the stored capacity is untouched.
		return nil, allocation.ErrInvalidCapacity
	}

	event, err := allocation.NewSeatEvent(poolID, nil, allocation.EventTypeAdjust,
		allocation.EventSourceAdmin, allocation.AdjustMeta{
			OldSeatsTotal: oldTotal,
			NewSeatsTotal: newTotal,
			OldSeatsUsed:  pool.SeatsUsed(),
			NewSeatsUsed:  pool.SeatsUsed(),
		})
	if err != nil {
		return nil, fmt.Errorf("failed to build adjust event: %w", err)
	}
	if err := uc.eventRepo.Append(ctx, event); err != nil {
		uc.logger.Errorw("failed to append adjust event",
			"pool_id", poolID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to append adjust event: %w", err)
	}

	if err := uc.publisher.Publish(ctx, allocation.NewCapacityAdjustedEvent(pool, oldTotal, newTotal)); err != nil {
		uc.logger.Warnw("failed to publish capacity adjusted event",
			"pool_id", poolID,
			"error", err,
		)
	}

	uc.logger.Infow("pool capacity adjusted",
		"pool_id", poolID,
		"pool_sid", pool.SID(),
		"old_total", oldTotal,
		"new_total", newTotal,
		"seats_used", pool.SeatsUsed(),
	)

	return toPoolResponse(pool), nil
}

package usecases

import (
	"context"
	"fmt"

	"seatpool/internal/application/allocation/dto"
	"seatpool/internal/domain/allocation"
	"seatpool/internal/domain/shared/events"
	"seatpool/internal/shared/logger"
)

// ReleaseSeatUseCase returns a user's seat to the pool. It is triggered by
// membership removal regardless of prior consumption state, so releasing for
// a user who never consumed is a benign no-op rather than an error.
type ReleaseSeatUseCase struct {
	poolRepo  allocation.PoolRepository
	eventRepo allocation.EventRepository
	publisher events.Publisher
	logger    logger.Interface
}

// NewReleaseSeatUseCase creates a new ReleaseSeatUseCase
func NewReleaseSeatUseCase(
	poolRepo allocation.PoolRepository,
	eventRepo allocation.EventRepository,
	publisher events.Publisher,
	logger logger.Interface,
) *ReleaseSeatUseCase {
	return &ReleaseSeatUseCase{
		poolRepo:  poolRepo,
		eventRepo: eventRepo,
		publisher: publisher,
		logger:    logger,
	}
}

// Execute releases the user's seat. Pools with allow_replace=false keep the
// seat permanently consumed (non-transferable licenses); the call still
// succeeds so membership removal never fails on seat bookkeeping.
func (uc *ReleaseSeatUseCase) Execute(ctx context.Context, poolID, userID uint) (*dto.ReleaseResult, error) {
	if poolID == 0 || userID == 0 {
		return nil, fmt.Errorf("pool ID and user ID are required")
	}

	pool, err := uc.poolRepo.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}

	noop := &dto.ReleaseResult{
		PoolID:    poolID,
		UserID:    userID,
		Released:  false,
		SeatsUsed: pool.SeatsUsed(),
	}

	held, err := uc.eventRepo.HasActiveConsumption(ctx, poolID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing consumption: %w", err)
	}
	if !held {
		uc.logger.Debugw("release for user without a seat is a no-op",
			"pool_id", poolID,
			"user_id", userID,
		)
		return noop, nil
	}

	if !pool.AllowReplace() {
		uc.logger.Debugw("pool does not allow seat replacement, seat stays consumed",
			"pool_id", poolID,
			"user_id", userID,
		)
		return noop, nil
	}

	ok, err := uc.poolRepo.ReleaseSeat(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to release seat: %w", err)
	}
	if !ok {
		// Counter already at zero; the ledger and counter drifted apart and
		// the resync job will heal it. Nothing to decrement now.
		uc.logger.Warnw("release requested but seats_used already zero",
			"pool_id", poolID,
			"user_id", userID,
		)
		return noop, nil
	}

	seatsUsed := pool.SeatsUsed() - 1
	if seatsUsed < 0 {
		seatsUsed = 0
	}

	event, err := allocation.NewSeatEvent(poolID, &userID, allocation.EventTypeRelease,
		allocation.EventSourceAdmin, allocation.ReleaseMeta{SeatsUsedAfter: seatsUsed})
	if err != nil {
		return nil, fmt.Errorf("failed to build release event: %w", err)
	}
	if err := uc.eventRepo.Append(ctx, event); err != nil {
		uc.logger.Errorw("failed to append release event",
			"pool_id", poolID,
			"user_id", userID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to append release event: %w", err)
	}

	if err := uc.publisher.Publish(ctx, allocation.NewSeatReleasedEvent(pool, userID, seatsUsed)); err != nil {
		uc.logger.Warnw("failed to publish seat released event",
			"pool_id", poolID,
			"user_id", userID,
			"error", err,
		)
	}

	uc.logger.Infow("seat released",
		"pool_id", poolID,
		"pool_sid", pool.SID(),
		"user_id", userID,
		"seats_used", seatsUsed,
	)

	return &dto.ReleaseResult{
		PoolID:    poolID,
		UserID:    userID,
		Released:  true,
		SeatsUsed: seatsUsed,
	}, nil
}

package usecases

import (
	"context"
	"fmt"
	"time"

	"seatpool/internal/application/allocation/dto"
	"seatpool/internal/domain/allocation"
	"seatpool/internal/domain/shared/events"
	"seatpool/internal/shared/logger"
)

// ConsumeSeatUseCase atomically consumes one seat for a user. Consuming does
// NOT grant resource access; granting is a separate step performed by the
// caller through the enrollment port, so bookkeeping and access can fail and
// be retried independently.
type ConsumeSeatUseCase struct {
	poolRepo  allocation.PoolRepository
	eventRepo allocation.EventRepository
	publisher events.Publisher
	logger    logger.Interface
}

// NewConsumeSeatUseCase creates a new ConsumeSeatUseCase
func NewConsumeSeatUseCase(
	poolRepo allocation.PoolRepository,
	eventRepo allocation.EventRepository,
	publisher events.Publisher,
	logger logger.Interface,
) *ConsumeSeatUseCase {
	return &ConsumeSeatUseCase{
		poolRepo:  poolRepo,
		eventRepo: eventRepo,
		publisher: publisher,
		logger:    logger,
	}
}

// Execute consumes a seat in the pool for the user.
//
// Consuming twice for the same user is an idempotent no-op, not a double
// decrement. Capacity is enforced by the repository's conditional update, so
// two concurrent calls against one remaining seat yield exactly one success.
func (uc *ConsumeSeatUseCase) Execute(ctx context.Context, poolID, userID uint) (*dto.ConsumeResult, error) {
	if poolID == 0 || userID == 0 {
		return nil, fmt.Errorf("pool ID and user ID are required")
	}

	pool, err := uc.poolRepo.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if pool.Status() == allocation.PoolStatusExpired || pool.IsExpired(now) {
		return nil, allocation.ErrPoolExpired
	}

	held, err := uc.eventRepo.HasActiveConsumption(ctx, poolID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing consumption: %w", err)
	}
	if held {
		uc.logger.Debugw("seat already held, consume is a no-op",
			"pool_id", poolID,
			"user_id", userID,
		)
		return &dto.ConsumeResult{
			PoolID:      poolID,
			UserID:      userID,
			SeatsUsed:   pool.SeatsUsed(),
			SeatsFree:   pool.SeatsFree(),
			AlreadyHeld: true,
		}, nil
	}

	ok, err := uc.poolRepo.ConsumeSeat(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to consume seat: %w", err)
	}
	if !ok {
		// Expected outcome, not a fault: callers branch on it.
		uc.logger.Debugw("no seat available",
			"pool_id", poolID,
			"user_id", userID,
			"seats_total", pool.SeatsTotal(),
		)
		return nil, allocation.ErrNoSeatAvailable
	}

	seatsUsed := pool.SeatsUsed() + 1

	event, err := allocation.NewSeatEvent(poolID, &userID, allocation.EventTypeConsume,
		allocation.EventSourceAdmin, allocation.ConsumeMeta{SeatsUsedAfter: seatsUsed})
	if err != nil {
		return nil, fmt.Errorf("failed to build consume event: %w", err)
	}
	if err := uc.eventRepo.Append(ctx, event); err != nil {
		// The seat is consumed but the ledger write failed; the resync job
		// reconciles the counter against observed access on its next tick.
		uc.logger.Errorw("failed to append consume event",
			"pool_id", poolID,
			"user_id", userID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to append consume event: %w", err)
	}

	if err := uc.publisher.Publish(ctx, allocation.NewSeatConsumedEvent(pool, userID, seatsUsed)); err != nil {
		uc.logger.Warnw("failed to publish seat consumed event",
			"pool_id", poolID,
			"user_id", userID,
			"error", err,
		)
	}

	uc.logger.Infow("seat consumed",
		"pool_id", poolID,
		"pool_sid", pool.SID(),
		"user_id", userID,
		"seats_used", seatsUsed,
		"seats_total", pool.SeatsTotal(),
	)

	return &dto.ConsumeResult{
		PoolID:    poolID,
		UserID:    userID,
		SeatsUsed: seatsUsed,
		SeatsFree: pool.SeatsTotal() - seatsUsed,
	}, nil
}

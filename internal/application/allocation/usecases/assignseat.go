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

// AssignSeatUseCase is the admin "give this member a seat now" operation:
// resolve the pool's scope, grant access to every resolved resource, then
// consume a seat. Grants come first so a capacity race never strands a user
// holding a seat without access.
type AssignSeatUseCase struct {
	poolRepo   allocation.PoolRepository
	eventRepo  allocation.EventRepository
	resolver   allocation.ScopeResolver
	enrollment allocation.EnrollmentPort
	publisher  events.Publisher
	logger     logger.Interface
}

// NewAssignSeatUseCase creates a new AssignSeatUseCase
func NewAssignSeatUseCase(
	poolRepo allocation.PoolRepository,
	eventRepo allocation.EventRepository,
	resolver allocation.ScopeResolver,
	enrollment allocation.EnrollmentPort,
	publisher events.Publisher,
	logger logger.Interface,
) *AssignSeatUseCase {
	return &AssignSeatUseCase{
		poolRepo:   poolRepo,
		eventRepo:  eventRepo,
		resolver:   resolver,
		enrollment: enrollment,
		publisher:  publisher,
		logger:     logger,
	}
}

// Execute grants the user access to the pool's resolved resources and
// consumes one seat. Assigning to a user who already holds a seat re-grants
// access (grants are idempotent) without consuming a second seat.
func (uc *AssignSeatUseCase) Execute(ctx context.Context, poolID, userID uint) (*dto.ConsumeResult, error) {
	if poolID == 0 || userID == 0 {
		return nil, fmt.Errorf("pool ID and user ID are required")
	}

	pool, err := uc.poolRepo.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if !pool.CanConsume(now) {
		if pool.Status() == allocation.PoolStatusExpired || pool.IsExpired(now) {
			return nil, allocation.ErrPoolExpired
		}
		return nil, allocation.ErrNoSeatAvailable
	}

	resourceIDs, err := uc.resolver.Resolve(ctx, pool.ScopeType(), pool.ScopeIDs())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", allocation.ErrScopeResolutionFailed, err)
	}

	for _, resourceID := range resourceIDs {
		if err := uc.enrollment.Grant(ctx, userID, resourceID); err != nil {
			return nil, fmt.Errorf("%w: resource %d: %v", allocation.ErrEnrollmentGrantFailed, resourceID, err)
		}
	}

	held, err := uc.eventRepo.HasActiveConsumption(ctx, poolID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing consumption: %w", err)
	}
	if held {
		uc.logger.Infow("seat assigned to existing holder, access re-granted",
			"pool_id", poolID,
			"user_id", userID,
			"resources", len(resourceIDs),
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
		// Access was granted but the last seat went to someone else. Leave the
		// grants in place; the resync job attributes them on its next pass.
		uc.logger.Warnw("assignment granted access but lost the seat race",
			"pool_id", poolID,
			"user_id", userID,
		)
		return nil, allocation.ErrNoSeatAvailable
	}

	seatsUsed := pool.SeatsUsed() + 1

	event, err := allocation.NewSeatEvent(poolID, &userID, allocation.EventTypeAssign,
		allocation.EventSourceAdmin, allocation.AssignMeta{
			ResourceCount:  len(resourceIDs),
			SeatsUsedAfter: seatsUsed,
		})
	if err != nil {
		return nil, fmt.Errorf("failed to build assign event: %w", err)
	}
	if err := uc.eventRepo.Append(ctx, event); err != nil {
		uc.logger.Errorw("failed to append assign event",
			"pool_id", poolID,
			"user_id", userID,
			"error", err,
		)
		return nil, fmt.Errorf("failed to append assign event: %w", err)
	}

	if err := uc.publisher.Publish(ctx, allocation.NewSeatConsumedEvent(pool, userID, seatsUsed)); err != nil {
		uc.logger.Warnw("failed to publish seat consumed event",
			"pool_id", poolID,
			"user_id", userID,
			"error", err,
		)
	}

	uc.logger.Infow("seat assigned",
		"pool_id", poolID,
		"pool_sid", pool.SID(),
		"user_id", userID,
		"resources", len(resourceIDs),
		"seats_used", seatsUsed,
	)

	return &dto.ConsumeResult{
		PoolID:    poolID,
		UserID:    userID,
		SeatsUsed: seatsUsed,
		SeatsFree: pool.SeatsTotal() - seatsUsed,
	}, nil
}

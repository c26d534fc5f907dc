package usecases

import (
	"context"
	"fmt"
	"time"

	"seatpool/internal/application/allocation/dto"
	"seatpool/internal/domain/allocation"
	"seatpool/internal/shared/errors"
	"seatpool/internal/shared/logger"
)

// InviteSeatUseCase invites someone who is not yet an org member to claim a
// seat. No seat is consumed at invite time; consumption happens when the
// invitee joins and the membership flow calls consume. The invite is recorded
// in the ledger so admins can audit outstanding offers.
type InviteSeatUseCase struct {
	poolRepo  allocation.PoolRepository
	eventRepo allocation.EventRepository
	notifier  allocation.NotifierPort
	logger    logger.Interface
}

// NewInviteSeatUseCase creates a new InviteSeatUseCase
func NewInviteSeatUseCase(
	poolRepo allocation.PoolRepository,
	eventRepo allocation.EventRepository,
	notifier allocation.NotifierPort,
	logger logger.Interface,
) *InviteSeatUseCase {
	return &InviteSeatUseCase{
		poolRepo:  poolRepo,
		eventRepo: eventRepo,
		notifier:  notifier,
		logger:    logger,
	}
}

// Execute sends a seat invitation for the pool to the recipient address.
func (uc *InviteSeatUseCase) Execute(ctx context.Context, poolID uint, recipient string) (*dto.SeatEventResponse, error) {
	if poolID == 0 {
		return nil, fmt.Errorf("pool ID is required")
	}
	if recipient == "" {
		return nil, errors.NewValidationError("recipient is required")
	}

	pool, err := uc.poolRepo.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if pool.Status() == allocation.PoolStatusExpired || pool.IsExpired(now) {
		return nil, allocation.ErrPoolExpired
	}
	if pool.SeatsFree() <= 0 {
		return nil, allocation.ErrNoSeatAvailable
	}

	subject := "You have been invited to a seat"
	body := fmt.Sprintf("You have been invited to claim a seat in pool %s. Join the organization to activate your access.", pool.SID())
	if err := uc.notifier.Send(ctx, recipient, subject, body); err != nil {
		return nil, fmt.Errorf("%w: failed to send invitation: %v", allocation.ErrTransientPortFailure, err)
	}

	event, err := allocation.NewSeatEvent(poolID, nil, allocation.EventTypeInvite,
		allocation.EventSourceAdmin, allocation.InviteMeta{Recipient: recipient})
	if err != nil {
		return nil, fmt.Errorf("failed to build invite event: %w", err)
	}
	if err := uc.eventRepo.Append(ctx, event); err != nil {
		uc.logger.Errorw("failed to append invite event",
			"pool_id", poolID,
			"recipient", recipient,
			"error", err,
		)
		return nil, fmt.Errorf("failed to append invite event: %w", err)
	}

	uc.logger.Infow("seat invitation sent",
		"pool_id", poolID,
		"pool_sid", pool.SID(),
		"recipient", recipient,
	)

	return toSeatEventResponse(event), nil
}

package usecases

import (
	"context"
	"fmt"

	"seatpool/internal/domain/allocation"
	"seatpool/internal/shared/logger"
)

// DeletePoolUseCase hard-deletes a pool and its ledger. This is the one place
// ledger entries are ever removed; it exists for administrative cleanup of
// pools created in error, not for normal lifecycle (expiry keeps the ledger).
type DeletePoolUseCase struct {
	poolRepo  allocation.PoolRepository
	eventRepo allocation.EventRepository
	logger    logger.Interface
}

// NewDeletePoolUseCase creates a new DeletePoolUseCase
func NewDeletePoolUseCase(
	poolRepo allocation.PoolRepository,
	eventRepo allocation.EventRepository,
	logger logger.Interface,
) *DeletePoolUseCase {
	return &DeletePoolUseCase{
		poolRepo:  poolRepo,
		eventRepo: eventRepo,
		logger:    logger,
	}
}

// Execute deletes the pool and cascades to its ledger entries.
func (uc *DeletePoolUseCase) Execute(ctx context.Context, poolID uint) error {
	if poolID == 0 {
		return fmt.Errorf("pool ID is required")
	}

	pool, err := uc.poolRepo.GetByID(ctx, poolID)
	if err != nil {
		return err
	}

	if err := uc.eventRepo.DeleteByPool(ctx, poolID); err != nil {
		return fmt.Errorf("failed to delete pool ledger: %w", err)
	}
	if err := uc.poolRepo.Delete(ctx, poolID); err != nil {
		return fmt.Errorf("failed to delete pool: %w", err)
	}

	uc.logger.Infow("seat pool deleted",
		"pool_id", poolID,
		"pool_sid", pool.SID(),
		"org_id", pool.OrgID(),
	)
	return nil
}

package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"seatpool/internal/application/allocation/dto"
	"seatpool/internal/domain/allocation"
	"seatpool/internal/shared/errors"
	"seatpool/internal/shared/logger"
)

// CreatePoolUseCase creates a new seat pool with zero seats used. Pricing and
// checkout happen elsewhere; the pool arrives here with a known capacity and
// an optional order reference kept for audit only.
type CreatePoolUseCase struct {
	poolRepo allocation.PoolRepository
	validate *validator.Validate
	logger   logger.Interface
}

// NewCreatePoolUseCase creates a new CreatePoolUseCase
func NewCreatePoolUseCase(poolRepo allocation.PoolRepository, logger logger.Interface) *CreatePoolUseCase {
	return &CreatePoolUseCase{
		poolRepo: poolRepo,
		validate: validator.New(),
		logger:   logger,
	}
}

// Execute validates the request and persists the new pool.
func (uc *CreatePoolUseCase) Execute(ctx context.Context, req dto.CreatePoolRequest) (*dto.PoolResponse, error) {
	if err := uc.validate.Struct(req); err != nil {
		return nil, errors.NewValidationError("invalid create pool request", err.Error())
	}
	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now().UTC()) {
		return nil, errors.NewValidationError("expiry cannot be in the past")
	}

	pool, err := allocation.NewPool(
		req.OrgID,
		req.TeamID,
		allocation.ScopeType(req.ScopeType),
		req.ScopeIDs,
		req.SeatsTotal,
		req.ExpiresAt,
		req.AutoEnroll,
		req.AllowReplace,
		req.OrderRef,
	)
	if err != nil {
		return nil, errors.NewValidationError("invalid pool", err.Error())
	}

	if err := uc.poolRepo.Create(ctx, pool); err != nil {
		uc.logger.Errorw("failed to create seat pool",
			"org_id", req.OrgID,
			"scope_type", req.ScopeType,
			"error", err,
		)
		return nil, fmt.Errorf("failed to create seat pool: %w", err)
	}

	uc.logger.Infow("seat pool created",
		"pool_id", pool.ID(),
		"pool_sid", pool.SID(),
		"org_id", pool.OrgID(),
		"seats_total", pool.SeatsTotal(),
	)

	return toPoolResponse(pool), nil
}

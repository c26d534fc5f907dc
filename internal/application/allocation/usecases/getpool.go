package usecases

import (
	"context"
	"fmt"

	"seatpool/internal/application/allocation/dto"
	"seatpool/internal/domain/allocation"
	"seatpool/internal/shared/id"
)

// GetPoolUseCase retrieves a single pool by numeric ID or short ID.
type GetPoolUseCase struct {
	poolRepo allocation.PoolRepository
}

// NewGetPoolUseCase creates a new GetPoolUseCase
func NewGetPoolUseCase(poolRepo allocation.PoolRepository) *GetPoolUseCase {
	return &GetPoolUseCase{poolRepo: poolRepo}
}

// Execute retrieves the pool by ID.
func (uc *GetPoolUseCase) Execute(ctx context.Context, poolID uint) (*dto.PoolResponse, error) {
	if poolID == 0 {
		return nil, fmt.Errorf("pool ID is required")
	}
	pool, err := uc.poolRepo.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}
	return toPoolResponse(pool), nil
}

// ExecuteBySID retrieves the pool by its short ID (e.g. "sp_ab12cd34ef56").
func (uc *GetPoolUseCase) ExecuteBySID(ctx context.Context, sid string) (*dto.PoolResponse, error) {
	if !id.HasPrefix(sid, id.PrefixSeatPool) {
		return nil, allocation.ErrPoolNotFound
	}
	pool, err := uc.poolRepo.GetBySID(ctx, sid)
	if err != nil {
		return nil, err
	}
	return toPoolResponse(pool), nil
}

package usecases

import (
	"context"
	"fmt"

	"seatpool/internal/domain/allocation"
)

// ResolveScopeUseCase expands a pool's scope into the concrete resource IDs it
// currently grants. Admin/debug query; resolution is always computed fresh.
type ResolveScopeUseCase struct {
	poolRepo allocation.PoolRepository
	resolver allocation.ScopeResolver
}

func NewResolveScopeUseCase(poolRepo allocation.PoolRepository, resolver allocation.ScopeResolver) *ResolveScopeUseCase {
	return &ResolveScopeUseCase{poolRepo: poolRepo, resolver: resolver}
}

// Execute resolves the pool's scope. An empty result means the scope currently
// grants nothing; that is a valid answer, not an error.
func (uc *ResolveScopeUseCase) Execute(ctx context.Context, poolID uint) ([]uint, error) {
	if poolID == 0 {
		return nil, fmt.Errorf("pool ID is required")
	}

	pool, err := uc.poolRepo.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}

	resourceIDs, err := uc.resolver.Resolve(ctx, pool.ScopeType(), pool.ScopeIDs())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", allocation.ErrScopeResolutionFailed, err)
	}
	return resourceIDs, nil
}

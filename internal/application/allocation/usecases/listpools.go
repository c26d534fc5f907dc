package usecases

import (
	"context"
	"fmt"

	"seatpool/internal/application/allocation/dto"
	"seatpool/internal/domain/allocation"
)

// ListPoolsUseCase lists an organization's pools.
type ListPoolsUseCase struct {
	poolRepo allocation.PoolRepository
}

// NewListPoolsUseCase creates a new ListPoolsUseCase
func NewListPoolsUseCase(poolRepo allocation.PoolRepository) *ListPoolsUseCase {
	return &ListPoolsUseCase{poolRepo: poolRepo}
}

// Execute lists the organization's pools, oldest first. With activeOnly set,
// expired pools are filtered out.
func (uc *ListPoolsUseCase) Execute(ctx context.Context, orgID uint, activeOnly bool) ([]*dto.PoolResponse, error) {
	if orgID == 0 {
		return nil, fmt.Errorf("org ID is required")
	}

	var (
		pools []*allocation.Pool
		err   error
	)
	if activeOnly {
		pools, err = uc.poolRepo.ListActiveByOrg(ctx, orgID)
	} else {
		pools, err = uc.poolRepo.ListByOrg(ctx, orgID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}

	responses := make([]*dto.PoolResponse, 0, len(pools))
	for _, pool := range pools {
		responses = append(responses, toPoolResponse(pool))
	}
	return responses, nil
}

package usecases

import (
	"context"
	"fmt"

	"seatpool/internal/application/allocation/dto"
	"seatpool/internal/domain/allocation"
)

const defaultEventLimit = 100

// ListPoolEventsUseCase reads the seat ledger for audit views.
type ListPoolEventsUseCase struct {
	poolRepo  allocation.PoolRepository
	eventRepo allocation.EventRepository
}

// NewListPoolEventsUseCase creates a new ListPoolEventsUseCase
func NewListPoolEventsUseCase(poolRepo allocation.PoolRepository, eventRepo allocation.EventRepository) *ListPoolEventsUseCase {
	return &ListPoolEventsUseCase{poolRepo: poolRepo, eventRepo: eventRepo}
}

// Execute returns the pool's ledger entries, newest first. An empty eventType
// returns all types.
func (uc *ListPoolEventsUseCase) Execute(ctx context.Context, poolID uint, eventType string, limit int) ([]*dto.SeatEventResponse, error) {
	if poolID == 0 {
		return nil, fmt.Errorf("pool ID is required")
	}
	if limit <= 0 {
		limit = defaultEventLimit
	}

	// Surface not-found on the pool itself rather than an empty ledger.
	if _, err := uc.poolRepo.GetByID(ctx, poolID); err != nil {
		return nil, err
	}

	var (
		events []*allocation.SeatEvent
		err    error
	)
	if eventType == "" {
		events, err = uc.eventRepo.QueryByPool(ctx, poolID, limit)
	} else {
		et := allocation.EventType(eventType)
		if !et.IsValid() {
			return nil, fmt.Errorf("invalid event type: %s", eventType)
		}
		events, err = uc.eventRepo.QueryByType(ctx, poolID, et, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}

	responses := make([]*dto.SeatEventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, toSeatEventResponse(event))
	}
	return responses, nil
}

// ExecuteRecent returns the most recent entries across all of the
// organization's pools, newest first.
func (uc *ListPoolEventsUseCase) ExecuteRecent(ctx context.Context, orgID uint, limit int) ([]*dto.SeatEventResponse, error) {
	if orgID == 0 {
		return nil, fmt.Errorf("org ID is required")
	}
	if limit <= 0 {
		limit = defaultEventLimit
	}

	events, err := uc.eventRepo.QueryRecent(ctx, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent ledger entries: %w", err)
	}

	responses := make([]*dto.SeatEventResponse, 0, len(events))
	for _, event := range events {
		responses = append(responses, toSeatEventResponse(event))
	}
	return responses, nil
}

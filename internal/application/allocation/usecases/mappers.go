package usecases

import (
	"seatpool/internal/application/allocation/dto"
	"seatpool/internal/domain/allocation"
)

func toPoolResponse(pool *allocation.Pool) *dto.PoolResponse {
	return &dto.PoolResponse{
		ID:           pool.ID(),
		SID:          pool.SID(),
		OrgID:        pool.OrgID(),
		TeamID:       pool.TeamID(),
		ScopeType:    pool.ScopeType().String(),
		ScopeIDs:     pool.ScopeIDs(),
		SeatsTotal:   pool.SeatsTotal(),
		SeatsUsed:    pool.SeatsUsed(),
		SeatsFree:    pool.SeatsFree(),
		ExpiresAt:    pool.ExpiresAt(),
		AutoEnroll:   pool.AutoEnroll(),
		AllowReplace: pool.AllowReplace(),
		OrderRef:     pool.OrderRef(),
		Status:       pool.Status().String(),
		CreatedAt:    pool.CreatedAt(),
		UpdatedAt:    pool.UpdatedAt(),
	}
}

func toSeatEventResponse(event *allocation.SeatEvent) *dto.SeatEventResponse {
	return &dto.SeatEventResponse{
		ID:        event.ID(),
		PoolID:    event.PoolID(),
		UserID:    event.UserID(),
		Type:      event.Type().String(),
		Source:    event.Source().String(),
		Meta:      event.Meta(),
		CreatedAt: event.CreatedAt(),
	}
}

package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seatpool/internal/application/allocation/dto"
	"seatpool/internal/shared/errors"
)

func validCreateRequest() dto.CreatePoolRequest {
	return dto.CreatePoolRequest{
		OrgID:        1,
		ScopeType:    "item",
		ScopeIDs:     []uint{101, 102},
		SeatsTotal:   10,
		AllowReplace: true,
		OrderRef:     "ord_123",
	}
}

func TestCreatePool_Success(t *testing.T) {
	poolRepo := newFakePoolRepo()
	uc := NewCreatePoolUseCase(poolRepo, testLogger())

	res, err := uc.Execute(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.NotZero(t, res.ID)
	assert.Contains(t, res.SID, "sp_")
	assert.Equal(t, uint(1), res.OrgID)
	assert.Equal(t, 10, res.SeatsTotal)
	assert.Equal(t, 0, res.SeatsUsed)
	assert.Equal(t, 10, res.SeatsFree)
	assert.Equal(t, "active", res.Status)
}

func TestCreatePool_Validation(t *testing.T) {
	uc := NewCreatePoolUseCase(newFakePoolRepo(), testLogger())

	tests := []struct {
		name   string
		mutate func(*dto.CreatePoolRequest)
	}{
		{"missing org", func(r *dto.CreatePoolRequest) { r.OrgID = 0 }},
		{"bad scope type", func(r *dto.CreatePoolRequest) { r.ScopeType = "tenant" }},
		{"empty scope IDs", func(r *dto.CreatePoolRequest) { r.ScopeIDs = nil }},
		{"zero scope ID", func(r *dto.CreatePoolRequest) { r.ScopeIDs = []uint{0} }},
		{"negative seats", func(r *dto.CreatePoolRequest) { r.SeatsTotal = -1 }},
		{"past expiry", func(r *dto.CreatePoolRequest) {
			past := time.Now().UTC().Add(-time.Hour)
			r.ExpiresAt = &past
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(&req)
			_, err := uc.Execute(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.IsValidationError(err), "expected validation error, got %v", err)
		})
	}
}

func TestCreatePool_ZeroSeatsAllowed(t *testing.T) {
	uc := NewCreatePoolUseCase(newFakePoolRepo(), testLogger())

	req := validCreateRequest()
	req.SeatsTotal = 0
	res, err := uc.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, res.SeatsTotal)
}

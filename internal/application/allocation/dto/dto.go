package dto

import "time"

// CreatePoolRequest represents the request to create a seat pool
type CreatePoolRequest struct {
	OrgID        uint       `json:"org_id" validate:"required"`
	TeamID       *uint      `json:"team_id,omitempty" validate:"omitempty,gt=0"`
	ScopeType    string     `json:"scope_type" validate:"required,oneof=item category bundle"`
	ScopeIDs     []uint     `json:"scope_ids" validate:"required,min=1,dive,gt=0"`
	SeatsTotal   int        `json:"seats_total" validate:"gte=0"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	AutoEnroll   bool       `json:"auto_enroll"`
	AllowReplace bool       `json:"allow_replace"`
	OrderRef     string     `json:"order_ref,omitempty"`
}

// PoolResponse represents a seat pool
type PoolResponse struct {
	ID           uint       `json:"id"`
	SID          string     `json:"sid"`
	OrgID        uint       `json:"org_id"`
	TeamID       *uint      `json:"team_id,omitempty"`
	ScopeType    string     `json:"scope_type"`
	ScopeIDs     []uint     `json:"scope_ids"`
	SeatsTotal   int        `json:"seats_total"`
	SeatsUsed    int        `json:"seats_used"`
	SeatsFree    int        `json:"seats_free"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	AutoEnroll   bool       `json:"auto_enroll"`
	AllowReplace bool       `json:"allow_replace"`
	OrderRef     string     `json:"order_ref,omitempty"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// SeatEventResponse represents one ledger entry
type SeatEventResponse struct {
	ID        uint      `json:"id"`
	PoolID    uint      `json:"pool_id"`
	UserID    *uint     `json:"user_id,omitempty"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Meta      any       `json:"meta,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ConsumeResult reports the outcome of a consume or assign operation
type ConsumeResult struct {
	PoolID    uint `json:"pool_id"`
	UserID    uint `json:"user_id"`
	SeatsUsed int  `json:"seats_used"`
	SeatsFree int  `json:"seats_free"`
	// AlreadyHeld is true when the user already occupied a seat and the call
	// was an idempotent no-op.
	AlreadyHeld bool `json:"already_held"`
}

// ReleaseResult reports the outcome of a release operation
type ReleaseResult struct {
	PoolID uint `json:"pool_id"`
	UserID uint `json:"user_id"`
	// Released is false for the benign no-ops: the user never held a seat, or
	// the pool does not allow seat replacement.
	Released  bool `json:"released"`
	SeatsUsed int  `json:"seats_used"`
}

// ResyncSummary is the health signal of one reconciliation run
type ResyncSummary struct {
	OrgsProcessed  int      `json:"orgs_processed"`
	PoolsProcessed int      `json:"pools_processed"`
	DriftCorrected int      `json:"drift_corrected"`
	AutoEnrolled   int      `json:"auto_enrolled"`
	PoolsExpired   int      `json:"pools_expired"`
	WarningsSent   int      `json:"warnings_sent"`
	Errors         []string `json:"errors,omitempty"`
}

package models

import (
	"time"

	"gorm.io/datatypes"

	"seatpool/internal/shared/constants"
)

// SeatPoolModel represents the database persistence model for seat pools
// This is the anti-corruption layer between domain and database
// The capacity invariant (seats_used <= seats_total) is enforced by the
// conditional UPDATE operations in the repository, never by plain writes
type SeatPoolModel struct {
	ID           uint           `gorm:"primarykey"`
	SID          string         `gorm:"column:sid;not null;size:32;uniqueIndex"`
	OrgID        uint           `gorm:"not null;index:idx_org_status,priority:1"`
	TeamID       *uint          `gorm:"index"`
	ScopeType    string         `gorm:"not null;size:20"`
	ScopeIDs     datatypes.JSON `gorm:"not null"`
	SeatsTotal   int            `gorm:"not null;default:0"`
	SeatsUsed    int            `gorm:"not null;default:0"`
	ExpiresAt    *time.Time     `gorm:"index:idx_status_expires,priority:2"`
	AutoEnroll   bool           `gorm:"not null;default:false"`
	AllowReplace bool           `gorm:"not null;default:true"`
	OrderRef     string         `gorm:"size:64"`
	Status       string         `gorm:"not null;size:20;default:active;index:idx_org_status,priority:2;index:idx_status_expires,priority:1"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int `gorm:"not null;default:1"`
}

// TableName specifies the table name for GORM
func (SeatPoolModel) TableName() string {
	return constants.TableSeatPools
}

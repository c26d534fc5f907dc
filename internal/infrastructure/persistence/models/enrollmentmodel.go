package models

import (
	"time"

	"seatpool/internal/shared/constants"
)

// EnrollmentModel records a user's access to a catalog item. The allocation
// engine only ever grants and reads; revocation lives outside this service.
type EnrollmentModel struct {
	ID        uint `gorm:"primarykey"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_user_item,priority:1"`
	ItemID    uint `gorm:"not null;uniqueIndex:idx_user_item,priority:2"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM
func (EnrollmentModel) TableName() string {
	return constants.TableEnrollments
}

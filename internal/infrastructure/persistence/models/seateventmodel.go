package models

import (
	"time"

	"gorm.io/datatypes"

	"seatpool/internal/shared/constants"
)

// SeatEventModel represents the append-only seat ledger table. Rows are never
// updated; deletion happens only as the cascade of an administrative pool
// deletion.
type SeatEventModel struct {
	ID        uint   `gorm:"primarykey"`
	PoolID    uint   `gorm:"not null;index:idx_pool_type,priority:1;index:idx_pool_user,priority:1"`
	UserID    *uint  `gorm:"index:idx_pool_user,priority:2"`
	EventType string `gorm:"not null;size:20;index:idx_pool_type,priority:2"`
	Source    string `gorm:"not null;size:20"`
	Meta      datatypes.JSON
	CreatedAt time.Time `gorm:"index"`
}

// TableName specifies the table name for GORM
func (SeatEventModel) TableName() string {
	return constants.TableSeatEvents
}

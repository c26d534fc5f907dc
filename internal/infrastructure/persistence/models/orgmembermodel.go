package models

import (
	"time"

	"seatpool/internal/shared/constants"
)

// OrgMemberModel records organization membership. JoinedAt gives the stable
// ordering the reconciliation job relies on for deterministic auto-enroll.
type OrgMemberModel struct {
	ID        uint   `gorm:"primarykey"`
	OrgID     uint   `gorm:"not null;uniqueIndex:idx_org_user,priority:1"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_org_user,priority:2"`
	TeamID    *uint  `gorm:"index"`
	Email     string `gorm:"not null;size:255"`
	IsContact bool   `gorm:"not null;default:false"`
	JoinedAt  time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM
func (OrgMemberModel) TableName() string {
	return constants.TableOrgMembers
}

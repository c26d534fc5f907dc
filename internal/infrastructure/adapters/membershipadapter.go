package adapters

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"seatpool/internal/domain/allocation"
	"seatpool/internal/infrastructure/persistence/models"
	"seatpool/internal/shared/logger"
)

// MembershipAdapter implements allocation.MembershipPort on the org_members
// table.
type MembershipAdapter struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewMembershipAdapter creates a new MembershipAdapter instance
func NewMembershipAdapter(db *gorm.DB, logger logger.Interface) allocation.MembershipPort {
	return &MembershipAdapter{
		db:     db,
		logger: logger,
	}
}

// ListEligible returns the user IDs eligible for a pool, ordered by join
// time. The stable order keeps auto-enroll deterministic across runs.
func (a *MembershipAdapter) ListEligible(ctx context.Context, orgID uint, teamID *uint) ([]uint, error) {
	q := a.db.WithContext(ctx).
		Model(&models.OrgMemberModel{}).
		Where("org_id = ?", orgID)
	if teamID != nil {
		q = q.Where("team_id = ?", *teamID)
	}

	var userIDs []uint
	if err := q.Order("joined_at ASC, id ASC").Pluck("user_id", &userIDs).Error; err != nil {
		a.logger.Errorw("failed to list eligible members", "org_id", orgID, "error", err)
		return nil, fmt.Errorf("failed to list eligible members: %w", err)
	}
	return userIDs, nil
}

// ListOrgContacts returns the notification addresses of the organization's
// contact members.
func (a *MembershipAdapter) ListOrgContacts(ctx context.Context, orgID uint) ([]string, error) {
	var emails []string
	if err := a.db.WithContext(ctx).
		Model(&models.OrgMemberModel{}).
		Where("org_id = ? AND is_contact = ?", orgID, true).
		Order("id ASC").
		Pluck("email", &emails).Error; err != nil {
		a.logger.Errorw("failed to list org contacts", "org_id", orgID, "error", err)
		return nil, fmt.Errorf("failed to list org contacts: %w", err)
	}
	return emails, nil
}

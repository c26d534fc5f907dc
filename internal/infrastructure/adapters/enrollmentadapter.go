package adapters

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"seatpool/internal/domain/allocation"
	"seatpool/internal/infrastructure/persistence/models"
	"seatpool/internal/shared/logger"
)

// EnrollmentAdapter implements allocation.EnrollmentPort on the enrollments
// table. Grant is idempotent via an upsert on the (user, item) unique index.
type EnrollmentAdapter struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewEnrollmentAdapter creates a new EnrollmentAdapter instance
func NewEnrollmentAdapter(db *gorm.DB, logger logger.Interface) allocation.EnrollmentPort {
	return &EnrollmentAdapter{
		db:     db,
		logger: logger,
	}
}

// Grant gives the user access to the item. Granting twice is a no-op.
func (a *EnrollmentAdapter) Grant(ctx context.Context, userID, resourceID uint) error {
	model := &models.EnrollmentModel{
		UserID: userID,
		ItemID: resourceID,
	}

	if err := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(model).Error; err != nil {
		a.logger.Errorw("failed to grant enrollment",
			"user_id", userID,
			"item_id", resourceID,
			"error", err)
		return fmt.Errorf("failed to grant enrollment: %w", err)
	}
	return nil
}

// IsGranted reports whether the user currently has access to the item.
func (a *EnrollmentAdapter) IsGranted(ctx context.Context, userID, resourceID uint) (bool, error) {
	var count int64
	if err := a.db.WithContext(ctx).
		Model(&models.EnrollmentModel{}).
		Where("user_id = ? AND item_id = ?", userID, resourceID).
		Count(&count).Error; err != nil {
		a.logger.Errorw("failed to check enrollment",
			"user_id", userID,
			"item_id", resourceID,
			"error", err)
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return count > 0, nil
}

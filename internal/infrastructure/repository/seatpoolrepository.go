package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"seatpool/internal/domain/allocation"
	"seatpool/internal/infrastructure/persistence/models"
	apperrors "seatpool/internal/shared/errors"
	"seatpool/internal/shared/logger"
)

// SeatPoolRepositoryImpl implements the allocation.PoolRepository interface.
//
// The conditional operations are single atomic UPDATEs with the invariant in
// the WHERE clause; RowsAffected tells the caller whether the transition
// happened. This works identically under concurrent engine instances because
// the database serializes the row update.
type SeatPoolRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewSeatPoolRepository creates a new seat pool repository instance
func NewSeatPoolRepository(db *gorm.DB, logger logger.Interface) allocation.PoolRepository {
	return &SeatPoolRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

// Create persists a new seat pool
func (r *SeatPoolRepositoryImpl) Create(ctx context.Context, pool *allocation.Pool) error {
	model, err := r.toModel(pool)
	if err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return apperrors.NewConflictError("seat pool already exists")
		}
		r.logger.Errorw("failed to create seat pool",
			"org_id", pool.OrgID(),
			"sid", pool.SID(),
			"error", err)
		return fmt.Errorf("failed to create seat pool: %w", err)
	}

	if err := pool.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set pool ID: %w", err)
	}
	return nil
}

// Update persists scope and policy changes. Seat counters and capacity are
// owned by the conditional operations and deliberately excluded here.
func (r *SeatPoolRepositoryImpl) Update(ctx context.Context, pool *allocation.Pool) error {
	scopeIDs, err := json.Marshal(pool.ScopeIDs())
	if err != nil {
		return fmt.Errorf("failed to marshal scope IDs: %w", err)
	}

	result := r.db.WithContext(ctx).
		Model(&models.SeatPoolModel{}).
		Where("id = ?", pool.ID()).
		Updates(map[string]any{
			"team_id":       pool.TeamID(),
			"scope_type":    pool.ScopeType().String(),
			"scope_ids":     scopeIDs,
			"expires_at":    pool.ExpiresAt(),
			"auto_enroll":   pool.AutoEnroll(),
			"allow_replace": pool.AllowReplace(),
			"status":        pool.Status().String(),
			"version":       pool.Version(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update seat pool", "pool_id", pool.ID(), "error", result.Error)
		return fmt.Errorf("failed to update seat pool: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return allocation.ErrPoolNotFound
	}
	return nil
}

// Delete hard-deletes a pool
func (r *SeatPoolRepositoryImpl) Delete(ctx context.Context, poolID uint) error {
	result := r.db.WithContext(ctx).Delete(&models.SeatPoolModel{}, poolID)
	if result.Error != nil {
		r.logger.Errorw("failed to delete seat pool", "pool_id", poolID, "error", result.Error)
		return fmt.Errorf("failed to delete seat pool: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return allocation.ErrPoolNotFound
	}
	return nil
}

// GetByID retrieves a pool by ID
func (r *SeatPoolRepositoryImpl) GetByID(ctx context.Context, poolID uint) (*allocation.Pool, error) {
	var model models.SeatPoolModel
	if err := r.db.WithContext(ctx).First(&model, poolID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, allocation.ErrPoolNotFound
		}
		r.logger.Errorw("failed to get seat pool", "pool_id", poolID, "error", err)
		return nil, fmt.Errorf("failed to get seat pool: %w", err)
	}
	return r.toDomain(&model)
}

// GetBySID retrieves a pool by its short ID
func (r *SeatPoolRepositoryImpl) GetBySID(ctx context.Context, sid string) (*allocation.Pool, error) {
	var model models.SeatPoolModel
	if err := r.db.WithContext(ctx).Where("sid = ?", sid).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, allocation.ErrPoolNotFound
		}
		r.logger.Errorw("failed to get seat pool by SID", "sid", sid, "error", err)
		return nil, fmt.Errorf("failed to get seat pool: %w", err)
	}
	return r.toDomain(&model)
}

// ListByOrg retrieves all pools of an organization, oldest first
func (r *SeatPoolRepositoryImpl) ListByOrg(ctx context.Context, orgID uint) ([]*allocation.Pool, error) {
	return r.listWhere(ctx, "org_id = ?", orgID)
}

// ListActiveByOrg retrieves the organization's active pools, oldest first
func (r *SeatPoolRepositoryImpl) ListActiveByOrg(ctx context.Context, orgID uint) ([]*allocation.Pool, error) {
	return r.listWhere(ctx, "org_id = ? AND status = ?", orgID, allocation.PoolStatusActive.String())
}

// ListOrgIDsWithActivePools returns organization IDs owning active pools
func (r *SeatPoolRepositoryImpl) ListOrgIDsWithActivePools(ctx context.Context) ([]uint, error) {
	var orgIDs []uint
	if err := r.db.WithContext(ctx).
		Model(&models.SeatPoolModel{}).
		Where("status = ?", allocation.PoolStatusActive.String()).
		Distinct().
		Order("org_id ASC").
		Pluck("org_id", &orgIDs).Error; err != nil {
		r.logger.Errorw("failed to list organizations with active pools", "error", err)
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgIDs, nil
}

// ListDueForExpiry returns active pools whose expiry has passed
func (r *SeatPoolRepositoryImpl) ListDueForExpiry(ctx context.Context, now time.Time) ([]*allocation.Pool, error) {
	return r.listWhere(ctx, "status = ? AND expires_at IS NOT NULL AND expires_at < ?",
		allocation.PoolStatusActive.String(), now)
}

// ListExpiringWithin returns active pools expiring in (now, until]
func (r *SeatPoolRepositoryImpl) ListExpiringWithin(ctx context.Context, now, until time.Time) ([]*allocation.Pool, error) {
	return r.listWhere(ctx, "status = ? AND expires_at IS NOT NULL AND expires_at > ? AND expires_at <= ?",
		allocation.PoolStatusActive.String(), now, until)
}

func (r *SeatPoolRepositoryImpl) listWhere(ctx context.Context, query string, args ...any) ([]*allocation.Pool, error) {
	var poolModels []models.SeatPoolModel
	if err := r.db.WithContext(ctx).
		Where(query, args...).
		Order("id ASC").
		Find(&poolModels).Error; err != nil {
		r.logger.Errorw("failed to list seat pools", "error", err)
		return nil, fmt.Errorf("failed to list seat pools: %w", err)
	}

	pools := make([]*allocation.Pool, 0, len(poolModels))
	for i := range poolModels {
		pool, err := r.toDomain(&poolModels[i])
		if err != nil {
			return nil, err
		}
		pools = append(pools, pool)
	}
	return pools, nil
}

// ConsumeSeat atomically increments seats_used while capacity remains
func (r *SeatPoolRepositoryImpl) ConsumeSeat(ctx context.Context, poolID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SeatPoolModel{}).
		Where("id = ? AND status = ? AND seats_used < seats_total",
			poolID, allocation.PoolStatusActive.String()).
		UpdateColumn("seats_used", gorm.Expr("seats_used + 1"))
	if result.Error != nil {
		r.logger.Errorw("failed to consume seat", "pool_id", poolID, "error", result.Error)
		return false, fmt.Errorf("failed to consume seat: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// ReleaseSeat atomically decrements seats_used with a floor of zero
func (r *SeatPoolRepositoryImpl) ReleaseSeat(ctx context.Context, poolID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SeatPoolModel{}).
		Where("id = ? AND seats_used > 0", poolID).
		UpdateColumn("seats_used", gorm.Expr("seats_used - 1"))
	if result.Error != nil {
		r.logger.Errorw("failed to release seat", "pool_id", poolID, "error", result.Error)
		return false, fmt.Errorf("failed to release seat: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// OverrideSeatsUsed corrects the counter only if it still holds the expected
// value, so a concurrent consume or release wins over the correction.
func (r *SeatPoolRepositoryImpl) OverrideSeatsUsed(ctx context.Context, poolID uint, expected, observed int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SeatPoolModel{}).
		Where("id = ? AND seats_used = ? AND seats_total >= ?", poolID, expected, observed).
		UpdateColumn("seats_used", observed)
	if result.Error != nil {
		r.logger.Errorw("failed to override seats_used",
			"pool_id", poolID,
			"expected", expected,
			"observed", observed,
			"error", result.Error)
		return false, fmt.Errorf("failed to override seats_used: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// AdjustSeatsTotal sets seats_total only while current consumption still fits
// under the new value, so a consume racing the shrink cannot strand seats_used
// above capacity.
func (r *SeatPoolRepositoryImpl) AdjustSeatsTotal(ctx context.Context, poolID uint, newTotal int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SeatPoolModel{}).
		Where("id = ? AND seats_used <= ?", poolID, newTotal).
		UpdateColumn("seats_total", newTotal)
	if result.Error != nil {
		r.logger.Errorw("failed to adjust seats_total",
			"pool_id", poolID,
			"new_total", newTotal,
			"error", result.Error)
		return false, fmt.Errorf("failed to adjust seats_total: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// MarkExpired transitions an active pool to expired exactly once
func (r *SeatPoolRepositoryImpl) MarkExpired(ctx context.Context, poolID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.SeatPoolModel{}).
		Where("id = ? AND status = ?", poolID, allocation.PoolStatusActive.String()).
		Updates(map[string]any{
			"status":     allocation.PoolStatusExpired.String(),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to mark pool expired", "pool_id", poolID, "error", result.Error)
		return false, fmt.Errorf("failed to mark pool expired: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *SeatPoolRepositoryImpl) toModel(pool *allocation.Pool) (*models.SeatPoolModel, error) {
	scopeIDs, err := json.Marshal(pool.ScopeIDs())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scope IDs: %w", err)
	}
	return &models.SeatPoolModel{
		ID:           pool.ID(),
		SID:          pool.SID(),
		OrgID:        pool.OrgID(),
		TeamID:       pool.TeamID(),
		ScopeType:    pool.ScopeType().String(),
		ScopeIDs:     scopeIDs,
		SeatsTotal:   pool.SeatsTotal(),
		SeatsUsed:    pool.SeatsUsed(),
		ExpiresAt:    pool.ExpiresAt(),
		AutoEnroll:   pool.AutoEnroll(),
		AllowReplace: pool.AllowReplace(),
		OrderRef:     pool.OrderRef(),
		Status:       pool.Status().String(),
		CreatedAt:    pool.CreatedAt(),
		UpdatedAt:    pool.UpdatedAt(),
		Version:      pool.Version(),
	}, nil
}

func (r *SeatPoolRepositoryImpl) toDomain(model *models.SeatPoolModel) (*allocation.Pool, error) {
	var scopeIDs []uint
	if len(model.ScopeIDs) > 0 {
		if err := json.Unmarshal(model.ScopeIDs, &scopeIDs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scope IDs for pool %d: %w", model.ID, err)
		}
	}

	pool, err := allocation.ReconstructPool(allocation.PoolReconstructParams{
		ID:           model.ID,
		SID:          model.SID,
		OrgID:        model.OrgID,
		TeamID:       model.TeamID,
		ScopeType:    allocation.ScopeType(model.ScopeType),
		ScopeIDs:     scopeIDs,
		SeatsTotal:   model.SeatsTotal,
		SeatsUsed:    model.SeatsUsed,
		ExpiresAt:    model.ExpiresAt,
		AutoEnroll:   model.AutoEnroll,
		AllowReplace: model.AllowReplace,
		OrderRef:     model.OrderRef,
		Status:       allocation.PoolStatus(model.Status),
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
		Version:      model.Version,
	})
	if err != nil {
		r.logger.Errorw("failed to reconstruct seat pool", "pool_id", model.ID, "error", err)
		return nil, fmt.Errorf("failed to reconstruct seat pool: %w", err)
	}
	return pool, nil
}

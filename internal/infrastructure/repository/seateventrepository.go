package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"seatpool/internal/domain/allocation"
	"seatpool/internal/infrastructure/persistence/models"
	"seatpool/internal/shared/logger"
)

// SeatEventRepositoryImpl implements the allocation.EventRepository interface.
// The ledger table is append-only; there is no update path.
type SeatEventRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewSeatEventRepository creates a new seat event repository instance
func NewSeatEventRepository(db *gorm.DB, logger logger.Interface) allocation.EventRepository {
	return &SeatEventRepositoryImpl{
		db:     db,
		logger: logger,
	}
}

// Append writes one ledger entry
func (r *SeatEventRepositoryImpl) Append(ctx context.Context, event *allocation.SeatEvent) error {
	var metaJSON []byte
	if event.Meta() != nil {
		var err error
		metaJSON, err = json.Marshal(event.Meta())
		if err != nil {
			return fmt.Errorf("failed to marshal event meta: %w", err)
		}
	}

	model := &models.SeatEventModel{
		PoolID:    event.PoolID(),
		UserID:    event.UserID(),
		EventType: event.Type().String(),
		Source:    event.Source().String(),
		Meta:      metaJSON,
		CreatedAt: event.CreatedAt(),
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		r.logger.Errorw("failed to append seat event",
			"pool_id", event.PoolID(),
			"event_type", event.Type(),
			"error", err)
		return fmt.Errorf("failed to append seat event: %w", err)
	}

	if err := event.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set event ID: %w", err)
	}
	return nil
}

// QueryByPool returns a pool's ledger entries, newest first
func (r *SeatEventRepositoryImpl) QueryByPool(ctx context.Context, poolID uint, limit int) ([]*allocation.SeatEvent, error) {
	return r.query(ctx, limit, "pool_id = ?", poolID)
}

// QueryByType returns a pool's ledger entries of one type, newest first
func (r *SeatEventRepositoryImpl) QueryByType(ctx context.Context, poolID uint, eventType allocation.EventType, limit int) ([]*allocation.SeatEvent, error) {
	return r.query(ctx, limit, "pool_id = ? AND event_type = ?", poolID, eventType.String())
}

// QueryRecent returns the most recent entries across an organization's pools
func (r *SeatEventRepositoryImpl) QueryRecent(ctx context.Context, orgID uint, limit int) ([]*allocation.SeatEvent, error) {
	var eventModels []models.SeatEventModel
	if err := r.db.WithContext(ctx).
		Where("pool_id IN (?)", r.db.Model(&models.SeatPoolModel{}).Select("id").Where("org_id = ?", orgID)).
		Order("id DESC").
		Limit(limit).
		Find(&eventModels).Error; err != nil {
		r.logger.Errorw("failed to query recent seat events", "org_id", orgID, "error", err)
		return nil, fmt.Errorf("failed to query recent seat events: %w", err)
	}
	return r.toDomainList(eventModels)
}

// HasActiveConsumption reports whether the user currently occupies a seat in
// the pool. Consume and assign entries open a hold; release entries close it.
func (r *SeatEventRepositoryImpl) HasActiveConsumption(ctx context.Context, poolID, userID uint) (bool, error) {
	type countRow struct {
		EventType string
		N         int64
	}
	var rows []countRow
	if err := r.db.WithContext(ctx).
		Model(&models.SeatEventModel{}).
		Select("event_type, COUNT(*) AS n").
		Where("pool_id = ? AND user_id = ? AND event_type IN (?, ?, ?)",
			poolID, userID,
			allocation.EventTypeConsume.String(),
			allocation.EventTypeAssign.String(),
			allocation.EventTypeRelease.String()).
		Group("event_type").
		Scan(&rows).Error; err != nil {
		r.logger.Errorw("failed to count seat holds",
			"pool_id", poolID,
			"user_id", userID,
			"error", err)
		return false, fmt.Errorf("failed to count seat holds: %w", err)
	}

	holds := int64(0)
	for _, row := range rows {
		if row.EventType == allocation.EventTypeRelease.String() {
			holds -= row.N
		} else {
			holds += row.N
		}
	}
	return holds > 0, nil
}

// DeleteByPool removes all ledger entries of a pool. Cascade of an
// administrative pool deletion only.
func (r *SeatEventRepositoryImpl) DeleteByPool(ctx context.Context, poolID uint) error {
	result := r.db.WithContext(ctx).
		Where("pool_id = ?", poolID).
		Delete(&models.SeatEventModel{})
	if result.Error != nil {
		r.logger.Errorw("failed to delete pool ledger", "pool_id", poolID, "error", result.Error)
		return fmt.Errorf("failed to delete pool ledger: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		r.logger.Infow("pool ledger deleted", "pool_id", poolID, "entries", result.RowsAffected)
	}
	return nil
}

func (r *SeatEventRepositoryImpl) query(ctx context.Context, limit int, where string, args ...any) ([]*allocation.SeatEvent, error) {
	var eventModels []models.SeatEventModel
	q := r.db.WithContext(ctx).Where(where, args...).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&eventModels).Error; err != nil {
		r.logger.Errorw("failed to query seat events", "error", err)
		return nil, fmt.Errorf("failed to query seat events: %w", err)
	}
	return r.toDomainList(eventModels)
}

func (r *SeatEventRepositoryImpl) toDomainList(eventModels []models.SeatEventModel) ([]*allocation.SeatEvent, error) {
	events := make([]*allocation.SeatEvent, 0, len(eventModels))
	for i := range eventModels {
		event, err := r.toDomain(&eventModels[i])
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func (r *SeatEventRepositoryImpl) toDomain(model *models.SeatEventModel) (*allocation.SeatEvent, error) {
	eventType := allocation.EventType(model.EventType)
	meta, err := unmarshalMeta(eventType, model.Meta)
	if err != nil {
		r.logger.Errorw("failed to decode event meta", "event_id", model.ID, "error", err)
		return nil, err
	}

	event, err := allocation.ReconstructSeatEvent(
		model.ID,
		model.PoolID,
		model.UserID,
		eventType,
		allocation.EventSource(model.Source),
		meta,
		model.CreatedAt,
	)
	if err != nil {
		r.logger.Errorw("failed to reconstruct seat event", "event_id", model.ID, "error", err)
		return nil, fmt.Errorf("failed to reconstruct seat event: %w", err)
	}
	return event, nil
}

// unmarshalMeta decodes the JSON payload into the typed meta struct matching
// the event type. Empty payloads reconstruct with a nil meta.
func unmarshalMeta(eventType allocation.EventType, raw []byte) (allocation.Meta, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var meta allocation.Meta
	var err error
	switch eventType {
	case allocation.EventTypeConsume:
		var m allocation.ConsumeMeta
		err = json.Unmarshal(raw, &m)
		meta = m
	case allocation.EventTypeRelease:
		var m allocation.ReleaseMeta
		err = json.Unmarshal(raw, &m)
		meta = m
	case allocation.EventTypeAdjust:
		var m allocation.AdjustMeta
		err = json.Unmarshal(raw, &m)
		meta = m
	case allocation.EventTypeExpire:
		var m allocation.ExpireMeta
		err = json.Unmarshal(raw, &m)
		meta = m
	case allocation.EventTypeInvite:
		var m allocation.InviteMeta
		err = json.Unmarshal(raw, &m)
		meta = m
	case allocation.EventTypeAssign:
		var m allocation.AssignMeta
		err = json.Unmarshal(raw, &m)
		meta = m
	default:
		return nil, fmt.Errorf("unknown event type %q", eventType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s meta: %w", eventType, err)
	}
	return meta, nil
}

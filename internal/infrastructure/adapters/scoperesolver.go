package adapters

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"seatpool/internal/domain/allocation"
	"seatpool/internal/infrastructure/persistence/models"
	"seatpool/internal/shared/logger"
)

// CatalogScopeResolver implements allocation.ScopeResolver against the
// catalog tables. Resolution is computed fresh on every call; category and
// bundle membership changes over time and must never be cached on the pool.
type CatalogScopeResolver struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewCatalogScopeResolver creates a new CatalogScopeResolver instance
func NewCatalogScopeResolver(db *gorm.DB, logger logger.Interface) allocation.ScopeResolver {
	return &CatalogScopeResolver{
		db:     db,
		logger: logger,
	}
}

// Resolve expands the scope descriptor into concrete item IDs, deduplicated
// and ascending. An empty result is valid and means nothing to grant.
func (r *CatalogScopeResolver) Resolve(ctx context.Context, scopeType allocation.ScopeType, scopeIDs []uint) ([]uint, error) {
	if len(scopeIDs) == 0 {
		return nil, nil
	}

	var itemIDs []uint
	var err error
	switch scopeType {
	case allocation.ScopeTypeItem:
		itemIDs, err = r.resolveItems(ctx, scopeIDs)
	case allocation.ScopeTypeCategory:
		itemIDs, err = r.resolveCategories(ctx, scopeIDs)
	case allocation.ScopeTypeBundle:
		itemIDs, err = r.resolveBundles(ctx, scopeIDs)
	default:
		return nil, fmt.Errorf("unknown scope type: %s", scopeType)
	}
	if err != nil {
		return nil, err
	}

	return dedupeSorted(itemIDs), nil
}

// resolveItems keeps only item IDs that still exist in the catalog.
func (r *CatalogScopeResolver) resolveItems(ctx context.Context, itemIDs []uint) ([]uint, error) {
	var existing []uint
	if err := r.db.WithContext(ctx).
		Model(&models.CatalogItemModel{}).
		Where("id IN ?", itemIDs).
		Pluck("id", &existing).Error; err != nil {
		r.logger.Errorw("failed to resolve catalog items", "error", err)
		return nil, fmt.Errorf("failed to resolve catalog items: %w", err)
	}
	return existing, nil
}

func (r *CatalogScopeResolver) resolveCategories(ctx context.Context, categoryIDs []uint) ([]uint, error) {
	var itemIDs []uint
	if err := r.db.WithContext(ctx).
		Model(&models.CatalogItemModel{}).
		Where("category_id IN ?", categoryIDs).
		Pluck("id", &itemIDs).Error; err != nil {
		r.logger.Errorw("failed to resolve catalog categories", "error", err)
		return nil, fmt.Errorf("failed to resolve catalog categories: %w", err)
	}
	return itemIDs, nil
}

func (r *CatalogScopeResolver) resolveBundles(ctx context.Context, bundleIDs []uint) ([]uint, error) {
	var itemIDs []uint
	if err := r.db.WithContext(ctx).
		Model(&models.CatalogBundleItemModel{}).
		Where("bundle_id IN ?", bundleIDs).
		Pluck("item_id", &itemIDs).Error; err != nil {
		r.logger.Errorw("failed to resolve catalog bundles", "error", err)
		return nil, fmt.Errorf("failed to resolve catalog bundles: %w", err)
	}
	return itemIDs, nil
}

func dedupeSorted(ids []uint) []uint {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

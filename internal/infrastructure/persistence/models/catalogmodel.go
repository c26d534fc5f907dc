package models

import (
	"time"

	"seatpool/internal/shared/constants"
)

// CatalogItemModel is the minimal catalog projection the scope resolver
// needs: items and the category each belongs to.
type CatalogItemModel struct {
	ID         uint  `gorm:"primarykey"`
	CategoryID *uint `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName specifies the table name for GORM
func (CatalogItemModel) TableName() string {
	return constants.TableCatalogItems
}

// CatalogBundleItemModel maps bundles to their member items.
type CatalogBundleItemModel struct {
	ID        uint `gorm:"primarykey"`
	BundleID  uint `gorm:"not null;uniqueIndex:idx_bundle_item,priority:1"`
	ItemID    uint `gorm:"not null;uniqueIndex:idx_bundle_item,priority:2"`
	CreatedAt time.Time
}

// TableName specifies the table name for GORM
func (CatalogBundleItemModel) TableName() string {
	return constants.TableCatalogBundleItems
}

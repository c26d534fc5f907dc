package migration

import (
	"seatpool/internal/infrastructure/persistence/models"
)

// AutoMigrateModels lists every model the schema owns, in dependency order.
func AutoMigrateModels() []interface{} {
	return []interface{}{
		&models.SeatPoolModel{},
		&models.SeatEventModel{},
		&models.OrgMemberModel{},
		&models.CatalogItemModel{},
		&models.CatalogBundleItemModel{},
		&models.EnrollmentModel{},
	}
}

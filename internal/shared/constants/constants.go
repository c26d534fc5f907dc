package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// Default pagination
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// Database table names
	TableSeatPools          = "seat_pools"
	TableSeatEvents         = "seat_events"
	TableOrgMembers         = "org_members"
	TableCatalogItems       = "catalog_items"
	TableCatalogBundleItems = "catalog_bundle_items"
	TableEnrollments        = "enrollments"
)

package tenant

import "gorm.io/gorm"

// Scope filters a query to one tenant. Tenant id is a partition key only;
// correctness boundaries (locking) are scope-level, never tenant-level.
func Scope(tenantID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

package employee

import (
	"context"

	"leaveledger/internal/tenant"

	"gorm.io/gorm"
)

//go:generate mockgen -source=employee_repo.go -destination=mock/employee_repo_mock.go -package=mock
type Repository interface {
	ListTenantIDs(ctx context.Context) ([]string, error)
	ListWithPolicyByTenant(ctx context.Context, tenantID string) ([]Employee, error)
	FindByIDAndTenant(ctx context.Context, tenantID, id string) (*Employee, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListTenantIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&Employee{}).
		Distinct("tenant_id::text").
		Pluck("tenant_id", &ids).Error
	return ids, err
}

// ListWithPolicyByTenant returns employees that have a leave policy assigned.
// Employees without a policy never participate in crediting.
func (r *repository) ListWithPolicyByTenant(ctx context.Context, tenantID string) ([]Employee, error) {
	var employees []Employee
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("leave_policy_id IS NOT NULL").
		Order("created_at ASC").
		Find(&employees).Error
	return employees, err
}

func (r *repository) FindByIDAndTenant(ctx context.Context, tenantID, id string) (*Employee, error) {
	var e Employee
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		First(&e, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

package leavetype

import (
	"context"
	"time"

	"leaveledger/internal/tenant"

	"gorm.io/gorm"
)

//go:generate mockgen -source=leavetype_repo.go -destination=mock/leavetype_repo_mock.go -package=mock
type Repository interface {
	FindByIDAndTenant(ctx context.Context, tenantID, id string) (*LeaveType, error)
	FindPolicyByIDAndTenant(ctx context.Context, tenantID, id string) (*LeavePolicy, error)
	// ActiveMappingsForPolicy returns live mappings (active, not soft-deleted)
	// ordered for display, with the leave type preloaded.
	ActiveMappingsForPolicy(ctx context.Context, tenantID, policyID string) ([]LeavePolicyMapping, error)
	DeactivateMapping(ctx context.Context, tenantID, mappingID string) error
	RestoreMapping(ctx context.Context, tenantID, mappingID string) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByIDAndTenant(ctx context.Context, tenantID, id string) (*LeaveType, error) {
	var lt LeaveType
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		First(&lt, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &lt, nil
}

func (r *repository) FindPolicyByIDAndTenant(ctx context.Context, tenantID, id string) (*LeavePolicy, error) {
	var p LeavePolicy
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		First(&p, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) ActiveMappingsForPolicy(ctx context.Context, tenantID, policyID string) ([]LeavePolicyMapping, error) {
	var mappings []LeavePolicyMapping
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Where("leave_policy_id = ?", policyID).
		Where("is_active = ?", true).
		Preload("LeaveType").
		Order("display_order ASC").
		Find(&mappings).Error
	return mappings, err
}

// DeactivateMapping soft-deletes the mapping. The row stays behind the
// deleted_at filter so history and restoration keep working.
func (r *repository) DeactivateMapping(ctx context.Context, tenantID, mappingID string) error {
	return r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		Delete(&LeavePolicyMapping{}, "id = ?", mappingID).Error
}

func (r *repository) RestoreMapping(ctx context.Context, tenantID, mappingID string) error {
	return r.db.WithContext(ctx).
		Unscoped().
		Model(&LeavePolicyMapping{}).
		Where("tenant_id = ?", tenantID).
		Where("id = ?", mappingID).
		Updates(map[string]any{"deleted_at": nil, "updated_at": time.Now().UTC()}).Error
}

package ledger

import (
	"context"
	"errors"

	"leaveledger/internal/employee"
	"leaveledger/internal/leavetype"

	"gorm.io/gorm"
)

type finder struct {
	employees employee.Repository
	config    leavetype.Repository
}

// NewEntryFinder adapts the read models to the processor's existence checks.
func NewEntryFinder(employees employee.Repository, config leavetype.Repository) EntryFinder {
	return &finder{employees: employees, config: config}
}

func (f *finder) EmployeeExists(ctx context.Context, tenantID, employeeID string) (bool, error) {
	_, err := f.employees.FindByIDAndTenant(ctx, tenantID, employeeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (f *finder) LeaveTypeExists(ctx context.Context, tenantID, leaveTypeID string) (bool, error) {
	_, err := f.config.FindByIDAndTenant(ctx, tenantID, leaveTypeID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

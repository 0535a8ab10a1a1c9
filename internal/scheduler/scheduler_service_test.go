package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"leaveledger/internal/employee"
	"leaveledger/internal/ledger"
	ledgererrors "leaveledger/internal/ledger/errors"
	"leaveledger/internal/leavetype"
	"leaveledger/internal/scheduler"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type fakeEmployeeRepository struct {
	listTenantIDsFn          func(ctx context.Context) ([]string, error)
	listWithPolicyByTenantFn func(ctx context.Context, tenantID string) ([]employee.Employee, error)
	findByIDAndTenantFn      func(ctx context.Context, tenantID, id string) (*employee.Employee, error)
}

func (f *fakeEmployeeRepository) ListTenantIDs(ctx context.Context) ([]string, error) {
	if f.listTenantIDsFn != nil {
		return f.listTenantIDsFn(ctx)
	}
	return nil, nil
}

func (f *fakeEmployeeRepository) ListWithPolicyByTenant(ctx context.Context, tenantID string) ([]employee.Employee, error) {
	if f.listWithPolicyByTenantFn != nil {
		return f.listWithPolicyByTenantFn(ctx, tenantID)
	}
	return nil, nil
}

func (f *fakeEmployeeRepository) FindByIDAndTenant(ctx context.Context, tenantID, id string) (*employee.Employee, error) {
	if f.findByIDAndTenantFn != nil {
		return f.findByIDAndTenantFn(ctx, tenantID, id)
	}
	return nil, nil
}

type fakeConfigRepository struct {
	activeMappingsForPolicyFn func(ctx context.Context, tenantID, policyID string) ([]leavetype.LeavePolicyMapping, error)
}

func (f *fakeConfigRepository) FindByIDAndTenant(ctx context.Context, tenantID, id string) (*leavetype.LeaveType, error) {
	return nil, nil
}

func (f *fakeConfigRepository) FindPolicyByIDAndTenant(ctx context.Context, tenantID, id string) (*leavetype.LeavePolicy, error) {
	return nil, nil
}

func (f *fakeConfigRepository) ActiveMappingsForPolicy(ctx context.Context, tenantID, policyID string) ([]leavetype.LeavePolicyMapping, error) {
	if f.activeMappingsForPolicyFn != nil {
		return f.activeMappingsForPolicyFn(ctx, tenantID, policyID)
	}
	return nil, nil
}

func (f *fakeConfigRepository) DeactivateMapping(ctx context.Context, tenantID, mappingID string) error {
	return nil
}

func (f *fakeConfigRepository) RestoreMapping(ctx context.Context, tenantID, mappingID string) error {
	return nil
}

type fakeLedgerService struct {
	autoCreditFn func(ctx context.Context, in ledger.AutoCreditInput) (*ledger.TransactionResponse, error)
}

func (f *fakeLedgerService) Credit(ctx context.Context, tenantID, actorID string, req ledger.TransactionRequest) (*ledger.TransactionResponse, error) {
	return nil, nil
}

func (f *fakeLedgerService) Debit(ctx context.Context, tenantID, actorID string, req ledger.TransactionRequest) (*ledger.TransactionResponse, error) {
	return nil, nil
}

func (f *fakeLedgerService) Post(ctx context.Context, tenantID, actorID string, req ledger.PostRequest) (*ledger.TransactionResponse, error) {
	return nil, nil
}

func (f *fakeLedgerService) Reverse(ctx context.Context, tenantID, actorID, originalID string) (*ledger.TransactionResponse, error) {
	return nil, nil
}

func (f *fakeLedgerService) AutoCredit(ctx context.Context, in ledger.AutoCreditInput) (*ledger.TransactionResponse, error) {
	if f.autoCreditFn != nil {
		return f.autoCreditFn(ctx, in)
	}
	return &ledger.TransactionResponse{}, nil
}

type schedulerFixture struct {
	tenantID  uuid.UUID
	employees *fakeEmployeeRepository
	config    *fakeConfigRepository
	ledgerSvc *fakeLedgerService
	service   scheduler.Service
}

func setupSchedulerTest(t *testing.T, mappings []leavetype.LeavePolicyMapping) *schedulerFixture {
	t.Helper()

	tenantID := uuid.New()

	employees := &fakeEmployeeRepository{
		listTenantIDsFn: func(ctx context.Context) ([]string, error) {
			return []string{tenantID.String()}, nil
		},
	}
	config := &fakeConfigRepository{
		activeMappingsForPolicyFn: func(ctx context.Context, tid, pid string) ([]leavetype.LeavePolicyMapping, error) {
			return mappings, nil
		},
	}
	ledgerSvc := &fakeLedgerService{}

	return &schedulerFixture{
		tenantID:  tenantID,
		employees: employees,
		config:    config,
		ledgerSvc: ledgerSvc,
		service:   scheduler.NewService(employees, config, ledgerSvc),
	}
}

func monthlyMapping(lt *leavetype.LeaveType) []leavetype.LeavePolicyMapping {
	return []leavetype.LeavePolicyMapping{
		{ID: uuid.New(), LeaveTypeID: lt.ID, IsActive: true, LeaveType: lt},
	}
}

func activeEmployee(tenantID uuid.UUID) employee.Employee {
	policyID := uuid.New()
	return employee.Employee{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Status:        employee.StatusActive,
		Gender:        employee.GenderFemale,
		DateOfJoining: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		LeavePolicyID: &policyID,
	}
}

func testLeaveType() *leavetype.LeaveType {
	return &leavetype.LeaveType{
		ID:              uuid.New(),
		Code:            "EL",
		Name:            "Earned Leave",
		CreditFrequency: leavetype.FrequencyMonthly,
		LeavesToCredit:  decimal.RequireFromString("1.5"),
		AllowedStatuses: "active,probation",
		GenderFilter:    leavetype.GenderFilterAll,
		CycleStartMonth: 1,
		CycleEndMonth:   12,
	}
}

func TestSchedulerService_RunCreditCycle(t *testing.T) {
	ctx := context.Background()
	aug1 := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	monthlyOnly := []string{leavetype.FrequencyMonthly}

	t.Run("credits due mapping", func(t *testing.T) {
		lt := testLeaveType()
		fx := setupSchedulerTest(t, monthlyMapping(lt))
		emp := activeEmployee(fx.tenantID)
		fx.employees.listWithPolicyByTenantFn = func(ctx context.Context, tid string) ([]employee.Employee, error) {
			return []employee.Employee{emp}, nil
		}

		var got *ledger.AutoCreditInput
		fx.ledgerSvc.autoCreditFn = func(ctx context.Context, in ledger.AutoCreditInput) (*ledger.TransactionResponse, error) {
			got = &in
			return &ledger.TransactionResponse{}, nil
		}

		summary, err := fx.service.RunCreditCycle(ctx, aug1, monthlyOnly)

		assert.NoError(t, err)
		assert.Equal(t, 1, summary.TenantsProcessed)
		assert.Equal(t, 1, summary.TransactionsCreated)
		assert.NotNil(t, got)
		assert.Equal(t, emp.ID, got.EmployeeID)
		assert.Equal(t, lt.ID, got.LeaveTypeID)
		assert.Equal(t, 2026, got.CycleYear)
		assert.Equal(t, "1.5", got.Amount.String())
		assert.Equal(t, leavetype.FrequencyMonthly, got.Frequency)
		assert.Equal(t, uuid.Nil, got.ActorID)
	})

	t.Run("second run in the bucket is a no-op", func(t *testing.T) {
		lt := testLeaveType()
		fx := setupSchedulerTest(t, monthlyMapping(lt))
		emp := activeEmployee(fx.tenantID)
		fx.employees.listWithPolicyByTenantFn = func(ctx context.Context, tid string) ([]employee.Employee, error) {
			return []employee.Employee{emp}, nil
		}
		fx.ledgerSvc.autoCreditFn = func(ctx context.Context, in ledger.AutoCreditInput) (*ledger.TransactionResponse, error) {
			return nil, ledgererrors.ErrAlreadyCredited
		}

		summary, err := fx.service.RunCreditCycle(ctx, aug1, monthlyOnly)

		assert.NoError(t, err)
		assert.Equal(t, 1, summary.SkippedDuplicate)
		assert.Zero(t, summary.TransactionsCreated)
		assert.Zero(t, summary.Failures)
	})

	t.Run("rounding applies before crediting", func(t *testing.T) {
		lt := testLeaveType()
		lt.RoundCredits = true
		fx := setupSchedulerTest(t, monthlyMapping(lt))
		emp := activeEmployee(fx.tenantID)
		fx.employees.listWithPolicyByTenantFn = func(ctx context.Context, tid string) ([]employee.Employee, error) {
			return []employee.Employee{emp}, nil
		}

		var credited decimal.Decimal
		fx.ledgerSvc.autoCreditFn = func(ctx context.Context, in ledger.AutoCreditInput) (*ledger.TransactionResponse, error) {
			credited = in.Amount
			return &ledger.TransactionResponse{}, nil
		}

		_, err := fx.service.RunCreditCycle(ctx, aug1, monthlyOnly)

		assert.NoError(t, err)
		assert.Equal(t, "2", credited.String())
	})

	t.Run("zero grant still writes a cycle marker", func(t *testing.T) {
		lt := testLeaveType()
		lt.LeavesToCredit = decimal.Zero
		fx := setupSchedulerTest(t, monthlyMapping(lt))
		emp := activeEmployee(fx.tenantID)
		fx.employees.listWithPolicyByTenantFn = func(ctx context.Context, tid string) ([]employee.Employee, error) {
			return []employee.Employee{emp}, nil
		}

		var got *ledger.AutoCreditInput
		fx.ledgerSvc.autoCreditFn = func(ctx context.Context, in ledger.AutoCreditInput) (*ledger.TransactionResponse, error) {
			got = &in
			return &ledger.TransactionResponse{}, nil
		}

		summary, err := fx.service.RunCreditCycle(ctx, aug1, monthlyOnly)

		assert.NoError(t, err)
		assert.Equal(t, 1, summary.TransactionsCreated)
		assert.NotNil(t, got)
		assert.True(t, got.Amount.IsZero())
	})

	t.Run("ineligible employee is skipped", func(t *testing.T) {
		lt := testLeaveType()
		fx := setupSchedulerTest(t, monthlyMapping(lt))
		emp := activeEmployee(fx.tenantID)
		emp.Status = employee.StatusTerminated
		fx.employees.listWithPolicyByTenantFn = func(ctx context.Context, tid string) ([]employee.Employee, error) {
			return []employee.Employee{emp}, nil
		}

		called := false
		fx.ledgerSvc.autoCreditFn = func(ctx context.Context, in ledger.AutoCreditInput) (*ledger.TransactionResponse, error) {
			called = true
			return &ledger.TransactionResponse{}, nil
		}

		summary, err := fx.service.RunCreditCycle(ctx, aug1, monthlyOnly)

		assert.NoError(t, err)
		assert.False(t, called)
		assert.Equal(t, 1, summary.SkippedIneligible)
	})

	t.Run("before the configured crediting day", func(t *testing.T) {
		day := 20
		lt := testLeaveType()
		lt.CreditDayOfMonth = &day
		fx := setupSchedulerTest(t, monthlyMapping(lt))
		emp := activeEmployee(fx.tenantID)
		fx.employees.listWithPolicyByTenantFn = func(ctx context.Context, tid string) ([]employee.Employee, error) {
			return []employee.Employee{emp}, nil
		}

		called := false
		fx.ledgerSvc.autoCreditFn = func(ctx context.Context, in ledger.AutoCreditInput) (*ledger.TransactionResponse, error) {
			called = true
			return &ledger.TransactionResponse{}, nil
		}

		aug15 := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)
		_, err := fx.service.RunCreditCycle(ctx, aug15, monthlyOnly)

		assert.NoError(t, err)
		assert.False(t, called)
	})

	t.Run("sweep after the crediting day catches up the bucket", func(t *testing.T) {
		lt := testLeaveType()
		fx := setupSchedulerTest(t, monthlyMapping(lt))
		emp := activeEmployee(fx.tenantID)
		fx.employees.listWithPolicyByTenantFn = func(ctx context.Context, tid string) ([]employee.Employee, error) {
			return []employee.Employee{emp}, nil
		}

		called := false
		fx.ledgerSvc.autoCreditFn = func(ctx context.Context, in ledger.AutoCreditInput) (*ledger.TransactionResponse, error) {
			called = true
			return &ledger.TransactionResponse{}, nil
		}

		// Credit day is the 1st; the worker was down and sweeps on the 2nd.
		aug2 := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
		summary, err := fx.service.RunCreditCycle(ctx, aug2, monthlyOnly)

		assert.NoError(t, err)
		assert.True(t, called)
		assert.Equal(t, 1, summary.TransactionsCreated)
	})

	t.Run("configured day clamps to short months", func(t *testing.T) {
		day := 31
		lt := testLeaveType()
		lt.CreditDayOfMonth = &day
		fx := setupSchedulerTest(t, monthlyMapping(lt))
		emp := activeEmployee(fx.tenantID)
		fx.employees.listWithPolicyByTenantFn = func(ctx context.Context, tid string) ([]employee.Employee, error) {
			return []employee.Employee{emp}, nil
		}

		called := false
		fx.ledgerSvc.autoCreditFn = func(ctx context.Context, in ledger.AutoCreditInput) (*ledger.TransactionResponse, error) {
			called = true
			return &ledger.TransactionResponse{}, nil
		}

		feb28 := time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)
		_, err := fx.service.RunCreditCycle(ctx, feb28, monthlyOnly)

		assert.NoError(t, err)
		assert.True(t, called)
	})

	t.Run("quarterly only due on quarter start months", func(t *testing.T) {
		lt := testLeaveType()
		lt.CreditFrequency = leavetype.FrequencyQuarterly
		fx := setupSchedulerTest(t, monthlyMapping(lt))
		emp := activeEmployee(fx.tenantID)
		fx.employees.listWithPolicyByTenantFn = func(ctx context.Context, tid string) ([]employee.Employee, error) {
			return []employee.Employee{emp}, nil
		}

		calls := 0
		fx.ledgerSvc.autoCreditFn = func(ctx context.Context, in ledger.AutoCreditInput) (*ledger.TransactionResponse, error) {
			calls++
			return &ledger.TransactionResponse{}, nil
		}

		quarterly := []string{leavetype.FrequencyQuarterly}
		_, err := fx.service.RunCreditCycle(ctx, aug1, quarterly)
		assert.NoError(t, err)
		assert.Zero(t, calls)

		oct1 := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
		_, err = fx.service.RunCreditCycle(ctx, oct1, quarterly)
		assert.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("failure for one employee does not stop the run", func(t *testing.T) {
		lt := testLeaveType()
		fx := setupSchedulerTest(t, monthlyMapping(lt))
		first := activeEmployee(fx.tenantID)
		second := activeEmployee(fx.tenantID)
		fx.employees.listWithPolicyByTenantFn = func(ctx context.Context, tid string) ([]employee.Employee, error) {
			return []employee.Employee{first, second}, nil
		}

		fx.ledgerSvc.autoCreditFn = func(ctx context.Context, in ledger.AutoCreditInput) (*ledger.TransactionResponse, error) {
			if in.EmployeeID == first.ID {
				return nil, errors.New("db down")
			}
			return &ledger.TransactionResponse{}, nil
		}

		summary, err := fx.service.RunCreditCycle(ctx, aug1, monthlyOnly)

		assert.NoError(t, err)
		assert.Equal(t, 1, summary.Failures)
		assert.Equal(t, 1, summary.TransactionsCreated)
		assert.Equal(t, 1, summary.TenantsProcessed)
	})
}

package ledger_test

import (
	"context"
	"testing"
	"time"

	"leaveledger/internal/employee"
	"leaveledger/internal/ledger"
	ledgererrors "leaveledger/internal/ledger/errors"
	"leaveledger/internal/leavetype"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

type fakeEmployeeReader struct {
	findFn func(ctx context.Context, tenantID, id string) (*employee.Employee, error)
}

func (f *fakeEmployeeReader) ListTenantIDs(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeEmployeeReader) ListWithPolicyByTenant(ctx context.Context, tenantID string) ([]employee.Employee, error) {
	return nil, nil
}
func (f *fakeEmployeeReader) FindByIDAndTenant(ctx context.Context, tenantID, id string) (*employee.Employee, error) {
	if f.findFn != nil {
		return f.findFn(ctx, tenantID, id)
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeConfigReader struct {
	findLeaveTypeFn  func(ctx context.Context, tenantID, id string) (*leavetype.LeaveType, error)
	activeMappingsFn func(ctx context.Context, tenantID, policyID string) ([]leavetype.LeavePolicyMapping, error)
}

func (f *fakeConfigReader) FindByIDAndTenant(ctx context.Context, tenantID, id string) (*leavetype.LeaveType, error) {
	if f.findLeaveTypeFn != nil {
		return f.findLeaveTypeFn(ctx, tenantID, id)
	}
	return &leavetype.LeaveType{}, nil
}
func (f *fakeConfigReader) FindPolicyByIDAndTenant(ctx context.Context, tenantID, id string) (*leavetype.LeavePolicy, error) {
	return nil, nil
}
func (f *fakeConfigReader) ActiveMappingsForPolicy(ctx context.Context, tenantID, policyID string) ([]leavetype.LeavePolicyMapping, error) {
	if f.activeMappingsFn != nil {
		return f.activeMappingsFn(ctx, tenantID, policyID)
	}
	return nil, nil
}
func (f *fakeConfigReader) DeactivateMapping(ctx context.Context, tenantID, mappingID string) error {
	return nil
}
func (f *fakeConfigReader) RestoreMapping(ctx context.Context, tenantID, mappingID string) error {
	return nil
}

func TestBalanceService_GetBalance(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	employeeID := uuid.New()
	policyID := uuid.New()
	leaveTypeID := uuid.New()

	lt := &leavetype.LeaveType{
		ID:               leaveTypeID,
		Code:             "EL",
		Name:             "Earned Leave",
		IsPaid:           true,
		CreditFrequency:  leavetype.FrequencyMonthly,
		LeavesToCredit:   decimal.RequireFromString("1.5"),
		CarryForwardType: leavetype.CarryForwardKeep,
		CycleStartMonth:  1,
	}

	t.Run("success reads each scope's chain head", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		repo := &fakeLedgerRepository{
			latestInScopeFn: func(ctx context.Context, scope ledger.Scope) (*ledger.LedgerEntry, error) {
				assert.Equal(t, employeeID, scope.EmployeeID)
				assert.Equal(t, leaveTypeID, scope.LeaveTypeID)
				assert.Equal(t, 2026, scope.CycleYear)
				return entryInScope(scope, 5, ledger.TxCredit, "1.5", "7.5"), nil
			},
		}
		employees := &fakeEmployeeReader{
			findFn: func(ctx context.Context, tid, id string) (*employee.Employee, error) {
				return &employee.Employee{ID: employeeID, TenantID: tenantID, LeavePolicyID: &policyID}, nil
			},
		}
		config := &fakeConfigReader{
			activeMappingsFn: func(ctx context.Context, tid, pid string) ([]leavetype.LeavePolicyMapping, error) {
				assert.Equal(t, policyID.String(), pid)
				return []leavetype.LeavePolicyMapping{{LeaveTypeID: leaveTypeID, IsActive: true, LeaveType: lt}}, nil
			},
		}

		svc := ledger.NewBalanceService(db, repo, employees, config, nil)
		items, err := svc.GetBalance(ctx, tenantID.String(), employeeID.String(), 2026)

		assert.NoError(t, err)
		assert.Len(t, items, 1)
		assert.Equal(t, "EL", items[0].Code)
		assert.Equal(t, "7.5", items[0].AvailableBalance)
		assert.Equal(t, 2026, items[0].CycleYear)
		assert.Equal(t, leavetype.FrequencyMonthly, items[0].Rules.CreditFrequency)
	})

	t.Run("empty scope reads as zero", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		repo := &fakeLedgerRepository{}
		employees := &fakeEmployeeReader{
			findFn: func(ctx context.Context, tid, id string) (*employee.Employee, error) {
				return &employee.Employee{ID: employeeID, LeavePolicyID: &policyID}, nil
			},
		}
		config := &fakeConfigReader{
			activeMappingsFn: func(ctx context.Context, tid, pid string) ([]leavetype.LeavePolicyMapping, error) {
				return []leavetype.LeavePolicyMapping{{LeaveTypeID: leaveTypeID, IsActive: true, LeaveType: lt}}, nil
			},
		}

		svc := ledger.NewBalanceService(db, repo, employees, config, nil)
		items, err := svc.GetBalance(ctx, tenantID.String(), employeeID.String(), 2026)

		assert.NoError(t, err)
		assert.Len(t, items, 1)
		assert.Equal(t, "0", items[0].AvailableBalance)
	})

	t.Run("negative employee without policy", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		employees := &fakeEmployeeReader{
			findFn: func(ctx context.Context, tid, id string) (*employee.Employee, error) {
				return &employee.Employee{ID: employeeID}, nil
			},
		}

		svc := ledger.NewBalanceService(db, &fakeLedgerRepository{}, employees, &fakeConfigReader{}, nil)
		_, err = svc.GetBalance(ctx, tenantID.String(), employeeID.String(), 2026)

		assert.ErrorIs(t, err, ledgererrors.ErrPolicyNotAssigned)
	})

	t.Run("negative unknown employee", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		svc := ledger.NewBalanceService(db, &fakeLedgerRepository{}, &fakeEmployeeReader{}, &fakeConfigReader{}, nil)
		_, err = svc.GetBalance(ctx, tenantID.String(), employeeID.String(), 2026)

		assert.ErrorIs(t, err, ledgererrors.ErrEmployeeNotFound)
	})
}

func TestBalanceService_GetBreakdown(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	scope := ledger.Scope{
		EmployeeID:  uuid.New(),
		LeaveTypeID: uuid.New(),
		CycleYear:   2026,
	}

	t.Run("totals by class and available from chain head", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		repo := &fakeLedgerRepository{
			listByScopeFn: func(ctx context.Context, s ledger.Scope) ([]ledger.LedgerEntry, error) {
				return []ledger.LedgerEntry{
					*entryInScope(s, 1, ledger.TxCarryForward, "3", "3"),
					*entryInScope(s, 2, ledger.TxCredit, "1.5", "4.5"),
					*entryInScope(s, 3, ledger.TxDebit, "-2", "2.5"),
					*entryInScope(s, 4, ledger.TxReversal, "2", "4.5"),
					*entryInScope(s, 5, ledger.TxEncashment, "-1", "3.5"),
					*entryInScope(s, 6, ledger.TxPenalty, "-0.5", "3"),
				}, nil
			},
		}

		svc := ledger.NewBalanceService(db, repo, &fakeEmployeeReader{}, &fakeConfigReader{}, nil)
		resp, err := svc.GetBreakdown(ctx, tenantID.String(), scope.EmployeeID.String(), scope.LeaveTypeID.String(), 2026)

		assert.NoError(t, err)
		assert.Equal(t, "1.5", resp.Credited)
		assert.Equal(t, "2.5", resp.Debited)
		assert.Equal(t, "3", resp.CarriedForward)
		assert.Equal(t, "1", resp.Encashed)
		assert.Equal(t, "2", resp.Reversed)
		assert.Equal(t, "3", resp.Available)
		assert.Equal(t, 6, resp.EntryCount)
	})

	t.Run("negative unknown leave type", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		config := &fakeConfigReader{
			findLeaveTypeFn: func(ctx context.Context, tid, id string) (*leavetype.LeaveType, error) {
				return nil, gorm.ErrRecordNotFound
			},
		}

		svc := ledger.NewBalanceService(db, &fakeLedgerRepository{}, &fakeEmployeeReader{}, config, nil)
		_, err = svc.GetBreakdown(ctx, tenantID.String(), scope.EmployeeID.String(), scope.LeaveTypeID.String(), 2026)

		assert.ErrorIs(t, err, ledgererrors.ErrLeaveTypeNotFound)
	})

	t.Run("negative cycle year out of range", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		svc := ledger.NewBalanceService(db, &fakeLedgerRepository{}, &fakeEmployeeReader{}, &fakeConfigReader{}, nil)
		_, err = svc.GetBreakdown(ctx, tenantID.String(), scope.EmployeeID.String(), scope.LeaveTypeID.String(), 1999)

		assert.ErrorIs(t, err, ledgererrors.ErrInvalidCycleYear)
	})
}

func TestBalanceService_RebuildCache(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	scope := ledger.Scope{
		EmployeeID:  uuid.New(),
		LeaveTypeID: uuid.New(),
		CycleYear:   2026,
	}

	monthEntry := func(seq int64, month, day int, txType, amount, after string) ledger.LedgerEntry {
		e := entryInScope(scope, seq, txType, amount, after)
		e.TransactionDate = time.Date(2026, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		return *e
	}

	t.Run("replays the scope into monthly rows", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectCommit()

		var replaced []ledger.BalanceCache
		repo := &fakeLedgerRepository{
			listByScopeFn: func(ctx context.Context, s ledger.Scope) ([]ledger.LedgerEntry, error) {
				return []ledger.LedgerEntry{
					monthEntry(1, 1, 1, ledger.TxCredit, "1.5", "1.5"),
					monthEntry(2, 1, 20, ledger.TxDebit, "-1", "0.5"),
					monthEntry(3, 2, 1, ledger.TxCredit, "1.5", "2"),
				}, nil
			},
			replaceCacheRowsFn: func(ctx context.Context, s ledger.Scope, rows []ledger.BalanceCache) error {
				replaced = rows
				return nil
			},
		}

		svc := ledger.NewBalanceService(db, repo, &fakeEmployeeReader{}, &fakeConfigReader{}, nil)
		err = svc.RebuildCache(ctx, tenantID.String(), scope.EmployeeID.String(), scope.LeaveTypeID.String(), 2026)

		assert.NoError(t, err)
		assert.Len(t, replaced, 2)

		jan := replaced[0]
		assert.Equal(t, 1, jan.Month)
		assert.Equal(t, "0", jan.Opening.String())
		assert.Equal(t, "1.5", jan.Credited.String())
		assert.Equal(t, "1", jan.Debited.String())
		assert.Equal(t, "0.5", jan.Available.String())

		feb := replaced[1]
		assert.Equal(t, 2, feb.Month)
		assert.Equal(t, "0.5", feb.Opening.String())
		assert.Equal(t, "1.5", feb.Credited.String())
		assert.Equal(t, "0", feb.Debited.String())
		assert.Equal(t, "2", feb.Available.String())

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rows key on the scope's cycle year across calendar years", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectCommit()

		var replaced []ledger.BalanceCache
		repo := &fakeLedgerRepository{
			listByScopeFn: func(ctx context.Context, s ledger.Scope) ([]ledger.LedgerEntry, error) {
				// An April-start cycle: the 2026 chain runs into calendar 2027.
				dec := entryInScope(scope, 1, ledger.TxCredit, "1.5", "1.5")
				dec.TransactionDate = time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
				jan := entryInScope(scope, 2, ledger.TxCredit, "1.5", "3")
				jan.TransactionDate = time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
				return []ledger.LedgerEntry{*dec, *jan}, nil
			},
			replaceCacheRowsFn: func(ctx context.Context, s ledger.Scope, rows []ledger.BalanceCache) error {
				replaced = rows
				return nil
			},
		}

		svc := ledger.NewBalanceService(db, repo, &fakeEmployeeReader{}, &fakeConfigReader{}, nil)
		err = svc.RebuildCache(ctx, tenantID.String(), scope.EmployeeID.String(), scope.LeaveTypeID.String(), 2026)

		assert.NoError(t, err)
		assert.Len(t, replaced, 2)
		assert.Equal(t, 2026, replaced[0].CycleYear)
		assert.Equal(t, 2026, replaced[0].Year)
		assert.Equal(t, 2026, replaced[1].CycleYear)
		assert.Equal(t, 2027, replaced[1].Year)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty scope clears the cache", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectCommit()

		var replaced []ledger.BalanceCache
		called := false
		repo := &fakeLedgerRepository{
			replaceCacheRowsFn: func(ctx context.Context, s ledger.Scope, rows []ledger.BalanceCache) error {
				called = true
				replaced = rows
				return nil
			},
		}

		svc := ledger.NewBalanceService(db, repo, &fakeEmployeeReader{}, &fakeConfigReader{}, nil)
		err = svc.RebuildCache(ctx, tenantID.String(), scope.EmployeeID.String(), scope.LeaveTypeID.String(), 2026)

		assert.NoError(t, err)
		assert.True(t, called)
		assert.Empty(t, replaced)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBalanceService_ListEntries(t *testing.T) {
	ctx := context.Background()

	t.Run("negative invalid employee id", func(t *testing.T) {
		db, _, err := sqlmock.New()
		assert.NoError(t, err)
		defer db.Close()

		svc := ledger.NewBalanceService(db, &fakeLedgerRepository{}, &fakeEmployeeReader{}, &fakeConfigReader{}, nil)
		_, _, err = svc.ListEntries(ctx, uuid.New().String(), "not-a-uuid", 20, 0)

		assert.ErrorIs(t, err, ledgererrors.ErrInvalidEmployeeID)
	})
}

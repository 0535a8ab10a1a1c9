package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"leaveledger/internal/employee"
	ledgererrors "leaveledger/internal/ledger/errors"
	"leaveledger/internal/leavetype"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

//go:generate mockgen -source=balance_service.go -destination=mock/balance_service_mock.go -package=mock
type BalanceService interface {
	// GetBalance resolves the employee's policy and returns one item per
	// active leave type mapping. cycleYear 0 means "the leave type's current
	// cycle". Reads only each scope's chain head.
	GetBalance(ctx context.Context, tenantID, employeeID string, cycleYear int) ([]BalanceItem, error)
	// GetBreakdown replays the whole scope and totals by transaction class.
	// Audit/detail views only; O(n) in entries.
	GetBreakdown(ctx context.Context, tenantID, employeeID, leaveTypeID string, cycleYear int) (*BreakdownResponse, error)
	// RebuildCache regenerates the monthly balance cache rows for a scope
	// from the ledger. Safe to run at any time; the cache carries no
	// information of its own.
	RebuildCache(ctx context.Context, tenantID, employeeID, leaveTypeID string, cycleYear int) error
	ListEntries(ctx context.Context, tenantID, employeeID string, limit, offset int) ([]LedgerEntry, int64, error)
}

type balanceService struct {
	db           *sql.DB
	repo         Repository
	employeeRepo employee.Repository
	configRepo   leavetype.Repository
	readCache    *BalanceReadCache
	sf           singleflight.Group
	logger       *zap.Logger
}

func NewBalanceService(
	db *sql.DB,
	repo Repository,
	employeeRepo employee.Repository,
	configRepo leavetype.Repository,
	readCache *BalanceReadCache,
	logger ...*zap.Logger,
) BalanceService {
	l := zap.L().Named("ledger.balance")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("ledger.balance")
	}
	return &balanceService{
		db:           db,
		repo:         repo,
		employeeRepo: employeeRepo,
		configRepo:   configRepo,
		readCache:    readCache,
		logger:       l,
	}
}

func (s *balanceService) GetBalance(ctx context.Context, tenantID, employeeID string, cycleYear int) ([]BalanceItem, error) {
	if s.readCache != nil {
		if items, ok := s.readCache.Get(ctx, tenantID, employeeID, cycleYear); ok {
			return items, nil
		}
	}

	// Concurrent misses for the same employee collapse into one ledger read.
	key := fmt.Sprintf("%s:%s:%d", tenantID, employeeID, cycleYear)
	v, err, _ := s.sf.Do(key, func() (any, error) {
		return s.loadBalance(ctx, tenantID, employeeID, cycleYear)
	})
	if err != nil {
		return nil, err
	}
	items := v.([]BalanceItem)

	if s.readCache != nil {
		s.readCache.Set(ctx, tenantID, employeeID, cycleYear, items)
	}
	return items, nil
}

func (s *balanceService) loadBalance(ctx context.Context, tenantID, employeeID string, cycleYear int) ([]BalanceItem, error) {
	emp, err := s.employeeRepo.FindByIDAndTenant(ctx, tenantID, employeeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledgererrors.ErrEmployeeNotFound
		}
		return nil, err
	}
	if emp.LeavePolicyID == nil {
		return nil, ledgererrors.ErrPolicyNotAssigned
	}

	mappings, err := s.configRepo.ActiveMappingsForPolicy(ctx, tenantID, emp.LeavePolicyID.String())
	if err != nil {
		return nil, err
	}

	items := make([]BalanceItem, 0, len(mappings))
	for _, m := range mappings {
		lt := m.LeaveType
		if lt == nil {
			continue
		}

		year := cycleYear
		if year == 0 {
			year = leavetype.CycleYearFor(lt, today())
		}

		// Hot path: one chain-head lookup per leave type.
		latest, err := s.repo.LatestInScope(ctx, Scope{
			EmployeeID:  emp.ID,
			LeaveTypeID: lt.ID,
			CycleYear:   year,
		})
		if err != nil {
			return nil, err
		}

		available := decimal.Zero
		if latest != nil {
			available = latest.BalanceAfter
		}

		items = append(items, BalanceItem{
			LeaveTypeID:      lt.ID.String(),
			Code:             lt.Code,
			Name:             lt.Name,
			CycleYear:        year,
			AvailableBalance: available.String(),
			Rules: RuleSummary{
				Paid:             lt.IsPaid,
				CreditFrequency:  lt.CreditFrequency,
				DefaultCredit:    lt.LeavesToCredit.String(),
				CarryForwardType: lt.CarryForwardType,
			},
		})
	}

	return items, nil
}

func (s *balanceService) GetBreakdown(ctx context.Context, tenantID, employeeID, leaveTypeID string, cycleYear int) (*BreakdownResponse, error) {
	scope, err := parseScope(employeeID, leaveTypeID, cycleYear)
	if err != nil {
		return nil, err
	}

	if _, err := s.configRepo.FindByIDAndTenant(ctx, tenantID, leaveTypeID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledgererrors.ErrLeaveTypeNotFound
		}
		return nil, err
	}

	entries, err := s.repo.ListByScope(ctx, *scope)
	if err != nil {
		return nil, err
	}

	resp := &BreakdownResponse{
		EmployeeID:  employeeID,
		LeaveTypeID: leaveTypeID,
		CycleYear:   cycleYear,
		EntryCount:  len(entries),
	}

	credited, debited := decimal.Zero, decimal.Zero
	carried, encashed, lapsed, reversed := decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero
	available := decimal.Zero

	for _, e := range entries {
		switch e.TransactionType {
		case TxCredit, TxAdjustmentCredit:
			credited = credited.Add(e.Amount)
		case TxDebit, TxAdjustmentDebit, TxPenalty:
			debited = debited.Add(e.Amount.Abs())
		case TxCarryForward:
			carried = carried.Add(e.Amount)
		case TxEncashment:
			encashed = encashed.Add(e.Amount.Abs())
		case TxLapse:
			lapsed = lapsed.Add(e.Amount.Abs())
		case TxReversal:
			reversed = reversed.Add(e.Amount)
		}
		available = e.BalanceAfter
	}

	resp.Credited = credited.String()
	resp.Debited = debited.String()
	resp.CarriedForward = carried.String()
	resp.Encashed = encashed.String()
	resp.Lapsed = lapsed.String()
	resp.Reversed = reversed.String()
	resp.Available = available.String()
	return resp, nil
}

func (s *balanceService) RebuildCache(ctx context.Context, tenantID, employeeID, leaveTypeID string, cycleYear int) error {
	tenantUUID, err := uuid.Parse(tenantID)
	if err != nil {
		return ledgererrors.ErrInvalidTenantID
	}
	scope, err := parseScope(employeeID, leaveTypeID, cycleYear)
	if err != nil {
		return err
	}

	entries, err := s.repo.ListByScope(ctx, *scope)
	if err != nil {
		return err
	}

	rows := buildCacheRows(tenantUUID, *scope, entries)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.repo.WithTx(tx).ReplaceCacheRows(ctx, *scope, rows); err != nil {
		s.logger.Error("replace cache rows failed", zap.Error(err))
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.logger.Info("balance cache rebuilt",
		zap.String("employee_id", employeeID),
		zap.String("leave_type_id", leaveTypeID),
		zap.Int("cycle_year", cycleYear),
		zap.Int("months", len(rows)),
	)

	if s.readCache != nil {
		s.readCache.Invalidate(ctx, tenantID, employeeID, cycleYear)
	}
	return nil
}

func (s *balanceService) ListEntries(ctx context.Context, tenantID, employeeID string, limit, offset int) ([]LedgerEntry, int64, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return nil, 0, ledgererrors.ErrInvalidEmployeeID
	}
	return s.repo.ListByEmployee(ctx, tenantID, employeeID, limit, offset)
}

// buildCacheRows replays a scope into monthly snapshot rows. The entries come
// ordered by sequence number, so each month's opening is the running balance
// before its first entry and available is the balance after its last.
func buildCacheRows(tenantID uuid.UUID, scope Scope, entries []LedgerEntry) []BalanceCache {
	var rows []BalanceCache
	var current *BalanceCache
	running := decimal.Zero

	for _, e := range entries {
		y, m := e.TransactionDate.Year(), int(e.TransactionDate.Month())
		if current == nil || current.Year != y || current.Month != m {
			rows = append(rows, BalanceCache{
				ID:          uuid.New(),
				TenantID:    tenantID,
				EmployeeID:  scope.EmployeeID,
				LeaveTypeID: scope.LeaveTypeID,
				CycleYear:   scope.CycleYear,
				Year:        y,
				Month:       m,
				Opening:     running,
				Credited:    decimal.Zero,
				Debited:     decimal.Zero,
			})
			current = &rows[len(rows)-1]
		}

		if e.Amount.IsNegative() {
			current.Debited = current.Debited.Add(e.Amount.Abs())
		} else {
			current.Credited = current.Credited.Add(e.Amount)
		}
		running = e.BalanceAfter
		current.Available = running
	}

	return rows
}

func parseScope(employeeID, leaveTypeID string, cycleYear int) (*Scope, error) {
	employeeUUID, err := uuid.Parse(employeeID)
	if err != nil {
		return nil, ledgererrors.ErrInvalidEmployeeID
	}
	leaveTypeUUID, err := uuid.Parse(leaveTypeID)
	if err != nil {
		return nil, ledgererrors.ErrInvalidLeaveTypeID
	}
	if cycleYear < 2000 || cycleYear > 2100 {
		return nil, ledgererrors.ErrInvalidCycleYear
	}
	return &Scope{
		EmployeeID:  employeeUUID,
		LeaveTypeID: leaveTypeUUID,
		CycleYear:   cycleYear,
	}, nil
}

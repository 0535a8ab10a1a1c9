package scheduler

import (
	"context"
	"errors"
	"time"

	"leaveledger/internal/employee"
	"leaveledger/internal/ledger"
	ledgererrors "leaveledger/internal/ledger/errors"
	"leaveledger/internal/leavetype"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// systemActorID marks scheduler-created entries; no human actor is involved.
var systemActorID = uuid.Nil

// RunSummary reports one crediting sweep. Failures are per-unit: a failed
// credit for one employee/leave-type pair never aborts the run.
type RunSummary struct {
	RunDate             string `json:"run_date"`
	TenantsProcessed    int    `json:"tenants_processed"`
	EmployeesEvaluated  int    `json:"employees_evaluated"`
	TransactionsCreated int    `json:"transactions_created"`
	SkippedIneligible   int    `json:"skipped_ineligible"`
	SkippedDuplicate    int    `json:"skipped_duplicate"`
	Failures            int    `json:"failures"`
}

//go:generate mockgen -source=scheduler_service.go -destination=mock/scheduler_service_mock.go -package=mock
type Service interface {
	// RunCreditCycle sweeps every tenant and credits each employee's active
	// leave-type mappings that are due on asOf for one of the given
	// frequencies. Re-running for the same bucket is a no-op; the processor
	// rejects duplicate auto-credits inside the write transaction.
	RunCreditCycle(ctx context.Context, asOf time.Time, frequencies []string) (*RunSummary, error)
}

type service struct {
	employeeRepo employee.Repository
	configRepo   leavetype.Repository
	ledgerSvc    ledger.Service
	logger       *zap.Logger
}

func NewService(
	employeeRepo employee.Repository,
	configRepo leavetype.Repository,
	ledgerSvc ledger.Service,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("scheduler.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("scheduler.service")
	}
	return &service{
		employeeRepo: employeeRepo,
		configRepo:   configRepo,
		ledgerSvc:    ledgerSvc,
		logger:       l,
	}
}

func (s *service) RunCreditCycle(ctx context.Context, asOf time.Time, frequencies []string) (*RunSummary, error) {
	if asOf.IsZero() {
		now := time.Now().UTC()
		asOf = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	wanted := make(map[string]struct{}, len(frequencies))
	for _, f := range frequencies {
		wanted[f] = struct{}{}
	}

	summary := &RunSummary{RunDate: asOf.Format("2006-01-02")}

	tenantIDs, err := s.employeeRepo.ListTenantIDs(ctx)
	if err != nil {
		s.logger.Error("credit cycle: list tenants failed", zap.Error(err))
		return nil, err
	}

	for _, tenantID := range tenantIDs {
		if err := s.runTenant(ctx, tenantID, asOf, wanted, summary); err != nil {
			// Tenant-level failures (listing queries) are isolated too.
			s.logger.Error("credit cycle: tenant sweep failed",
				zap.String("tenant_id", tenantID),
				zap.Error(err),
			)
			summary.Failures++
			continue
		}
		summary.TenantsProcessed++
	}

	s.logger.Info("credit cycle finished",
		zap.String("run_date", summary.RunDate),
		zap.Int("tenants", summary.TenantsProcessed),
		zap.Int("employees", summary.EmployeesEvaluated),
		zap.Int("created", summary.TransactionsCreated),
		zap.Int("skipped_ineligible", summary.SkippedIneligible),
		zap.Int("skipped_duplicate", summary.SkippedDuplicate),
		zap.Int("failures", summary.Failures),
	)
	return summary, nil
}

func (s *service) runTenant(ctx context.Context, tenantID string, asOf time.Time, wanted map[string]struct{}, summary *RunSummary) error {
	employees, err := s.employeeRepo.ListWithPolicyByTenant(ctx, tenantID)
	if err != nil {
		return err
	}

	// Policies repeat across employees; resolve each once per sweep.
	mappingsByPolicy := make(map[string][]leavetype.LeavePolicyMapping)

	for i := range employees {
		emp := &employees[i]
		summary.EmployeesEvaluated++

		policyID := emp.LeavePolicyID.String()
		mappings, ok := mappingsByPolicy[policyID]
		if !ok {
			mappings, err = s.configRepo.ActiveMappingsForPolicy(ctx, tenantID, policyID)
			if err != nil {
				s.logger.Error("credit cycle: load policy mappings failed",
					zap.String("tenant_id", tenantID),
					zap.String("policy_id", policyID),
					zap.Error(err),
				)
				summary.Failures++
				continue
			}
			mappingsByPolicy[policyID] = mappings
		}

		for _, m := range mappings {
			lt := m.LeaveType
			if lt == nil {
				continue
			}
			if _, ok := wanted[lt.CreditFrequency]; !ok {
				continue
			}
			if !creditDue(lt, asOf) {
				continue
			}
			s.creditOne(ctx, tenantID, emp, lt, asOf, summary)
		}
	}
	return nil
}

func (s *service) creditOne(ctx context.Context, tenantID string, emp *employee.Employee, lt *leavetype.LeaveType, asOf time.Time, summary *RunSummary) {
	if !leavetype.Eligible(emp, lt) {
		summary.SkippedIneligible++
		return
	}

	amount, drift := leavetype.CreditAmountFor(lt, emp.Status)
	if drift {
		s.logger.Warn("credit cycle: no override slot for employee status, using default grant",
			zap.String("employee_id", emp.ID.String()),
			zap.String("status", emp.Status),
			zap.String("leave_type_id", lt.ID.String()),
		)
	}
	amount = leavetype.RoundIfConfigured(lt, amount)

	// Zero-amount grants are still written; the entry marks the bucket as
	// processed so later sweeps in the same cycle skip it.
	_, err := s.ledgerSvc.AutoCredit(ctx, ledger.AutoCreditInput{
		TenantID:    emp.TenantID,
		EmployeeID:  emp.ID,
		LeaveTypeID: lt.ID,
		CycleYear:   leavetype.CycleYearFor(lt, asOf),
		Amount:      amount,
		Frequency:   lt.CreditFrequency,
		ActorID:     systemActorID,
		Today:       asOf,
		Remarks:     "scheduled " + lt.CreditFrequency + " credit",
	})
	switch {
	case err == nil:
		summary.TransactionsCreated++
	case errors.Is(err, ledgererrors.ErrAlreadyCredited):
		summary.SkippedDuplicate++
	default:
		s.logger.Error("credit cycle: auto credit failed",
			zap.String("tenant_id", tenantID),
			zap.String("employee_id", emp.ID.String()),
			zap.String("leave_type_id", lt.ID.String()),
			zap.Error(err),
		)
		summary.Failures++
	}
}

// creditDue reports whether asOf is on or after the leave type's crediting
// day in the bucket's first month (every month for monthly types). The day
// is clamped to short months so a day-31 type still credits in February.
// Matching on-or-after means a sweep that missed the exact day still grants
// the bucket; the in-transaction bucket check keeps late sweeps from
// crediting twice.
func creditDue(lt *leavetype.LeaveType, asOf time.Time) bool {
	month := int(asOf.Month())
	switch lt.CreditFrequency {
	case leavetype.FrequencyMonthly:
		// every month
	case leavetype.FrequencyQuarterly:
		if (month-1)%3 != 0 {
			return false
		}
	case leavetype.FrequencyHalfYearly:
		if (month-1)%6 != 0 {
			return false
		}
	case leavetype.FrequencyYearly:
		if month != normalizedMonth(lt.CycleStartMonth) {
			return false
		}
	default:
		// manual and next_year types are never scheduled
		return false
	}

	day := 1
	if lt.CreditDayOfMonth != nil && *lt.CreditDayOfMonth >= 1 {
		day = *lt.CreditDayOfMonth
	}
	if last := lastDayOfMonth(asOf); day > last {
		day = last
	}
	return asOf.Day() >= day
}

func normalizedMonth(m int) int {
	if m < 1 || m > 12 {
		return 1
	}
	return m
}

func lastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

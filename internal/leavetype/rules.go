package leavetype

import (
	"time"

	"github.com/shopspring/decimal"

	"leaveledger/internal/employee"
)

// Eligible reports whether an employee may receive this leave type's credit.
// Pure function over the employee snapshot and the leave type rules; all
// conditions must hold.
func Eligible(emp *employee.Employee, lt *LeaveType) bool {
	if _, ok := lt.AllowedStatusSet()[emp.Status]; !ok {
		return false
	}

	if lt.GenderFilter != GenderFilterAll && lt.GenderFilter != emp.Gender {
		return false
	}

	// Of the declared joining-period variants only the probation exclusion is
	// evaluated; the rest are configuration without upstream behavior.
	if lt.RestrictAfterJoining &&
		lt.JoiningRestrictionVariant == RestrictionExcludeProbation &&
		emp.Status == employee.StatusProbation {
		return false
	}

	return true
}

// CreditAmountFor selects the per-cycle grant for an employee status: the
// status-specific override when configured, otherwise the default. The second
// return reports whether the status has no override slot in the schema at all
// ("suspended" is referenced by callers but was never added to the config),
// so callers can flag the drift instead of silently inventing a value.
func CreditAmountFor(lt *LeaveType, status string) (decimal.Decimal, bool) {
	var override *decimal.Decimal
	switch status {
	case employee.StatusActive:
		override = lt.ActiveLeavesToCredit
	case employee.StatusProbation:
		override = lt.ProbationLeavesToCredit
	case employee.StatusIntern:
		override = lt.InternLeavesToCredit
	case employee.StatusSeparated:
		override = lt.SeparatedLeavesToCredit
	case employee.StatusSuspended:
		return lt.LeavesToCredit, true
	}

	if override != nil {
		return *override, false
	}
	return lt.LeavesToCredit, false
}

// RoundIfConfigured rounds a grant to the nearest whole day when the leave
// type asks for it.
func RoundIfConfigured(lt *LeaveType, amount decimal.Decimal) decimal.Decimal {
	if lt.RoundCredits {
		return amount.Round(0)
	}
	return amount
}

// SameCycleBucket reports whether two dates fall into the same crediting
// bucket for a frequency: calendar month for monthly, Jan-Mar style quarters
// for quarterly, Jan-Jun / Jul-Dec halves for half_yearly, calendar year for
// yearly. Unknown frequencies never bucket together, so manual and next_year
// types are left alone.
func SameCycleBucket(frequency string, a, b time.Time) bool {
	if a.Year() != b.Year() {
		return false
	}
	switch frequency {
	case FrequencyMonthly:
		return a.Month() == b.Month()
	case FrequencyQuarterly:
		return (int(a.Month())-1)/3 == (int(b.Month())-1)/3
	case FrequencyHalfYearly:
		return (int(a.Month())-1)/6 == (int(b.Month())-1)/6
	case FrequencyYearly:
		return true
	default:
		return false
	}
}

// CycleYearFor maps a calendar date to the leave-accounting year of this
// leave type. With a January cycle start this is the calendar year; a later
// start month shifts dates before it into the previous cycle.
func CycleYearFor(lt *LeaveType, at time.Time) int {
	if lt.CycleStartMonth <= 1 {
		return at.Year()
	}
	if int(at.Month()) >= lt.CycleStartMonth {
		return at.Year()
	}
	return at.Year() - 1
}

package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionRequest is the API-facing shape for credit/debit style writes.
// Amount is the magnitude in leave days; the sign is derived from the
// operation, never supplied by the caller.
type TransactionRequest struct {
	EmployeeID      string  `json:"employee_id" binding:"required,uuid"`
	LeaveTypeID     string  `json:"leave_type_id" binding:"required,uuid"`
	CycleYear       int     `json:"cycle_year" binding:"required,min=2000,max=2100"`
	Amount          string  `json:"amount" binding:"required"`
	ReferenceType   string  `json:"reference_type" binding:"omitempty,oneof=manual leave_request auto_credit"`
	ReferenceID     *string `json:"reference_id"`
	Remarks         string  `json:"remarks"`
	TransactionDate string  `json:"transaction_date"`
}

// PostRequest records a bookkeeping transaction of an explicit type
// (adjustments, carry-forward, encashment, lapse, penalty).
type PostRequest struct {
	EmployeeID      string  `json:"employee_id" binding:"required,uuid"`
	LeaveTypeID     string  `json:"leave_type_id" binding:"required,uuid"`
	CycleYear       int     `json:"cycle_year" binding:"required,min=2000,max=2100"`
	TransactionType string  `json:"transaction_type" binding:"required,oneof=adjustment_credit adjustment_debit carry_forward encashment lapse penalty"`
	Amount          string  `json:"amount" binding:"required"`
	ReferenceID     *string `json:"reference_id"`
	Remarks         string  `json:"remarks"`
	TransactionDate string  `json:"transaction_date"`
}

// AutoCreditInput is the scheduler's pre-resolved crediting unit. Frequency
// drives the in-transaction idempotency bucket check.
type AutoCreditInput struct {
	TenantID    uuid.UUID
	EmployeeID  uuid.UUID
	LeaveTypeID uuid.UUID
	CycleYear   int
	Amount      decimal.Decimal
	Frequency   string
	ActorID     uuid.UUID
	Today       time.Time
	Remarks     string
}

type TransactionResponse struct {
	Entry           LedgerEntry `json:"entry"`
	PreviousBalance string      `json:"previous_balance"`
	NewBalance      string      `json:"new_balance"`
}

type RuleSummary struct {
	Paid             bool   `json:"paid"`
	CreditFrequency  string `json:"credit_frequency"`
	DefaultCredit    string `json:"default_credit"`
	CarryForwardType string `json:"carry_forward_type"`
}

type BalanceItem struct {
	LeaveTypeID      string      `json:"leave_type_id"`
	Code             string      `json:"code"`
	Name             string      `json:"name"`
	CycleYear        int         `json:"cycle_year"`
	AvailableBalance string      `json:"available_balance"`
	Rules            RuleSummary `json:"rules"`
}

// BreakdownResponse aggregates a scope's full history by transaction-type
// class. All figures are positive magnitudes except Available, which is the
// chain balance.
type BreakdownResponse struct {
	EmployeeID     string `json:"employee_id"`
	LeaveTypeID    string `json:"leave_type_id"`
	CycleYear      int    `json:"cycle_year"`
	Credited       string `json:"credited"`
	Debited        string `json:"debited"`
	CarriedForward string `json:"carried_forward"`
	Encashed       string `json:"encashed"`
	Lapsed         string `json:"lapsed"`
	Reversed       string `json:"reversed"`
	Available      string `json:"available"`
	EntryCount     int    `json:"entry_count"`
}

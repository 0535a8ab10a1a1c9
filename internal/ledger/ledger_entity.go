package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerEntry is one immutable, signed transaction against an employee's
// leave balance. Entries are append-only: there is deliberately no update or
// delete anywhere in this package. Corrections happen through reversal
// entries that reference the original via ReversesID.
//
// BalanceAfter snapshots the running balance of the scope (employee, leave
// type, cycle year) after this entry; SequenceNo is a strictly increasing
// per-scope number assigned atomically at append time and defines the total
// order of the chain.
type LedgerEntry struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"tenant_id"`
	EmployeeID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_ledger_scope_seq;index:idx_ledger_employee_date" json:"employee_id"`
	LeaveTypeID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_ledger_scope_seq" json:"leave_type_id"`
	CycleYear       int             `gorm:"type:int;not null;uniqueIndex:uq_ledger_scope_seq" json:"cycle_year"`
	SequenceNo      int64           `gorm:"type:bigint;not null;uniqueIndex:uq_ledger_scope_seq" json:"sequence_no"`
	TransactionType string          `gorm:"type:varchar(30);not null" json:"transaction_type"`
	Amount          decimal.Decimal `gorm:"type:numeric(8,2);not null" json:"amount"`
	BalanceAfter    decimal.Decimal `gorm:"type:numeric(8,2);not null" json:"balance_after"`
	TransactionDate time.Time       `gorm:"type:date;not null;index:idx_ledger_employee_date" json:"transaction_date"`
	ReferenceType   string          `gorm:"type:varchar(30);not null;default:'manual'" json:"reference_type"`
	ReferenceID     *string         `gorm:"type:varchar(100)" json:"reference_id,omitempty"`
	Remarks         string          `gorm:"type:text" json:"remarks,omitempty"`
	CreatedBy       uuid.UUID       `gorm:"type:uuid;not null" json:"created_by"`
	ReversesID      *uuid.UUID      `gorm:"type:uuid;uniqueIndex:uq_ledger_reverses" json:"reverses_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Scope identifies one balance chain.
type Scope struct {
	EmployeeID  uuid.UUID
	LeaveTypeID uuid.UUID
	CycleYear   int
}

// BalanceCache is the derived monthly snapshot used for fast reads. It is
// never authoritative; RebuildCache regenerates any row by replaying the
// ledger. CycleYear is part of the key: a carry-forward posted into next
// year's cycle carries this year's calendar date, so (year, month) alone
// does not identify the chain the row belongs to.
type BalanceCache struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	EmployeeID  uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_balance_cache_scope"`
	LeaveTypeID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_balance_cache_scope"`
	CycleYear   int             `gorm:"type:int;not null;uniqueIndex:uq_balance_cache_scope"`
	Year        int             `gorm:"type:int;not null;uniqueIndex:uq_balance_cache_scope"`
	Month       int             `gorm:"type:int;not null;uniqueIndex:uq_balance_cache_scope"`
	Opening     decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"`
	Credited    decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"`
	Debited     decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"`
	Available   decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0"`

	UpdatedAt time.Time
}

// LedgerSequence backs the per-scope sequence allocator. The UPSERT that
// increments last_value also row-locks the scope for the transaction,
// serializing concurrent writers on the same chain.
type LedgerSequence struct {
	EmployeeID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	LeaveTypeID uuid.UUID `gorm:"type:uuid;primaryKey"`
	CycleYear   int       `gorm:"type:int;primaryKey"`
	LastValue   int64     `gorm:"type:bigint;not null;default:0"`

	UpdatedAt time.Time
}

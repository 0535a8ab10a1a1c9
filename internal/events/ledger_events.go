package events

import "time"

const LedgerEntryRecordedTopic = "leave.ledger.entry.v1"

// LedgerEntryRecordedEvent is published (via the outbox) for every appended
// ledger entry. Amounts travel as strings to keep decimal precision.
type LedgerEntryRecordedEvent struct {
	EventType       string    `json:"event_type"`
	EntryID         string    `json:"entry_id"`
	TenantID        string    `json:"tenant_id"`
	EmployeeID      string    `json:"employee_id"`
	LeaveTypeID     string    `json:"leave_type_id"`
	CycleYear       int       `json:"cycle_year"`
	TransactionType string    `json:"transaction_type"`
	Amount          string    `json:"amount"`
	BalanceAfter    string    `json:"balance_after"`
	OccurredAt      time.Time `json:"occurred_at"`
}

const BalanceCacheRebuildTopic = "leave.ledger.cache.rebuild.v1"

// BalanceCacheRebuildEvent asks the consumer to regenerate the monthly
// balance cache for one scope by replaying the ledger.
type BalanceCacheRebuildEvent struct {
	EventType   string    `json:"event_type"`
	TenantID    string    `json:"tenant_id"`
	EmployeeID  string    `json:"employee_id"`
	LeaveTypeID string    `json:"leave_type_id"`
	CycleYear   int       `json:"cycle_year"`
	OccurredAt  time.Time `json:"occurred_at"`
}

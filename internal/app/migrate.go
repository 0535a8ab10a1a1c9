package app

import (
	"leaveledger/internal/employee"
	"leaveledger/internal/ledger"
	"leaveledger/internal/leavetype"

	"gorm.io/gorm"
)

// outbox_events is written with raw SQL, so it is created the same way.
const createOutboxTable = `
CREATE TABLE IF NOT EXISTS outbox_events (
    id UUID PRIMARY KEY,
    request_id VARCHAR(100),
    aggregate_type VARCHAR(50) NOT NULL,
    aggregate_id UUID NOT NULL,
    event_type VARCHAR(100) NOT NULL,
    topic VARCHAR(200) NOT NULL,
    payload JSONB NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    retry_count INT NOT NULL DEFAULT 0,
    error_message VARCHAR(500),
    next_retry_at TIMESTAMPTZ,
    processed_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_outbox_status_created ON outbox_events (status, created_at);
`

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&employee.Employee{},
		&leavetype.LeaveType{},
		&leavetype.LeavePolicy{},
		&leavetype.LeavePolicyMapping{},
		&ledger.LedgerEntry{},
		&ledger.LedgerSequence{},
		&ledger.BalanceCache{},
	); err != nil {
		return err
	}
	return db.Exec(createOutboxTable).Error
}

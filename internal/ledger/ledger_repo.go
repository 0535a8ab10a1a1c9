package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"leaveledger/internal/tenant"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:generate mockgen -source=ledger_repo.go -destination=mock/ledger_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository

	// NextSequence allocates the next per-scope sequence number. Run inside
	// the unit transaction: the UPSERT row-locks the scope until commit, so
	// read-latest, append and cache-upsert are serialized per scope.
	NextSequence(ctx context.Context, scope Scope) (int64, error)
	LatestInScope(ctx context.Context, scope Scope) (*LedgerEntry, error)
	Append(ctx context.Context, e *LedgerEntry) error
	HasReversalOf(ctx context.Context, originalID uuid.UUID) (bool, error)
	LatestAutoCreditDate(ctx context.Context, scope Scope) (*time.Time, error)
	UpsertBalanceCacheRow(ctx context.Context, row *BalanceCache) error
	ReplaceCacheRows(ctx context.Context, scope Scope, rows []BalanceCache) error

	FindByIDAndTenant(ctx context.Context, tenantID, id string) (*LedgerEntry, error)
	ListByScope(ctx context.Context, scope Scope) ([]LedgerEntry, error)
	ListByEmployee(ctx context.Context, tenantID, employeeID string, limit, offset int) ([]LedgerEntry, int64, error)
}

type repository struct {
	db    *gorm.DB
	sqlDB *sql.DB
	tx    *sql.Tx
}

func NewRepository(db *gorm.DB, sqlDB *sql.DB) Repository {
	return &repository{db: db, sqlDB: sqlDB}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, sqlDB: r.sqlDB, tx: tx}
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *repository) execer() execer {
	if r.tx != nil {
		return r.tx
	}
	return r.sqlDB
}

func (r *repository) NextSequence(ctx context.Context, scope Scope) (int64, error) {
	var next int64
	err := r.execer().QueryRowContext(ctx, `
		INSERT INTO ledger_sequences (employee_id, leave_type_id, cycle_year, last_value, updated_at)
		VALUES ($1, $2, $3, 1, now())
		ON CONFLICT (employee_id, leave_type_id, cycle_year) DO UPDATE
		SET last_value = ledger_sequences.last_value + 1, updated_at = now()
		RETURNING last_value
	`, scope.EmployeeID, scope.LeaveTypeID, scope.CycleYear).Scan(&next)
	if err != nil {
		return 0, err
	}
	return next, nil
}

const entryColumns = `
	id, tenant_id, employee_id, leave_type_id, cycle_year, sequence_no,
	transaction_type, amount, balance_after, transaction_date,
	reference_type, reference_id, remarks, created_by, reverses_id, created_at
`

func scanEntry(row *sql.Row) (*LedgerEntry, error) {
	var e LedgerEntry
	err := row.Scan(
		&e.ID, &e.TenantID, &e.EmployeeID, &e.LeaveTypeID, &e.CycleYear, &e.SequenceNo,
		&e.TransactionType, &e.Amount, &e.BalanceAfter, &e.TransactionDate,
		&e.ReferenceType, &e.ReferenceID, &e.Remarks, &e.CreatedBy, &e.ReversesID, &e.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// LatestInScope returns the chain head, or nil when the scope has no entries
// yet. Sequence number is the total order, never the wall clock.
func (r *repository) LatestInScope(ctx context.Context, scope Scope) (*LedgerEntry, error) {
	row := r.execer().QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE employee_id = $1 AND leave_type_id = $2 AND cycle_year = $3
		ORDER BY sequence_no DESC
		LIMIT 1
	`, scope.EmployeeID, scope.LeaveTypeID, scope.CycleYear)
	return scanEntry(row)
}

func (r *repository) Append(ctx context.Context, e *LedgerEntry) error {
	_, err := r.execer().ExecContext(ctx, `
		INSERT INTO ledger_entries (
			id, tenant_id, employee_id, leave_type_id, cycle_year, sequence_no,
			transaction_type, amount, balance_after, transaction_date,
			reference_type, reference_id, remarks, created_by, reverses_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now())
	`,
		e.ID, e.TenantID, e.EmployeeID, e.LeaveTypeID, e.CycleYear, e.SequenceNo,
		e.TransactionType, e.Amount, e.BalanceAfter, e.TransactionDate,
		e.ReferenceType, e.ReferenceID, e.Remarks, e.CreatedBy, e.ReversesID,
	)
	return err
}

func (r *repository) HasReversalOf(ctx context.Context, originalID uuid.UUID) (bool, error) {
	var count int64
	err := r.execer().QueryRowContext(ctx, `
		SELECT COUNT(1) FROM ledger_entries WHERE reverses_id = $1
	`, originalID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) LatestAutoCreditDate(ctx context.Context, scope Scope) (*time.Time, error) {
	var d time.Time
	err := r.execer().QueryRowContext(ctx, `
		SELECT transaction_date
		FROM ledger_entries
		WHERE employee_id = $1 AND leave_type_id = $2 AND cycle_year = $3
			AND transaction_type = $4 AND reference_type = $5
		ORDER BY sequence_no DESC
		LIMIT 1
	`, scope.EmployeeID, scope.LeaveTypeID, scope.CycleYear, TxCredit, RefAutoCredit).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// UpsertBalanceCacheRow merges one entry's effect into the monthly snapshot.
// Opening sticks from the first write of the month; deltas accumulate;
// available is always the latest chain balance.
func (r *repository) UpsertBalanceCacheRow(ctx context.Context, row *BalanceCache) error {
	_, err := r.execer().ExecContext(ctx, `
		INSERT INTO balance_caches (
			id, tenant_id, employee_id, leave_type_id, cycle_year, year, month,
			opening, credited, debited, available, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		ON CONFLICT (employee_id, leave_type_id, cycle_year, year, month) DO UPDATE
		SET credited = balance_caches.credited + EXCLUDED.credited,
			debited = balance_caches.debited + EXCLUDED.debited,
			available = EXCLUDED.available,
			updated_at = now()
	`,
		row.ID, row.TenantID, row.EmployeeID, row.LeaveTypeID, row.CycleYear, row.Year, row.Month,
		row.Opening, row.Credited, row.Debited, row.Available,
	)
	return err
}

// ReplaceCacheRows clears a chain's snapshot rows and reinserts the replayed
// set. The delete keys on cycle_year, matching the unique index, so rows
// whose entries carry another calendar year (a carry-forward posted into the
// next cycle) are replaced too.
func (r *repository) ReplaceCacheRows(ctx context.Context, scope Scope, rows []BalanceCache) error {
	_, err := r.execer().ExecContext(ctx, `
		DELETE FROM balance_caches
		WHERE employee_id = $1 AND leave_type_id = $2 AND cycle_year = $3
	`, scope.EmployeeID, scope.LeaveTypeID, scope.CycleYear)
	if err != nil {
		return err
	}

	for i := range rows {
		row := &rows[i]
		_, err := r.execer().ExecContext(ctx, `
			INSERT INTO balance_caches (
				id, tenant_id, employee_id, leave_type_id, cycle_year, year, month,
				opening, credited, debited, available, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now())
		`,
			row.ID, row.TenantID, row.EmployeeID, row.LeaveTypeID, row.CycleYear, row.Year, row.Month,
			row.Opening, row.Credited, row.Debited, row.Available,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repository) FindByIDAndTenant(ctx context.Context, tenantID, id string) (*LedgerEntry, error) {
	var e LedgerEntry
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(tenantID)).
		First(&e, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) ListByScope(ctx context.Context, scope Scope) ([]LedgerEntry, error) {
	var entries []LedgerEntry
	err := r.db.WithContext(ctx).
		Where("employee_id = ?", scope.EmployeeID).
		Where("leave_type_id = ?", scope.LeaveTypeID).
		Where("cycle_year = ?", scope.CycleYear).
		Order("sequence_no ASC").
		Find(&entries).Error
	return entries, err
}

func (r *repository) ListByEmployee(ctx context.Context, tenantID, employeeID string, limit, offset int) ([]LedgerEntry, int64, error) {
	q := r.db.WithContext(ctx).
		Model(&LedgerEntry{}).
		Scopes(tenant.Scope(tenantID)).
		Where("employee_id = ?", employeeID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []LedgerEntry
	err := q.
		Order("transaction_date DESC, sequence_no DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	return entries, total, err
}

package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"leaveledger/internal/events"
	ledgererrors "leaveledger/internal/ledger/errors"
	"leaveledger/internal/leavetype"
	"leaveledger/internal/messaging/kafka"
	"leaveledger/internal/shared/contextutil"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// EntryFinder is the slice of the config/employee read models the processor
// needs for existence checks on the API write path.
type EntryFinder interface {
	EmployeeExists(ctx context.Context, tenantID, employeeID string) (bool, error)
	LeaveTypeExists(ctx context.Context, tenantID, leaveTypeID string) (bool, error)
}

//go:generate mockgen -source=ledger_service.go -destination=mock/ledger_service_mock.go -package=mock
type Service interface {
	Credit(ctx context.Context, tenantID, actorID string, req TransactionRequest) (*TransactionResponse, error)
	Debit(ctx context.Context, tenantID, actorID string, req TransactionRequest) (*TransactionResponse, error)
	Post(ctx context.Context, tenantID, actorID string, req PostRequest) (*TransactionResponse, error)
	Reverse(ctx context.Context, tenantID, actorID, originalID string) (*TransactionResponse, error)
	AutoCredit(ctx context.Context, in AutoCreditInput) (*TransactionResponse, error)
}

type service struct {
	db        *sql.DB
	repo      Repository
	outbox    kafka.OutboxRepository
	finder    EntryFinder
	readCache *BalanceReadCache
	logger    *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	outbox kafka.OutboxRepository,
	finder EntryFinder,
	readCache *BalanceReadCache,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("ledger.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("ledger.service")
	}
	return &service{
		db:        db,
		repo:      repo,
		outbox:    outbox,
		finder:    finder,
		readCache: readCache,
		logger:    l,
	}
}

// applyParams is one fully validated write unit. Every ledger mutation in
// this package funnels through apply; there is no other write path.
type applyParams struct {
	tenantID  uuid.UUID
	actorID   uuid.UUID
	scope     Scope
	txType    string
	magnitude decimal.Decimal // non-negative; sign derives from txType
	refType   string
	refID     *string
	remarks   string
	txDate    time.Time
	reverses  *uuid.UUID
	// bucketFrequency, when set, rejects the write if an auto_credit entry
	// already exists in the same cycle bucket (scheduler idempotency).
	bucketFrequency string
}

func (s *service) Credit(ctx context.Context, tenantID, actorID string, req TransactionRequest) (*TransactionResponse, error) {
	p, err := s.buildParams(ctx, tenantID, actorID, req, TxCredit)
	if err != nil {
		return nil, err
	}
	return s.applyWithRetry(ctx, *p)
}

func (s *service) Debit(ctx context.Context, tenantID, actorID string, req TransactionRequest) (*TransactionResponse, error) {
	p, err := s.buildParams(ctx, tenantID, actorID, req, TxDebit)
	if err != nil {
		return nil, err
	}
	if p.magnitude.IsZero() {
		return nil, ledgererrors.ErrInvalidAmount
	}
	return s.applyWithRetry(ctx, *p)
}

func (s *service) Post(ctx context.Context, tenantID, actorID string, req PostRequest) (*TransactionResponse, error) {
	p, err := s.buildParams(ctx, tenantID, actorID, TransactionRequest{
		EmployeeID:      req.EmployeeID,
		LeaveTypeID:     req.LeaveTypeID,
		CycleYear:       req.CycleYear,
		Amount:          req.Amount,
		ReferenceType:   RefManual,
		ReferenceID:     req.ReferenceID,
		Remarks:         req.Remarks,
		TransactionDate: req.TransactionDate,
	}, req.TransactionType)
	if err != nil {
		return nil, err
	}
	if p.magnitude.IsZero() {
		return nil, ledgererrors.ErrInvalidAmount
	}
	return s.applyWithRetry(ctx, *p)
}

func (s *service) Reverse(ctx context.Context, tenantID, actorID, originalID string) (*TransactionResponse, error) {
	tenantUUID, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, ledgererrors.ErrInvalidTenantID
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return nil, ledgererrors.ErrInvalidActorID
	}
	if _, err := uuid.Parse(originalID); err != nil {
		return nil, ledgererrors.ErrEntryNotFound
	}

	original, err := s.repo.FindByIDAndTenant(ctx, tenantID, originalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledgererrors.ErrEntryNotFound
		}
		s.logger.Error("reverse load original failed", zap.String("entry_id", originalID), zap.Error(err))
		return nil, err
	}
	if !IsReversible(original.TransactionType) {
		s.logger.Warn("reverse rejected: not a reversible type",
			zap.String("entry_id", originalID),
			zap.String("transaction_type", original.TransactionType),
		)
		return nil, ledgererrors.ErrNotReversible
	}

	refID := original.ID.String()
	return s.applyWithRetry(ctx, applyParams{
		tenantID: tenantUUID,
		actorID:  actorUUID,
		scope: Scope{
			EmployeeID:  original.EmployeeID,
			LeaveTypeID: original.LeaveTypeID,
			CycleYear:   original.CycleYear,
		},
		txType:    TxReversal,
		magnitude: original.Amount.Abs(),
		refType:   RefReversal,
		refID:     &refID,
		remarks:   "reversal of " + original.TransactionType,
		txDate:    today(),
		reverses:  &original.ID,
	})
}

func (s *service) AutoCredit(ctx context.Context, in AutoCreditInput) (*TransactionResponse, error) {
	if in.Amount.IsNegative() {
		return nil, ledgererrors.ErrInvalidAmount
	}
	day := in.Today
	if day.IsZero() {
		day = today()
	}
	return s.applyWithRetry(ctx, applyParams{
		tenantID: in.TenantID,
		actorID:  in.ActorID,
		scope: Scope{
			EmployeeID:  in.EmployeeID,
			LeaveTypeID: in.LeaveTypeID,
			CycleYear:   in.CycleYear,
		},
		txType:          TxCredit,
		magnitude:       in.Amount,
		refType:         RefAutoCredit,
		remarks:         in.Remarks,
		txDate:          day,
		bucketFrequency: in.Frequency,
	})
}

func (s *service) buildParams(ctx context.Context, tenantID, actorID string, req TransactionRequest, txType string) (*applyParams, error) {
	tenantUUID, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, ledgererrors.ErrInvalidTenantID
	}
	actorUUID, err := uuid.Parse(actorID)
	if err != nil {
		return nil, ledgererrors.ErrInvalidActorID
	}
	employeeUUID, err := uuid.Parse(req.EmployeeID)
	if err != nil {
		return nil, ledgererrors.ErrInvalidEmployeeID
	}
	leaveTypeUUID, err := uuid.Parse(req.LeaveTypeID)
	if err != nil {
		return nil, ledgererrors.ErrInvalidLeaveTypeID
	}

	magnitude, err := decimal.NewFromString(req.Amount)
	if err != nil || magnitude.IsNegative() {
		return nil, ledgererrors.ErrInvalidAmount
	}

	txDate := today()
	if req.TransactionDate != "" {
		txDate, err = time.Parse("2006-01-02", req.TransactionDate)
		if err != nil {
			return nil, ledgererrors.ErrInvalidTransactionDate
		}
	}

	exists, err := s.finder.EmployeeExists(ctx, tenantID, req.EmployeeID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ledgererrors.ErrEmployeeNotFound
	}
	exists, err = s.finder.LeaveTypeExists(ctx, tenantID, req.LeaveTypeID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ledgererrors.ErrLeaveTypeNotFound
	}

	refType := req.ReferenceType
	if refType == "" {
		refType = RefManual
	}

	return &applyParams{
		tenantID: tenantUUID,
		actorID:  actorUUID,
		scope: Scope{
			EmployeeID:  employeeUUID,
			LeaveTypeID: leaveTypeUUID,
			CycleYear:   req.CycleYear,
		},
		txType:    txType,
		magnitude: magnitude,
		refType:   refType,
		refID:     req.ReferenceID,
		remarks:   req.Remarks,
		txDate:    txDate,
	}, nil
}

// applyWithRetry retries exactly once when the scope-sequence unique index
// reports a collision. The sequence row lock makes collisions rare; the
// index is the backstop for writers racing on a scope that had no sequence
// row yet.
func (s *service) applyWithRetry(ctx context.Context, p applyParams) (*TransactionResponse, error) {
	resp, err := s.apply(ctx, p)
	if err != nil && isUniqueViolation(err, "uq_ledger_scope_seq") {
		s.logger.Warn("scope sequence collision, retrying once",
			zap.String("employee_id", p.scope.EmployeeID.String()),
			zap.String("leave_type_id", p.scope.LeaveTypeID.String()),
			zap.Int("cycle_year", p.scope.CycleYear),
		)
		resp, err = s.apply(ctx, p)
	}
	return resp, err
}

func (s *service) apply(ctx context.Context, p applyParams) (*TransactionResponse, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.logger.Error("ledger begin tx failed", zap.Error(err))
		return nil, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	// Claiming the sequence first also takes the per-scope row lock; every
	// read below observes a frozen chain head until commit.
	seq, err := qtx.NextSequence(ctx, p.scope)
	if err != nil {
		s.logger.Error("ledger sequence claim failed", zap.Error(err))
		return nil, err
	}

	prev, err := qtx.LatestInScope(ctx, p.scope)
	if err != nil {
		s.logger.Error("ledger read latest failed", zap.Error(err))
		return nil, err
	}

	prevBalance := decimal.Zero
	var prevSeq int64
	if prev != nil {
		prevBalance = prev.BalanceAfter
		prevSeq = prev.SequenceNo
	}
	if seq != prevSeq+1 {
		s.logger.Error("ledger sequence does not follow chain head",
			zap.Int64("claimed", seq),
			zap.Int64("head", prevSeq),
		)
		return nil, ledgererrors.ErrSequenceGap
	}

	if p.bucketFrequency != "" {
		last, err := qtx.LatestAutoCreditDate(ctx, p.scope)
		if err != nil {
			return nil, err
		}
		if last != nil && leavetype.SameCycleBucket(p.bucketFrequency, *last, p.txDate) {
			return nil, ledgererrors.ErrAlreadyCredited
		}
	}

	if p.reverses != nil {
		reversed, err := qtx.HasReversalOf(ctx, *p.reverses)
		if err != nil {
			return nil, err
		}
		if reversed {
			return nil, ledgererrors.ErrAlreadyReversed
		}
	}

	amount := p.magnitude
	if IsDebitClass(p.txType) {
		if p.magnitude.GreaterThan(prevBalance) {
			s.logger.Warn("ledger write rejected: insufficient balance",
				zap.String("employee_id", p.scope.EmployeeID.String()),
				zap.String("transaction_type", p.txType),
				zap.String("requested", p.magnitude.String()),
				zap.String("available", prevBalance.String()),
			)
			return nil, ledgererrors.ErrInsufficientBalance
		}
		amount = p.magnitude.Neg()
	}

	if err := ValidateSign(p.txType, amount); err != nil {
		return nil, err
	}

	newBalance := prevBalance.Add(amount)

	entry := &LedgerEntry{
		ID:              uuid.New(),
		TenantID:        p.tenantID,
		EmployeeID:      p.scope.EmployeeID,
		LeaveTypeID:     p.scope.LeaveTypeID,
		CycleYear:       p.scope.CycleYear,
		SequenceNo:      seq,
		TransactionType: p.txType,
		Amount:          amount,
		BalanceAfter:    newBalance,
		TransactionDate: p.txDate,
		ReferenceType:   p.refType,
		ReferenceID:     p.refID,
		Remarks:         p.remarks,
		CreatedBy:       p.actorID,
		ReversesID:      p.reverses,
	}

	if err := qtx.Append(ctx, entry); err != nil {
		s.logger.Error("ledger append failed", zap.Error(err))
		return nil, err
	}

	cacheRow := &BalanceCache{
		ID:          uuid.New(),
		TenantID:    p.tenantID,
		EmployeeID:  p.scope.EmployeeID,
		LeaveTypeID: p.scope.LeaveTypeID,
		CycleYear:   p.scope.CycleYear,
		Year:        p.txDate.Year(),
		Month:       int(p.txDate.Month()),
		Opening:     prevBalance,
		Available:   newBalance,
	}
	if amount.IsNegative() {
		cacheRow.Debited = amount.Abs()
		cacheRow.Credited = decimal.Zero
	} else {
		cacheRow.Credited = amount
		cacheRow.Debited = decimal.Zero
	}
	if err := qtx.UpsertBalanceCacheRow(ctx, cacheRow); err != nil {
		s.logger.Error("balance cache upsert failed", zap.Error(err))
		return nil, err
	}

	if err := s.enqueueEntryEvent(ctx, tx, entry); err != nil {
		s.logger.Error("enqueue ledger event failed", zap.Error(err))
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("ledger commit failed", zap.Error(err))
		return nil, err
	}

	s.logger.Info("ledger entry appended",
		zap.String("entry_id", entry.ID.String()),
		zap.String("employee_id", entry.EmployeeID.String()),
		zap.String("leave_type_id", entry.LeaveTypeID.String()),
		zap.Int("cycle_year", entry.CycleYear),
		zap.Int64("sequence_no", entry.SequenceNo),
		zap.String("transaction_type", entry.TransactionType),
		zap.String("amount", entry.Amount.String()),
		zap.String("balance_after", entry.BalanceAfter.String()),
	)

	if s.readCache != nil {
		s.readCache.Invalidate(ctx, p.tenantID.String(), p.scope.EmployeeID.String(), p.scope.CycleYear)
	}

	return &TransactionResponse{
		Entry:           *entry,
		PreviousBalance: prevBalance.String(),
		NewBalance:      newBalance.String(),
	}, nil
}

func (s *service) enqueueEntryEvent(ctx context.Context, tx *sql.Tx, entry *LedgerEntry) error {
	payload, err := json.Marshal(events.LedgerEntryRecordedEvent{
		EventType:       "ledger_entry_recorded",
		EntryID:         entry.ID.String(),
		TenantID:        entry.TenantID.String(),
		EmployeeID:      entry.EmployeeID.String(),
		LeaveTypeID:     entry.LeaveTypeID.String(),
		CycleYear:       entry.CycleYear,
		TransactionType: entry.TransactionType,
		Amount:          entry.Amount.String(),
		BalanceAfter:    entry.BalanceAfter.String(),
		OccurredAt:      time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	return s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: "ledger_entry",
		AggregateID:   entry.EmployeeID.String(),
		EventType:     "ledger_entry_recorded",
		Topic:         events.LedgerEntryRecordedTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return false
}

package ledgererrors

import (
	"net/http"

	"leaveledger/internal/shared/apperror"
)

var (
	ErrInvalidTenantID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid tenant id",
		http.StatusBadRequest,
	)
	ErrInvalidEmployeeID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid employee id",
		http.StatusBadRequest,
	)
	ErrInvalidLeaveTypeID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid leave type id",
		http.StatusBadRequest,
	)
	ErrInvalidActorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid actor id",
		http.StatusBadRequest,
	)
	ErrInvalidCycleYear = apperror.New(
		apperror.CodeInvalidInput,
		"invalid cycle year",
		http.StatusBadRequest,
	)
	ErrInvalidAmount = apperror.New(
		apperror.CodeInvalidInput,
		"amount must be a non-negative quantity of leave days",
		http.StatusBadRequest,
	)
	ErrInvalidTransactionDate = apperror.New(
		apperror.CodeInvalidInput,
		"transaction date must be YYYY-MM-DD",
		http.StatusBadRequest,
	)
	ErrAmountSignMismatch = apperror.New(
		apperror.CodeInvalidInput,
		"amount sign does not match the transaction type",
		http.StatusBadRequest,
	)
	ErrUnknownTransactionType = apperror.New(
		apperror.CodeInvalidInput,
		"unknown transaction type",
		http.StatusBadRequest,
	)
	ErrEmployeeNotFound = apperror.New(
		apperror.CodeNotFound,
		"employee not found",
		http.StatusNotFound,
	)
	ErrLeaveTypeNotFound = apperror.New(
		apperror.CodeNotFound,
		"leave type not found",
		http.StatusNotFound,
	)
	ErrPolicyNotAssigned = apperror.New(
		apperror.CodeNotFound,
		"employee has no leave policy assigned",
		http.StatusNotFound,
	)
	ErrEntryNotFound = apperror.New(
		apperror.CodeNotFound,
		"ledger entry not found",
		http.StatusNotFound,
	)
	ErrInsufficientBalance = apperror.New(
		apperror.CodeInsufficientBalance,
		"debit exceeds available balance",
		http.StatusConflict,
	)
	ErrAlreadyReversed = apperror.New(
		apperror.CodeConflict,
		"ledger entry has already been reversed",
		http.StatusConflict,
	)
	ErrNotReversible = apperror.New(
		apperror.CodeInvalidState,
		"only debit-class entries can be reversed",
		http.StatusBadRequest,
	)
	// ErrAlreadyCredited marks an idempotency skip inside the crediting
	// transaction; the scheduler treats it as control flow, not a failure.
	ErrAlreadyCredited = apperror.New(
		apperror.CodeConflict,
		"scope already credited in the current cycle bucket",
		http.StatusConflict,
	)
	ErrSequenceGap = apperror.New(
		apperror.CodeInternalError,
		"ledger sequence does not follow the latest entry",
		http.StatusInternalServerError,
	)
)

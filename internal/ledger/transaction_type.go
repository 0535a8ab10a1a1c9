package ledger

import (
	"github.com/shopspring/decimal"

	ledgererrors "leaveledger/internal/ledger/errors"
)

// Transaction types recorded in the ledger. The set is closed; every type
// belongs to exactly one sign class.
const (
	TxCredit           = "credit"
	TxDebit            = "debit"
	TxAdjustmentCredit = "adjustment_credit"
	TxAdjustmentDebit  = "adjustment_debit"
	TxCarryForward     = "carry_forward"
	TxEncashment       = "encashment"
	TxLapse            = "lapse"
	TxPenalty          = "penalty"
	TxReversal         = "reversal"
)

// Reference types describing what caused an entry.
const (
	RefAutoCredit   = "auto_credit"
	RefManual       = "manual"
	RefLeaveRequest = "leave_request"
	RefReversal     = "reversal"
)

var creditClass = map[string]struct{}{
	TxCredit:           {},
	TxAdjustmentCredit: {},
	TxCarryForward:     {},
	TxReversal:         {},
}

var debitClass = map[string]struct{}{
	TxDebit:           {},
	TxAdjustmentDebit: {},
	TxEncashment:      {},
	TxLapse:           {},
	TxPenalty:         {},
}

// Entries whose effect may be compensated with a reversal entry.
var reversible = map[string]struct{}{
	TxDebit:           {},
	TxAdjustmentDebit: {},
	TxPenalty:         {},
}

func IsCreditClass(txType string) bool {
	_, ok := creditClass[txType]
	return ok
}

func IsDebitClass(txType string) bool {
	_, ok := debitClass[txType]
	return ok
}

func IsReversible(txType string) bool {
	_, ok := reversible[txType]
	return ok
}

// ValidateSign checks the stored amount against the transaction type's sign
// class before any append. Credit-class entries are non-negative (a zero
// credit is a valid cycle marker); debit-class entries are strictly negative.
func ValidateSign(txType string, amount decimal.Decimal) error {
	switch {
	case IsCreditClass(txType):
		if amount.IsNegative() {
			return ledgererrors.ErrAmountSignMismatch
		}
		return nil
	case IsDebitClass(txType):
		if !amount.IsNegative() {
			return ledgererrors.ErrAmountSignMismatch
		}
		return nil
	default:
		return ledgererrors.ErrUnknownTransactionType
	}
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntrySource identifies the code path that produced a ledger entry.
type EntrySource string

const (
	SourceManualEntry         EntrySource = "MANUAL_ENTRY"
	SourcePaymentFinalization EntrySource = "PAYMENT_FINALIZATION"
)

// LedgerEntry is an immutable audit record of one balance mutation.
// Entries are only ever inserted, in the same transaction as the balance
// write they describe.
type LedgerEntry struct {
	ID             string
	AccountID      string
	Amount         decimal.Decimal
	BalanceBefore  decimal.Decimal
	BalanceAfter   decimal.Decimal
	Category       string
	Description    string
	Source         EntrySource
	BatchID        string
	PaymentRef     string
	Actor          string
	AccountVersion int64
	CreatedAt      time.Time
}

// Validate enforces balanceAfter - balanceBefore == amount.
func (e *LedgerEntry) Validate() error {
	if e.Amount.IsZero() {
		return ErrInvalidAmount
	}
	if !e.BalanceAfter.Sub(e.BalanceBefore).Equal(e.Amount) {
		return ErrEntryUnbalanced
	}
	return nil
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountState is the captured pre-mutation state of one account.
type AccountState struct {
	AccountID  string
	Balance    decimal.Decimal
	TotalSpend decimal.Decimal
	Version    int64
}

// PaymentState is the captured pre-mutation state of one staged payment.
type PaymentState struct {
	PaymentID string
	Status    PaymentStatus
}

// UndoSnapshot captures the state of every entity a batch will touch, taken
// before the first mutation. It backs operator-triggered compensation, not
// automatic rollback: restoring replays the captured balances as new audited
// mutations through the ledger.
type UndoSnapshot struct {
	ID         string
	BatchID    string
	Accounts   []AccountState
	Payments   []PaymentState
	RestoredAt *time.Time
	CreatedAt  time.Time
}

// Restored reports whether this snapshot was already replayed.
func (s *UndoSnapshot) Restored() bool {
	return s.RestoredAt != nil
}

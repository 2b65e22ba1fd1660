package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountKind distinguishes budget lines from bank/cash accounts.
type AccountKind string

const (
	AccountKindBudgetLine AccountKind = "budget_line"
	AccountKindBank       AccountKind = "bank"
)

// Account represents a balance-holding account: either a budget line that
// payments draw down, or a bank/cash account.
type Account struct {
	ID         string
	Name       string
	Kind       AccountKind
	Currency   string
	Allocated  decimal.Decimal
	TotalSpend decimal.Decimal
	Balance    decimal.Decimal
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ApplyMutation returns the balance and total spend after applying a signed
// amount (positive = inflow, negative = outflow). The account itself is not
// modified; persisting the result is the ledger's job.
func (a *Account) ApplyMutation(amount decimal.Decimal) (balance, totalSpend decimal.Decimal) {
	return a.Balance.Add(amount), a.TotalSpend.Sub(amount)
}

// CheckConsistent verifies the derived-balance invariant
// balance == allocated - totalSpend.
func (a *Account) CheckConsistent() error {
	if !a.Balance.Equal(a.Allocated.Sub(a.TotalSpend)) {
		return ErrBalanceInconsistent
	}
	return nil
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxReturnEntry records one WHT-bearing, local-currency payment for the
// statutory return. Written after the balance update succeeds; immutable.
type TaxReturnEntry struct {
	ID          string
	BatchID     string
	PaymentID   string
	VoucherRef  string
	Vendor      string
	InvoiceRef  string
	GrossAmount decimal.Decimal
	WHTAmount   decimal.Decimal
	WHTRate     decimal.Decimal
	Currency    string
	CreatedAt   time.Time
}

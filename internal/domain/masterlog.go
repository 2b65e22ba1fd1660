package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MasterLogRecord is an append-only, denormalized summary of one finalized
// payment, kept for downstream reporting. One record per payment per batch.
type MasterLogRecord struct {
	ID          string
	BatchID     string
	PaymentID   string
	VoucherRef  string
	Vendor      string
	InvoiceRef  string
	AccountID   string
	AccountName string
	Currency    string
	PreTax      decimal.Decimal
	WHT         decimal.Decimal
	Levy        decimal.Decimal
	VAT         decimal.Decimal
	Fee         decimal.Decimal
	NetPayable  decimal.Decimal
	TotalCost   decimal.Decimal
	Actor       string
	CreatedAt   time.Time
}

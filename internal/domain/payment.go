package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the lifecycle state of a staged payment.
type PaymentStatus string

const (
	PaymentStatusStaged    PaymentStatus = "staged"
	PaymentStatusFinalized PaymentStatus = "finalized"
)

// ProcurementType classifies a payment for statutory tax treatment.
type ProcurementType string

const (
	ProcurementGoods    ProcurementType = "goods"
	ProcurementServices ProcurementType = "services"
	ProcurementWorks    ProcurementType = "works"
)

// PaymentMode is the disbursement channel.
type PaymentMode string

const (
	ModeBankTransfer PaymentMode = "bank_transfer"
	ModeCheque       PaymentMode = "cheque"
	ModeMobileMoney  PaymentMode = "mobile_money"
)

// StagedPayment is a vendor payment awaiting finalization. Created by the
// upstream voucher-generation flow; consumed and status-flipped exactly once
// by the finalization pipeline.
type StagedPayment struct {
	ID              string
	Vendor          string
	InvoiceRef      string
	PreTax          decimal.Decimal
	Currency        string
	FXRate          decimal.Decimal
	ProcurementType ProcurementType
	PaymentMode     PaymentMode
	ApplyVAT        bool
	// PartialPct is the percentage of the invoice being paid (0 or 100 = full).
	// Applied to the pre-tax amount before any tax computation.
	PartialPct    decimal.Decimal
	BudgetLineRef string
	AccountID     string
	Taxes         TaxBreakdown
	Status        PaymentStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsPartial reports whether the payment covers only part of the invoice.
func (p *StagedPayment) IsPartial() bool {
	return !p.PartialPct.IsZero() && !p.PartialPct.Equal(decimal.NewFromInt(100))
}

// TaxBreakdown holds the computed statutory deductions for one payment.
// All amounts are rounded to 2 decimal places; they are outputs, never
// intermediates.
type TaxBreakdown struct {
	WHTRate decimal.Decimal
	WHT     decimal.Decimal
	Levy    decimal.Decimal
	VAT     decimal.Decimal
	Fee     decimal.Decimal
	// NetPayable is what the vendor receives: base - wht + levy + vat + fee.
	NetPayable decimal.Decimal
	// TotalCost is what the budget line bears: base + levy + vat + fee.
	// WHT is remitted to the revenue authority on the vendor's behalf, so it
	// is part of the cost even though the vendor never sees it.
	TotalCost decimal.Decimal
}

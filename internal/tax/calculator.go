// Package tax computes statutory deductions for staged payments: withholding
// tax, VAT, the goods levy, and the mobile-money disbursement fee.
//
// The calculator is pure given its configuration and the injected rate table.
// Intermediate math stays unrounded; only the output breakdown is rounded to
// 2 decimal places, so rounding error never compounds across the levy, VAT
// and WHT stages.
package tax

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/obeng/payrun/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// RateTable supplies the effective withholding rate for a procurement type.
// Rates are fractions (0.075 for 7.5%), maintained externally.
type RateTable interface {
	EffectiveWHTRate(ctx context.Context, procurement domain.ProcurementType) (decimal.Decimal, error)
}

// Config holds the statutory rates that are flat policy rather than
// per-procurement-type lookup values.
type Config struct {
	// LevyRate applies to the pre-tax amount of goods procurement.
	LevyRate decimal.Decimal
	// VATRate applies to (base + levy - wht) when the payment opts in.
	VATRate decimal.Decimal
	// MomoFeeRate is the payer-borne surcharge for mobile-money disbursement.
	MomoFeeRate decimal.Decimal
	// LocalCurrency is the currency in which WHT is remittable.
	LocalCurrency string
}

// Calculator computes tax breakdowns. Construct with New; no package-level
// state is involved.
type Calculator struct {
	cfg   Config
	rates RateTable
}

// New creates a Calculator.
func New(cfg Config, rates RateTable) *Calculator {
	return &Calculator{cfg: cfg, rates: rates}
}

// components holds the unrounded amounts. Kept internal so tests can assert
// the unrounded identity net = base - wht + levy + vat + fee.
type components struct {
	base decimal.Decimal
	wht  decimal.Decimal
	levy decimal.Decimal
	vat  decimal.Decimal
	fee  decimal.Decimal
}

func (c components) net() decimal.Decimal {
	return c.base.Sub(c.wht).Add(c.levy).Add(c.vat).Add(c.fee)
}

func (c components) totalCost() decimal.Decimal {
	return c.base.Add(c.levy).Add(c.vat).Add(c.fee)
}

func (c *Calculator) compute(p *domain.StagedPayment, whtRate decimal.Decimal) components {
	base := p.PreTax
	if p.IsPartial() {
		// Partial percentage scales the taxable base before any tax stage,
		// not the component amounts after.
		base = p.PreTax.Mul(p.PartialPct).Div(hundred)
	}

	out := components{base: base}
	out.wht = base.Mul(whtRate)

	if p.ProcurementType == domain.ProcurementGoods {
		out.levy = base.Mul(c.cfg.LevyRate)
	}

	if p.ApplyVAT {
		// Statutory VAT base is (pre-tax + levy - wht), not raw pre-tax.
		out.vat = base.Add(out.levy).Sub(out.wht).Mul(c.cfg.VATRate)
	}

	if p.PaymentMode == domain.ModeMobileMoney {
		out.fee = base.Mul(c.cfg.MomoFeeRate)
	}

	return out
}

// Compute returns the rounded tax breakdown for a payment. The withholding
// rate comes from the external rate table keyed by procurement type.
func (c *Calculator) Compute(ctx context.Context, p *domain.StagedPayment) (domain.TaxBreakdown, error) {
	whtRate, err := c.rates.EffectiveWHTRate(ctx, p.ProcurementType)
	if err != nil {
		return domain.TaxBreakdown{}, fmt.Errorf("lookup wht rate for %q: %w", p.ProcurementType, err)
	}

	out := c.compute(p, whtRate)

	return domain.TaxBreakdown{
		WHTRate:    whtRate,
		WHT:        out.wht.Round(2),
		Levy:       out.levy.Round(2),
		VAT:        out.vat.Round(2),
		Fee:        out.fee.Round(2),
		NetPayable: out.net().Round(2),
		TotalCost:  out.totalCost().Round(2),
	}, nil
}

// RemittableWHT reports whether a payment's withholding must appear on the
// statutory tax return: local currency and a non-zero withheld amount.
func (c *Calculator) RemittableWHT(p *domain.StagedPayment) bool {
	return p.Currency == c.cfg.LocalCurrency && !p.Taxes.WHT.IsZero()
}

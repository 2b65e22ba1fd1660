package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obeng/payrun/internal/domain"
)

// PaymentRepository implements usecase.PaymentRepository.
type PaymentRepository struct {
	pool *pgxpool.Pool
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

const paymentColumns = `id, vendor, invoice_ref, pre_tax, currency, fx_rate, procurement_type, payment_mode, apply_vat, partial_pct, budget_line_ref, account_id, wht_rate, wht_amount, levy_amount, vat_amount, fee_amount, net_payable, total_cost, status, created_at, updated_at`

// Create stages a new payment.
func (r *PaymentRepository) Create(ctx context.Context, p *domain.StagedPayment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO staged_payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)`,
		p.ID,
		p.Vendor,
		p.InvoiceRef,
		decimalToNumeric(p.PreTax),
		p.Currency,
		decimalToNumeric(p.FXRate),
		string(p.ProcurementType),
		string(p.PaymentMode),
		p.ApplyVAT,
		decimalToNumeric(p.PartialPct),
		p.BudgetLineRef,
		p.AccountID,
		decimalToNumeric(p.Taxes.WHTRate),
		decimalToNumeric(p.Taxes.WHT),
		decimalToNumeric(p.Taxes.Levy),
		decimalToNumeric(p.Taxes.VAT),
		decimalToNumeric(p.Taxes.Fee),
		decimalToNumeric(p.Taxes.NetPayable),
		decimalToNumeric(p.Taxes.TotalCost),
		string(p.Status),
		timeToPgTimestamptz(p.CreatedAt),
		timeToPgTimestamptz(p.UpdatedAt),
	)

	return err
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.StagedPayment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM staged_payments WHERE id = $1`, id)

	return scanPayment(row)
}

// GetByIDs retrieves multiple payments. Missing IDs are simply absent from
// the result; callers compare lengths.
func (r *PaymentRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.StagedPayment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM staged_payments WHERE id = ANY($1)
		ORDER BY created_at`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.StagedPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}

		payments = append(payments, p)
	}

	return payments, rows.Err()
}

// UpdateFinalization persists resolution, taxes and status in one write.
func (r *PaymentRepository) UpdateFinalization(ctx context.Context, id, accountID string, taxes domain.TaxBreakdown, status domain.PaymentStatus, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE staged_payments
		SET account_id = $1, wht_rate = $2, wht_amount = $3, levy_amount = $4,
		    vat_amount = $5, fee_amount = $6, net_payable = $7, total_cost = $8,
		    status = $9, updated_at = $10
		WHERE id = $11`,
		accountID,
		decimalToNumeric(taxes.WHTRate),
		decimalToNumeric(taxes.WHT),
		decimalToNumeric(taxes.Levy),
		decimalToNumeric(taxes.VAT),
		decimalToNumeric(taxes.Fee),
		decimalToNumeric(taxes.NetPayable),
		decimalToNumeric(taxes.TotalCost),
		string(status),
		timeToPgTimestamptz(updatedAt),
		id,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}

	return nil
}

// UpdateStatus flips only the payment status.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE staged_payments SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), timeToPgTimestamptz(updatedAt), id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}

	return nil
}

func scanPayment(row rowScanner) (*domain.StagedPayment, error) {
	var (
		p                         domain.StagedPayment
		procurement, mode, status string
		preTax, fxRate, partial   pgtype.Numeric
		whtRate, wht, levy, vat   pgtype.Numeric
		fee, net, total           pgtype.Numeric
		createdAt, updatedAt      pgtype.Timestamptz
	)

	err := row.Scan(&p.ID, &p.Vendor, &p.InvoiceRef, &preTax, &p.Currency,
		&fxRate, &procurement, &mode, &p.ApplyVAT, &partial, &p.BudgetLineRef,
		&p.AccountID, &whtRate, &wht, &levy, &vat, &fee, &net, &total,
		&status, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}

		return nil, err
	}

	p.PreTax = numericToDecimal(preTax)
	p.FXRate = numericToDecimal(fxRate)
	p.ProcurementType = domain.ProcurementType(procurement)
	p.PaymentMode = domain.PaymentMode(mode)
	p.PartialPct = numericToDecimal(partial)
	p.Taxes = domain.TaxBreakdown{
		WHTRate:    numericToDecimal(whtRate),
		WHT:        numericToDecimal(wht),
		Levy:       numericToDecimal(levy),
		VAT:        numericToDecimal(vat),
		Fee:        numericToDecimal(fee),
		NetPayable: numericToDecimal(net),
		TotalCost:  numericToDecimal(total),
	}
	p.Status = domain.PaymentStatus(status)
	p.CreatedAt = createdAt.Time
	p.UpdatedAt = updatedAt.Time

	return &p, nil
}

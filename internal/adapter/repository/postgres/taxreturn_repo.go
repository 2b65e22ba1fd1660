package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obeng/payrun/internal/domain"
)

// TaxReturnRepository implements usecase.TaxReturnRepository. Insert only.
type TaxReturnRepository struct {
	pool *pgxpool.Pool
}

// NewTaxReturnRepository creates a new TaxReturnRepository.
func NewTaxReturnRepository(pool *pgxpool.Pool) *TaxReturnRepository {
	return &TaxReturnRepository{pool: pool}
}

// Create writes one tax-return entry.
func (r *TaxReturnRepository) Create(ctx context.Context, entry *domain.TaxReturnEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tax_return_entries
			(id, batch_id, payment_id, voucher_ref, vendor, invoice_ref, gross_amount, wht_amount, wht_rate, currency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID,
		entry.BatchID,
		entry.PaymentID,
		entry.VoucherRef,
		entry.Vendor,
		entry.InvoiceRef,
		decimalToNumeric(entry.GrossAmount),
		decimalToNumeric(entry.WHTAmount),
		decimalToNumeric(entry.WHTRate),
		entry.Currency,
		timeToPgTimestamptz(entry.CreatedAt),
	)

	return err
}

// ListByBatch retrieves the tax-return entries of one batch.
func (r *TaxReturnRepository) ListByBatch(ctx context.Context, batchID string) ([]*domain.TaxReturnEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, batch_id, payment_id, voucher_ref, vendor, invoice_ref, gross_amount, wht_amount, wht_rate, currency, created_at
		FROM tax_return_entries WHERE batch_id = $1 ORDER BY created_at`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.TaxReturnEntry
	for rows.Next() {
		var (
			entry            domain.TaxReturnEntry
			gross, wht, rate pgtype.Numeric
			createdAt        pgtype.Timestamptz
		)

		err := rows.Scan(&entry.ID, &entry.BatchID, &entry.PaymentID,
			&entry.VoucherRef, &entry.Vendor, &entry.InvoiceRef,
			&gross, &wht, &rate, &entry.Currency, &createdAt)
		if err != nil {
			return nil, err
		}

		entry.GrossAmount = numericToDecimal(gross)
		entry.WHTAmount = numericToDecimal(wht)
		entry.WHTRate = numericToDecimal(rate)
		entry.CreatedAt = createdAt.Time

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

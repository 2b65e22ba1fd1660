package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obeng/payrun/internal/domain"
)

// MasterLogRepository implements usecase.MasterLogRepository. Insert only;
// the master log is the denormalized reporting trail.
type MasterLogRepository struct {
	pool *pgxpool.Pool
}

// NewMasterLogRepository creates a new MasterLogRepository.
func NewMasterLogRepository(pool *pgxpool.Pool) *MasterLogRepository {
	return &MasterLogRepository{pool: pool}
}

const masterLogColumns = `id, batch_id, payment_id, voucher_ref, vendor, invoice_ref, account_id, account_name, currency, pre_tax, wht_amount, levy_amount, vat_amount, fee_amount, net_payable, total_cost, actor, created_at`

// Create appends one master-log record.
func (r *MasterLogRepository) Create(ctx context.Context, record *domain.MasterLogRecord) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO master_log (`+masterLogColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		record.ID,
		record.BatchID,
		record.PaymentID,
		record.VoucherRef,
		record.Vendor,
		record.InvoiceRef,
		record.AccountID,
		record.AccountName,
		record.Currency,
		decimalToNumeric(record.PreTax),
		decimalToNumeric(record.WHT),
		decimalToNumeric(record.Levy),
		decimalToNumeric(record.VAT),
		decimalToNumeric(record.Fee),
		decimalToNumeric(record.NetPayable),
		decimalToNumeric(record.TotalCost),
		record.Actor,
		timeToPgTimestamptz(record.CreatedAt),
	)

	return err
}

// ListByBatch retrieves the master-log records of one batch.
func (r *MasterLogRepository) ListByBatch(ctx context.Context, batchID string) ([]*domain.MasterLogRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+masterLogColumns+`
		FROM master_log WHERE batch_id = $1 ORDER BY created_at`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.MasterLogRecord
	for rows.Next() {
		var (
			record                 domain.MasterLogRecord
			preTax, wht, levy, vat pgtype.Numeric
			fee, net, total        pgtype.Numeric
			createdAt              pgtype.Timestamptz
		)

		err := rows.Scan(&record.ID, &record.BatchID, &record.PaymentID,
			&record.VoucherRef, &record.Vendor, &record.InvoiceRef,
			&record.AccountID, &record.AccountName, &record.Currency,
			&preTax, &wht, &levy, &vat, &fee, &net, &total,
			&record.Actor, &createdAt)
		if err != nil {
			return nil, err
		}

		record.PreTax = numericToDecimal(preTax)
		record.WHT = numericToDecimal(wht)
		record.Levy = numericToDecimal(levy)
		record.VAT = numericToDecimal(vat)
		record.Fee = numericToDecimal(fee)
		record.NetPayable = numericToDecimal(net)
		record.TotalCost = numericToDecimal(total)
		record.CreatedAt = createdAt.Time

		records = append(records, &record)
	}

	return records, rows.Err()
}

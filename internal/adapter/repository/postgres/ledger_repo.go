package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/obeng/payrun/internal/domain"
	"github.com/obeng/payrun/internal/usecase"
)

// LedgerRepository implements usecase.LedgerRepository. Entries are insert
// only; there is no update or delete path.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

const entryColumns = `id, account_id, amount, balance_before, balance_after, category, description, source, batch_id, payment_ref, actor, account_version, created_at`

// CreateEntry appends a ledger entry inside the caller's transaction.
func (r *LedgerRepository) CreateEntry(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	pgxTx := tx.(*Tx).PgxTx()

	_, err := pgxTx.Exec(ctx, `
		INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		entry.ID,
		entry.AccountID,
		decimalToNumeric(entry.Amount),
		decimalToNumeric(entry.BalanceBefore),
		decimalToNumeric(entry.BalanceAfter),
		entry.Category,
		entry.Description,
		string(entry.Source),
		entry.BatchID,
		entry.PaymentRef,
		entry.Actor,
		entry.AccountVersion,
		timeToPgTimestamptz(entry.CreatedAt),
	)

	return err
}

// ListByAccount retrieves entries for an account, newest first.
func (r *LedgerRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries WHERE account_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		accountID, int32(limit), int32(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// GetByBatch retrieves all entries written by one batch.
func (r *LedgerRepository) GetByBatch(ctx context.Context, batchID string) ([]*domain.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+entryColumns+`
		FROM ledger_entries WHERE batch_id = $1
		ORDER BY created_at`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

// SumByAccount returns the signed sum of all entries for an account.
func (r *LedgerRepository) SumByAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var sum pgtype.Numeric

	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_entries WHERE account_id = $1`, accountID).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}

	return numericToDecimal(sum), nil
}

func scanEntries(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry

	for rows.Next() {
		var (
			entry          domain.LedgerEntry
			source         string
			amount, before pgtype.Numeric
			after          pgtype.Numeric
			createdAt      pgtype.Timestamptz
		)

		err := rows.Scan(&entry.ID, &entry.AccountID, &amount, &before, &after,
			&entry.Category, &entry.Description, &source, &entry.BatchID,
			&entry.PaymentRef, &entry.Actor, &entry.AccountVersion, &createdAt)
		if err != nil {
			return nil, err
		}

		entry.Amount = numericToDecimal(amount)
		entry.BalanceBefore = numericToDecimal(before)
		entry.BalanceAfter = numericToDecimal(after)
		entry.Source = domain.EntrySource(source)
		entry.CreatedAt = createdAt.Time

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}

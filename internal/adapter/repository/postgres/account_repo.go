package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/obeng/payrun/internal/domain"
	"github.com/obeng/payrun/internal/usecase"
)

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, name, kind, currency, allocated, total_spend, balance, version, created_at, updated_at`

// Create creates a new account.
func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (`+accountColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		account.ID,
		account.Name,
		string(account.Kind),
		account.Currency,
		decimalToNumeric(account.Allocated),
		decimalToNumeric(account.TotalSpend),
		decimalToNumeric(account.Balance),
		account.Version,
		timeToPgTimestamptz(account.CreatedAt),
		timeToPgTimestamptz(account.UpdatedAt),
	)

	return err
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)

	return scanAccount(row)
}

// GetByName retrieves the first account with an exact name match, by
// creation order.
func (r *AccountRepository) GetByName(ctx context.Context, name string) (*domain.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts WHERE name = $1
		ORDER BY created_at LIMIT 1`, name)

	return scanAccount(row)
}

// UpdateBalanceCAS performs the optimistic compare-and-swap balance write.
func (r *AccountRepository) UpdateBalanceCAS(ctx context.Context, tx usecase.Transaction, id string, expectedVersion int64, balance, totalSpend decimal.Decimal, updatedAt time.Time) error {
	pgxTx := tx.(*Tx).PgxTx()

	tag, err := pgxTx.Exec(ctx, `
		UPDATE accounts
		SET balance = $1, total_spend = $2, version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5`,
		decimalToNumeric(balance),
		decimalToNumeric(totalSpend),
		timeToPgTimestamptz(updatedAt),
		id,
		expectedVersion,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		// Either the account vanished or another writer bumped the version.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}

		return domain.ErrConcurrentConflict
	}

	return nil
}

// List lists accounts with pagination, by creation order.
func (r *AccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts ORDER BY created_at LIMIT $1 OFFSET $2`,
		int32(limit), int32(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}

		accounts = append(accounts, account)
	}

	return accounts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		account            domain.Account
		kind               string
		alloc, spend, bal  pgtype.Numeric
		createdAt, updated pgtype.Timestamptz
	)

	err := row.Scan(&account.ID, &account.Name, &kind, &account.Currency,
		&alloc, &spend, &bal, &account.Version, &createdAt, &updated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}

		return nil, err
	}

	account.Kind = domain.AccountKind(kind)
	account.Allocated = numericToDecimal(alloc)
	account.TotalSpend = numericToDecimal(spend)
	account.Balance = numericToDecimal(bal)
	account.CreatedAt = createdAt.Time
	account.UpdatedAt = updated.Time

	return &account, nil
}

// Type conversion helpers.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

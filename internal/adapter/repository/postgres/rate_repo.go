package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/obeng/payrun/internal/domain"
)

// RateRepository implements tax.RateTable against the wht_rates table. The
// rate schedule is maintained externally; this repository only reads it.
type RateRepository struct {
	pool *pgxpool.Pool
}

// NewRateRepository creates a new RateRepository.
func NewRateRepository(pool *pgxpool.Pool) *RateRepository {
	return &RateRepository{pool: pool}
}

// EffectiveWHTRate returns the withholding rate for a procurement type.
func (r *RateRepository) EffectiveWHTRate(ctx context.Context, procurement domain.ProcurementType) (decimal.Decimal, error) {
	var rate pgtype.Numeric

	err := r.pool.QueryRow(ctx, `
		SELECT rate FROM wht_rates WHERE procurement_type = $1`,
		string(procurement)).Scan(&rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, domain.ErrUnknownProcurementType
		}

		return decimal.Zero, err
	}

	return numericToDecimal(rate), nil
}

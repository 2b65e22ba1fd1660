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

// BatchRepository implements usecase.BatchRepository.
type BatchRepository struct {
	pool *pgxpool.Pool
}

// NewBatchRepository creates a new BatchRepository.
func NewBatchRepository(pool *pgxpool.Pool) *BatchRepository {
	return &BatchRepository{pool: pool}
}

// Create creates a new finalization batch.
func (r *BatchRepository) Create(ctx context.Context, batch *domain.FinalizationBatch) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO finalization_batches
			(id, voucher_ref, payment_ids, step, error_detail, snapshot_id, actor, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		batch.ID,
		batch.VoucherRef,
		batch.PaymentIDs,
		string(batch.Step),
		batch.ErrorDetail,
		batch.SnapshotID,
		batch.Actor,
		timeToPgTimestamptz(batch.CreatedAt),
		timeToPgTimestamptz(batch.UpdatedAt),
	)

	return err
}

// GetByID retrieves a batch by ID.
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*domain.FinalizationBatch, error) {
	var (
		batch                domain.FinalizationBatch
		step                 string
		createdAt, updatedAt pgtype.Timestamptz
	)

	err := r.pool.QueryRow(ctx, `
		SELECT id, voucher_ref, payment_ids, step, error_detail, snapshot_id, actor, created_at, updated_at
		FROM finalization_batches WHERE id = $1`, id).
		Scan(&batch.ID, &batch.VoucherRef, &batch.PaymentIDs, &step,
			&batch.ErrorDetail, &batch.SnapshotID, &batch.Actor, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrBatchNotFound
		}

		return nil, err
	}

	batch.Step = domain.Step(step)
	batch.CreatedAt = createdAt.Time
	batch.UpdatedAt = updatedAt.Time

	return &batch, nil
}

// UpdateStep advances the batch state machine.
func (r *BatchRepository) UpdateStep(ctx context.Context, id string, step domain.Step, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE finalization_batches SET step = $1, updated_at = $2 WHERE id = $3`,
		string(step), timeToPgTimestamptz(updatedAt), id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrBatchNotFound
	}

	return nil
}

// SetError records the terminal ERROR state with the failing step and detail.
func (r *BatchRepository) SetError(ctx context.Context, id string, step domain.Step, detail string, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE finalization_batches
		SET step = $1, error_detail = $2, updated_at = $3
		WHERE id = $4`,
		string(domain.StepError),
		string(step)+": "+detail,
		timeToPgTimestamptz(updatedAt),
		id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrBatchNotFound
	}

	return nil
}

// SetSnapshot links the undo snapshot to the batch.
func (r *BatchRepository) SetSnapshot(ctx context.Context, id, snapshotID string, updatedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE finalization_batches SET snapshot_id = $1, updated_at = $2 WHERE id = $3`,
		snapshotID, timeToPgTimestamptz(updatedAt), id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrBatchNotFound
	}

	return nil
}

package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obeng/payrun/internal/domain"
)

// SnapshotRepository implements usecase.SnapshotRepository. Account and
// payment states are stored as JSONB documents; they are opaque to SQL.
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new SnapshotRepository.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// Create persists an undo snapshot.
func (r *SnapshotRepository) Create(ctx context.Context, snapshot *domain.UndoSnapshot) error {
	accounts, err := json.Marshal(snapshot.Accounts)
	if err != nil {
		return err
	}

	payments, err := json.Marshal(snapshot.Payments)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO undo_snapshots (id, batch_id, accounts, payments, restored_at, created_at)
		VALUES ($1, $2, $3, $4, NULL, $5)`,
		snapshot.ID,
		snapshot.BatchID,
		accounts,
		payments,
		timeToPgTimestamptz(snapshot.CreatedAt),
	)

	return err
}

// GetByBatch retrieves the snapshot captured for a batch.
func (r *SnapshotRepository) GetByBatch(ctx context.Context, batchID string) (*domain.UndoSnapshot, error) {
	var (
		snapshot           domain.UndoSnapshot
		accounts, payments []byte
		restoredAt         pgtype.Timestamptz
		createdAt          pgtype.Timestamptz
	)

	err := r.pool.QueryRow(ctx, `
		SELECT id, batch_id, accounts, payments, restored_at, created_at
		FROM undo_snapshots WHERE batch_id = $1`, batchID).
		Scan(&snapshot.ID, &snapshot.BatchID, &accounts, &payments, &restoredAt, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSnapshotNotFound
		}

		return nil, err
	}

	if err := json.Unmarshal(accounts, &snapshot.Accounts); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(payments, &snapshot.Payments); err != nil {
		return nil, err
	}

	if restoredAt.Valid {
		t := restoredAt.Time
		snapshot.RestoredAt = &t
	}

	snapshot.CreatedAt = createdAt.Time

	return &snapshot, nil
}

// MarkRestored stamps the snapshot as consumed.
func (r *SnapshotRepository) MarkRestored(ctx context.Context, id string, restoredAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE undo_snapshots SET restored_at = $1 WHERE id = $2 AND restored_at IS NULL`,
		timeToPgTimestamptz(restoredAt), id)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrSnapshotRestored
	}

	return nil
}

package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/obeng/payrun/internal/domain"
)

// AccountRepository defines data access for balance accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	// GetByName returns the first account with the exact name, by creation
	// order. Duplicate names are an upstream data-quality concern.
	GetByName(ctx context.Context, name string) (*domain.Account, error)
	// UpdateBalanceCAS writes balance and total spend only if the stored
	// version still equals expectedVersion, bumping the version. Returns
	// domain.ErrConcurrentConflict when another writer got there first.
	UpdateBalanceCAS(ctx context.Context, tx Transaction, id string, expectedVersion int64, balance, totalSpend decimal.Decimal, updatedAt time.Time) error
	List(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

// LedgerRepository defines data access for immutable ledger entries.
type LedgerRepository interface {
	CreateEntry(ctx context.Context, tx Transaction, entry *domain.LedgerEntry) error
	ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error)
	GetByBatch(ctx context.Context, batchID string) ([]*domain.LedgerEntry, error)
	// SumByAccount returns the signed sum of all entries for an account,
	// for conservation checks.
	SumByAccount(ctx context.Context, accountID string) (decimal.Decimal, error)
}

// PaymentRepository defines data access for staged payments.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.StagedPayment) error
	GetByID(ctx context.Context, id string) (*domain.StagedPayment, error)
	GetByIDs(ctx context.Context, ids []string) ([]*domain.StagedPayment, error)
	// UpdateFinalization persists the resolved account, computed taxes and
	// new status in one write.
	UpdateFinalization(ctx context.Context, id, accountID string, taxes domain.TaxBreakdown, status domain.PaymentStatus, updatedAt time.Time) error
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, updatedAt time.Time) error
}

// BatchRepository defines data access for finalization batches.
type BatchRepository interface {
	Create(ctx context.Context, batch *domain.FinalizationBatch) error
	GetByID(ctx context.Context, id string) (*domain.FinalizationBatch, error)
	UpdateStep(ctx context.Context, id string, step domain.Step, updatedAt time.Time) error
	SetError(ctx context.Context, id string, step domain.Step, detail string, updatedAt time.Time) error
	SetSnapshot(ctx context.Context, id, snapshotID string, updatedAt time.Time) error
}

// SnapshotRepository defines data access for undo snapshots.
type SnapshotRepository interface {
	Create(ctx context.Context, snapshot *domain.UndoSnapshot) error
	GetByBatch(ctx context.Context, batchID string) (*domain.UndoSnapshot, error)
	MarkRestored(ctx context.Context, id string, restoredAt time.Time) error
}

// TaxReturnRepository defines data access for tax-return entries.
type TaxReturnRepository interface {
	Create(ctx context.Context, entry *domain.TaxReturnEntry) error
	ListByBatch(ctx context.Context, batchID string) ([]*domain.TaxReturnEntry, error)
}

// MasterLogRepository defines data access for the payment master log.
type MasterLogRepository interface {
	Create(ctx context.Context, record *domain.MasterLogRecord) error
	ListByBatch(ctx context.Context, batchID string) ([]*domain.MasterLogRecord, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// Retrier re-runs an operation on retryable conflicts, a bounded number of
// times. The operation must be safe to repeat from a fresh read.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/obeng/payrun/internal/domain"
	"github.com/obeng/payrun/internal/infrastructure/metrics"
)

// UndoUseCase captures pre-mutation state for a batch and replays it on
// demand. Restoring is compensation, not rollback: captured balances are
// re-applied as new mutations through the ledger, so the compensation is
// itself audited.
type UndoUseCase struct {
	snapshotRepo SnapshotRepository
	accountRepo  AccountRepository
	paymentRepo  PaymentRepository
	ledger       *LedgerUseCase
	idGen        IDGenerator
	logger       zerolog.Logger
	metrics      *metrics.Metrics
}

// NewUndoUseCase creates a new UndoUseCase. metrics may be nil in tests.
func NewUndoUseCase(
	snapshotRepo SnapshotRepository,
	accountRepo AccountRepository,
	paymentRepo PaymentRepository,
	ledger *LedgerUseCase,
	idGen IDGenerator,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *UndoUseCase {
	return &UndoUseCase{
		snapshotRepo: snapshotRepo,
		accountRepo:  accountRepo,
		paymentRepo:  paymentRepo,
		ledger:       ledger,
		idGen:        idGen,
		logger:       logger,
		metrics:      m,
	}
}

// Snapshot persists the current state of every account and payment the batch
// will touch. Must be called before the first mutation of the batch.
func (uc *UndoUseCase) Snapshot(ctx context.Context, batchID string, accountIDs, paymentIDs []string) (*domain.UndoSnapshot, error) {
	snapshot := &domain.UndoSnapshot{
		ID:        uc.idGen.Generate(),
		BatchID:   batchID,
		CreatedAt: time.Now().UTC(),
	}

	for _, id := range accountIDs {
		account, err := uc.accountRepo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("snapshot account %s: %w", id, err)
		}

		snapshot.Accounts = append(snapshot.Accounts, domain.AccountState{
			AccountID:  account.ID,
			Balance:    account.Balance,
			TotalSpend: account.TotalSpend,
			Version:    account.Version,
		})
	}

	for _, id := range paymentIDs {
		payment, err := uc.paymentRepo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("snapshot payment %s: %w", id, err)
		}

		snapshot.Payments = append(snapshot.Payments, domain.PaymentState{
			PaymentID: payment.ID,
			Status:    payment.Status,
		})
	}

	if err := uc.snapshotRepo.Create(ctx, snapshot); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.SnapshotsCaptured.Inc()
	}

	return snapshot, nil
}

// RestoreResult reports what a restore changed.
type RestoreResult struct {
	SnapshotID       string
	LedgerUpdates    []*MutationResult
	PaymentsReverted int
}

// Restore replays a batch's snapshot: each touched account receives one
// compensating mutation bringing it back to the captured balance, and each
// payment's captured status is re-applied. A snapshot restores at most once.
func (uc *UndoUseCase) Restore(ctx context.Context, batchID, actor string) (*RestoreResult, error) {
	snapshot, err := uc.snapshotRepo.GetByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if snapshot.Restored() {
		return nil, domain.ErrSnapshotRestored
	}

	result := &RestoreResult{SnapshotID: snapshot.ID}

	for _, state := range snapshot.Accounts {
		account, err := uc.accountRepo.GetByID(ctx, state.AccountID)
		if err != nil {
			return nil, err
		}

		delta := state.Balance.Sub(account.Balance)
		if delta.IsZero() {
			continue
		}

		mutation, err := uc.ledger.ApplyMutation(ctx, MutationInput{
			AccountID:   state.AccountID,
			Amount:      delta,
			Category:    "batch undo",
			Description: fmt.Sprintf("compensation for batch %s", batchID),
			Source:      domain.SourceManualEntry,
			BatchID:     batchID,
			Actor:       actor,
		})
		if err != nil {
			return nil, fmt.Errorf("compensate account %s: %w", state.AccountID, err)
		}

		result.LedgerUpdates = append(result.LedgerUpdates, mutation)
	}

	now := time.Now().UTC()

	for _, state := range snapshot.Payments {
		payment, err := uc.paymentRepo.GetByID(ctx, state.PaymentID)
		if err != nil {
			return nil, err
		}

		if payment.Status == state.Status {
			continue
		}

		if err := uc.paymentRepo.UpdateStatus(ctx, state.PaymentID, state.Status, now); err != nil {
			return nil, fmt.Errorf("revert payment %s: %w", state.PaymentID, err)
		}

		result.PaymentsReverted++
	}

	if err := uc.snapshotRepo.MarkRestored(ctx, snapshot.ID, now); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.SnapshotsRestored.Inc()
	}

	uc.logger.Info().
		Str("batch_id", batchID).
		Str("snapshot_id", snapshot.ID).
		Int("accounts_compensated", len(result.LedgerUpdates)).
		Int("payments_reverted", result.PaymentsReverted).
		Msg("batch undo applied")

	return result, nil
}

package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/obeng/payrun/internal/domain"
	"github.com/obeng/payrun/internal/infrastructure/metrics"
)

// OverdraftPolicy decides what happens when an outflow would drive a balance
// negative. Warn is the default: the overdraft is recorded and flagged, not
// blocked, because real-world overdrafts must still be visible in the ledger.
type OverdraftPolicy string

const (
	OverdraftWarn   OverdraftPolicy = "warn"
	OverdraftReject OverdraftPolicy = "reject"
)

// LedgerUseCase is the only code path that mutates account balances. Every
// successful call produces exactly one ledger entry, inserted in the same
// transaction as the balance write.
type LedgerUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	ledgerRepo  LedgerRepository
	idGen       IDGenerator
	retrier     Retrier
	policy      OverdraftPolicy
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// NewLedgerUseCase creates a new LedgerUseCase. metrics may be nil in tests.
func NewLedgerUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	ledgerRepo LedgerRepository,
	idGen IDGenerator,
	retrier Retrier,
	policy OverdraftPolicy,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *LedgerUseCase {
	if policy == "" {
		policy = OverdraftWarn
	}

	return &LedgerUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		ledgerRepo:  ledgerRepo,
		idGen:       idGen,
		retrier:     retrier,
		policy:      policy,
		logger:      logger,
		metrics:     m,
	}
}

// MutationInput describes one balance mutation plus its audit metadata.
type MutationInput struct {
	AccountID   string
	Amount      decimal.Decimal
	Category    string
	Description string
	Source      domain.EntrySource
	BatchID     string
	PaymentRef  string
	Actor       string
}

// MutationResult reports the balances around a successful mutation.
type MutationResult struct {
	EntryID         string
	AccountID       string
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
}

// ApplyMutation atomically applies a signed amount to one account and appends
// the matching ledger entry. The read-compute-write cycle is optimistic: the
// account version is re-checked at write time and the whole attempt is
// re-run from a fresh read on conflict, a bounded number of times.
func (uc *LedgerUseCase) ApplyMutation(ctx context.Context, input MutationInput) (*MutationResult, error) {
	if input.Amount.IsZero() {
		return nil, domain.ErrInvalidAmount
	}

	var result *MutationResult

	err := uc.retrier.Retry(ctx, func() error {
		r, err := uc.attempt(ctx, input)
		if err != nil {
			return err
		}

		result = r

		return nil
	})
	if err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.LedgerMutations.WithLabelValues(string(input.Source)).Inc()
		amt, _ := input.Amount.Abs().Float64()
		uc.metrics.MutationAmount.Observe(amt)
	}

	return result, nil
}

func (uc *LedgerUseCase) attempt(ctx context.Context, input MutationInput) (*MutationResult, error) {
	account, err := uc.accountRepo.GetByID(ctx, input.AccountID)
	if err != nil {
		return nil, err
	}

	newBalance, newSpend := account.ApplyMutation(input.Amount)

	if newBalance.IsNegative() && input.Amount.IsNegative() {
		if uc.policy == OverdraftReject {
			return nil, fmt.Errorf("account %s: %w", account.ID, domain.ErrInsufficientFunds)
		}

		uc.logger.Warn().
			Str("account_id", account.ID).
			Str("account_name", account.Name).
			Str("amount", input.Amount.String()).
			Str("new_balance", newBalance.String()).
			Msg("mutation drives balance negative")

		if uc.metrics != nil {
			uc.metrics.OverdraftWarnings.Inc()
		}
	}

	now := time.Now().UTC()

	entry := &domain.LedgerEntry{
		ID:             uc.idGen.Generate(),
		AccountID:      account.ID,
		Amount:         input.Amount,
		BalanceBefore:  account.Balance,
		BalanceAfter:   newBalance,
		Category:       input.Category,
		Description:    input.Description,
		Source:         input.Source,
		BatchID:        input.BatchID,
		PaymentRef:     input.PaymentRef,
		Actor:          input.Actor,
		AccountVersion: account.Version + 1,
		CreatedAt:      now,
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	err = uc.accountRepo.UpdateBalanceCAS(ctx, tx, account.ID, account.Version, newBalance, newSpend, now)
	if err != nil {
		return nil, err
	}

	if err := uc.ledgerRepo.CreateEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &MutationResult{
		EntryID:         entry.ID,
		AccountID:       account.ID,
		PreviousBalance: entry.BalanceBefore,
		NewBalance:      entry.BalanceAfter,
	}, nil
}

// ManualAdjustment applies an operator-driven mutation outside any batch.
func (uc *LedgerUseCase) ManualAdjustment(ctx context.Context, accountID string, amount decimal.Decimal, description, actor string) (*MutationResult, error) {
	return uc.ApplyMutation(ctx, MutationInput{
		AccountID:   accountID,
		Amount:      amount,
		Category:    "manual adjustment",
		Description: description,
		Source:      domain.SourceManualEntry,
		Actor:       actor,
	})
}

// ListEntries returns the ledger entries for an account.
func (uc *LedgerUseCase) ListEntries(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return uc.ledgerRepo.ListByAccount(ctx, accountID, limit, offset)
}

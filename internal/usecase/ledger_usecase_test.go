package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/obeng/payrun/internal/domain"
	"github.com/obeng/payrun/internal/usecase"
	"github.com/obeng/payrun/internal/usecase/mocks"
)

func newLedgerUseCase(accRepo *mocks.MockAccountRepository, ledgerRepo *mocks.MockLedgerRepository, policy usecase.OverdraftPolicy) (*usecase.LedgerUseCase, *mocks.MockRetrier) {
	retrier := mocks.NewMockRetrier()
	uc := usecase.NewLedgerUseCase(
		mocks.NewMockTransactionManager(),
		accRepo,
		ledgerRepo,
		mocks.NewMockIDGenerator(),
		retrier,
		policy,
		zerolog.Nop(),
		nil,
	)
	return uc, retrier
}

func seedAccount(accRepo *mocks.MockAccountRepository, id string, allocated, totalSpend int64) {
	alloc := decimal.NewFromInt(allocated)
	spend := decimal.NewFromInt(totalSpend)
	accRepo.Seed(&domain.Account{
		ID:         id,
		Name:       "Account " + id,
		Kind:       domain.AccountKindBudgetLine,
		Currency:   "GHS",
		Allocated:  alloc,
		TotalSpend: spend,
		Balance:    alloc.Sub(spend),
		Version:    1,
	})
}

func TestLedgerUseCase_ApplyMutation(t *testing.T) {
	t.Run("mutation writes balance and exactly one entry", func(t *testing.T) {
		accRepo := mocks.NewMockAccountRepository()
		ledgerRepo := mocks.NewMockLedgerRepository()
		seedAccount(accRepo, "acc-1", 10000, 2000)

		uc, _ := newLedgerUseCase(accRepo, ledgerRepo, usecase.OverdraftWarn)

		result, err := uc.ApplyMutation(context.Background(), usecase.MutationInput{
			AccountID: "acc-1",
			Amount:    decimal.NewFromInt(-800),
			Category:  "payment",
			Source:    domain.SourcePaymentFinalization,
			BatchID:   "batch-1",
			Actor:     "tester",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.PreviousBalance.String() != "8000" {
			t.Errorf("previous balance = %s, want 8000", result.PreviousBalance)
		}
		if result.NewBalance.String() != "7200" {
			t.Errorf("new balance = %s, want 7200", result.NewBalance)
		}

		account, _ := accRepo.GetByID(context.Background(), "acc-1")
		if account.Balance.String() != "7200" {
			t.Errorf("stored balance = %s, want 7200", account.Balance)
		}
		if account.TotalSpend.String() != "2800" {
			t.Errorf("stored total spend = %s, want 2800", account.TotalSpend)
		}
		if account.Version != 2 {
			t.Errorf("version = %d, want 2", account.Version)
		}
		if err := account.CheckConsistent(); err != nil {
			t.Errorf("account inconsistent after mutation: %v", err)
		}

		if len(ledgerRepo.Entries) != 1 {
			t.Fatalf("entries = %d, want exactly 1", len(ledgerRepo.Entries))
		}
		entry := ledgerRepo.Entries[0]
		if err := entry.Validate(); err != nil {
			t.Errorf("entry invalid: %v", err)
		}
		if entry.BatchID != "batch-1" {
			t.Errorf("entry batch = %s, want batch-1", entry.BatchID)
		}
		if entry.AccountVersion != 2 {
			t.Errorf("entry account version = %d, want 2", entry.AccountVersion)
		}
	})

	t.Run("zero amount rejected without side effects", func(t *testing.T) {
		accRepo := mocks.NewMockAccountRepository()
		ledgerRepo := mocks.NewMockLedgerRepository()
		seedAccount(accRepo, "acc-1", 1000, 0)

		uc, _ := newLedgerUseCase(accRepo, ledgerRepo, usecase.OverdraftWarn)

		_, err := uc.ApplyMutation(context.Background(), usecase.MutationInput{
			AccountID: "acc-1",
			Amount:    decimal.Zero,
		})
		if !errors.Is(err, domain.ErrInvalidAmount) {
			t.Errorf("error = %v, want ErrInvalidAmount", err)
		}
		if len(ledgerRepo.Entries) != 0 {
			t.Errorf("entries = %d, want 0", len(ledgerRepo.Entries))
		}
	})

	t.Run("unknown account", func(t *testing.T) {
		accRepo := mocks.NewMockAccountRepository()
		ledgerRepo := mocks.NewMockLedgerRepository()

		uc, _ := newLedgerUseCase(accRepo, ledgerRepo, usecase.OverdraftWarn)

		_, err := uc.ApplyMutation(context.Background(), usecase.MutationInput{
			AccountID: "missing",
			Amount:    decimal.NewFromInt(-100),
		})
		if !errors.Is(err, domain.ErrAccountNotFound) {
			t.Errorf("error = %v, want ErrAccountNotFound", err)
		}
	})
}

func TestLedgerUseCase_OverdraftPolicy(t *testing.T) {
	t.Run("warn policy lets the balance go negative", func(t *testing.T) {
		accRepo := mocks.NewMockAccountRepository()
		ledgerRepo := mocks.NewMockLedgerRepository()
		seedAccount(accRepo, "acc-1", 100, 0)

		uc, _ := newLedgerUseCase(accRepo, ledgerRepo, usecase.OverdraftWarn)

		result, err := uc.ApplyMutation(context.Background(), usecase.MutationInput{
			AccountID: "acc-1",
			Amount:    decimal.NewFromInt(-150),
			Source:    domain.SourceManualEntry,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.NewBalance.String() != "-50" {
			t.Errorf("new balance = %s, want -50", result.NewBalance)
		}
		if len(ledgerRepo.Entries) != 1 {
			t.Errorf("entries = %d, want 1", len(ledgerRepo.Entries))
		}
	})

	t.Run("reject policy blocks the mutation", func(t *testing.T) {
		accRepo := mocks.NewMockAccountRepository()
		ledgerRepo := mocks.NewMockLedgerRepository()
		seedAccount(accRepo, "acc-1", 100, 0)

		uc, _ := newLedgerUseCase(accRepo, ledgerRepo, usecase.OverdraftReject)

		_, err := uc.ApplyMutation(context.Background(), usecase.MutationInput{
			AccountID: "acc-1",
			Amount:    decimal.NewFromInt(-150),
			Source:    domain.SourceManualEntry,
		})
		if !errors.Is(err, domain.ErrInsufficientFunds) {
			t.Errorf("error = %v, want ErrInsufficientFunds", err)
		}

		account, _ := accRepo.GetByID(context.Background(), "acc-1")
		if account.Balance.String() != "100" {
			t.Errorf("balance = %s, want unchanged 100", account.Balance)
		}
		if len(ledgerRepo.Entries) != 0 {
			t.Errorf("entries = %d, want 0", len(ledgerRepo.Entries))
		}
	})

	t.Run("reject policy allows inflows on a negative balance", func(t *testing.T) {
		accRepo := mocks.NewMockAccountRepository()
		ledgerRepo := mocks.NewMockLedgerRepository()
		accRepo.Seed(&domain.Account{
			ID:         "acc-1",
			Allocated:  decimal.NewFromInt(100),
			TotalSpend: decimal.NewFromInt(200),
			Balance:    decimal.NewFromInt(-100),
			Version:    1,
		})

		uc, _ := newLedgerUseCase(accRepo, ledgerRepo, usecase.OverdraftReject)

		result, err := uc.ApplyMutation(context.Background(), usecase.MutationInput{
			AccountID: "acc-1",
			Amount:    decimal.NewFromInt(50),
			Source:    domain.SourceManualEntry,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.NewBalance.String() != "-50" {
			t.Errorf("new balance = %s, want -50", result.NewBalance)
		}
	})
}

func TestLedgerUseCase_ConflictRetry(t *testing.T) {
	t.Run("retries from a fresh read after a version conflict", func(t *testing.T) {
		accRepo := mocks.NewMockAccountRepository()
		ledgerRepo := mocks.NewMockLedgerRepository()
		seedAccount(accRepo, "acc-1", 1000, 0)

		conflicts := 0
		accRepo.UpdateBalanceCASFunc = func(ctx context.Context, tx usecase.Transaction, id string, expectedVersion int64, balance, totalSpend decimal.Decimal, updatedAt time.Time) error {
			if conflicts < 2 {
				conflicts++
				return domain.ErrConcurrentConflict
			}
			return accRepo.DefaultUpdateBalanceCAS(ctx, tx, id, expectedVersion, balance, totalSpend, updatedAt)
		}

		uc, retrier := newLedgerUseCase(accRepo, ledgerRepo, usecase.OverdraftWarn)

		result, err := uc.ApplyMutation(context.Background(), usecase.MutationInput{
			AccountID: "acc-1",
			Amount:    decimal.NewFromInt(-100),
			Source:    domain.SourceManualEntry,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.NewBalance.String() != "900" {
			t.Errorf("new balance = %s, want 900", result.NewBalance)
		}
		if retrier.Attempts != 3 {
			t.Errorf("attempts = %d, want 3", retrier.Attempts)
		}
		if len(ledgerRepo.Entries) != 1 {
			t.Errorf("entries = %d, want exactly 1 after retries", len(ledgerRepo.Entries))
		}
	})

	t.Run("gives up after exhausting retries", func(t *testing.T) {
		accRepo := mocks.NewMockAccountRepository()
		ledgerRepo := mocks.NewMockLedgerRepository()
		seedAccount(accRepo, "acc-1", 1000, 0)

		accRepo.UpdateBalanceCASFunc = func(ctx context.Context, tx usecase.Transaction, id string, expectedVersion int64, balance, totalSpend decimal.Decimal, updatedAt time.Time) error {
			return domain.ErrConcurrentConflict
		}

		uc, retrier := newLedgerUseCase(accRepo, ledgerRepo, usecase.OverdraftWarn)

		_, err := uc.ApplyMutation(context.Background(), usecase.MutationInput{
			AccountID: "acc-1",
			Amount:    decimal.NewFromInt(-100),
			Source:    domain.SourceManualEntry,
		})
		if !errors.Is(err, domain.ErrConcurrentConflict) {
			t.Errorf("error = %v, want ErrConcurrentConflict", err)
		}
		if retrier.Attempts != retrier.MaxAttempts {
			t.Errorf("attempts = %d, want %d", retrier.Attempts, retrier.MaxAttempts)
		}
		if len(ledgerRepo.Entries) != 0 {
			t.Errorf("entries = %d, want 0", len(ledgerRepo.Entries))
		}
	})
}

func TestLedgerUseCase_ManualAdjustment(t *testing.T) {
	accRepo := mocks.NewMockAccountRepository()
	ledgerRepo := mocks.NewMockLedgerRepository()
	seedAccount(accRepo, "acc-1", 5000, 1000)

	uc, _ := newLedgerUseCase(accRepo, ledgerRepo, usecase.OverdraftWarn)

	result, err := uc.ManualAdjustment(context.Background(), "acc-1", decimal.NewFromInt(250), "correction for duplicate charge", "ops")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NewBalance.String() != "4250" {
		t.Errorf("new balance = %s, want 4250", result.NewBalance)
	}

	if len(ledgerRepo.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(ledgerRepo.Entries))
	}
	entry := ledgerRepo.Entries[0]
	if entry.Source != domain.SourceManualEntry {
		t.Errorf("source = %s, want MANUAL_ENTRY", entry.Source)
	}
	if entry.BatchID != "" {
		t.Errorf("batch = %q, want empty", entry.BatchID)
	}
	if entry.Actor != "ops" {
		t.Errorf("actor = %q, want ops", entry.Actor)
	}
}

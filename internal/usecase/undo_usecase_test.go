package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/obeng/payrun/internal/domain"
	"github.com/obeng/payrun/internal/usecase"
)

func finalizedBatch(t *testing.T, h *finalizeHarness) *usecase.FinalizeResult {
	t.Helper()

	h.seedAccount("acc-a", "Stationery", 10000, 2000)
	h.stagePayment("pay-1", "Acme Ltd", 500, "acc-a", domain.ProcurementServices)
	h.stagePayment("pay-2", "Beta Co", 300, "acc-a", domain.ProcurementServices)

	result, err := h.uc.FinalizeBatch(context.Background(), usecase.FinalizeInput{
		PaymentIDs: []string{"pay-1", "pay-2"},
		VoucherRef: "PV-2026-010",
		Actor:      "clerk",
	}, nil)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	return result
}

func TestUndoUseCase_Restore(t *testing.T) {
	h := newFinalizeHarness()
	result := finalizedBatch(t, h)

	if got := h.account(t, "acc-a").Balance.String(); got != "7200" {
		t.Fatalf("post-finalize balance = %s, want 7200", got)
	}
	entriesBefore := len(h.ledgerRepo.Entries)

	restore, err := h.undo.Restore(context.Background(), result.BatchID, "supervisor")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	// Balance and total spend return to the captured values.
	account := h.account(t, "acc-a")
	if account.Balance.String() != "8000" {
		t.Errorf("balance = %s, want 8000", account.Balance)
	}
	if account.TotalSpend.String() != "2000" {
		t.Errorf("total spend = %s, want 2000", account.TotalSpend)
	}
	if err := account.CheckConsistent(); err != nil {
		t.Errorf("account inconsistent after restore: %v", err)
	}

	// Compensation is a new audited mutation, not a deleted entry.
	if len(h.ledgerRepo.Entries) != entriesBefore+1 {
		t.Fatalf("entries = %d, want %d", len(h.ledgerRepo.Entries), entriesBefore+1)
	}
	compensation := h.ledgerRepo.Entries[len(h.ledgerRepo.Entries)-1]
	if compensation.Amount.String() != "800" {
		t.Errorf("compensation amount = %s, want 800", compensation.Amount)
	}
	if compensation.Source != domain.SourceManualEntry {
		t.Errorf("compensation source = %s, want MANUAL_ENTRY", compensation.Source)
	}
	if compensation.Category != "batch undo" {
		t.Errorf("compensation category = %q, want batch undo", compensation.Category)
	}
	if compensation.Actor != "supervisor" {
		t.Errorf("compensation actor = %q, want supervisor", compensation.Actor)
	}

	// Payments revert to staged.
	if restore.PaymentsReverted != 2 {
		t.Errorf("payments reverted = %d, want 2", restore.PaymentsReverted)
	}
	for _, id := range []string{"pay-1", "pay-2"} {
		if got := h.paymentRepo.Get(id).Status; got != domain.PaymentStatusStaged {
			t.Errorf("payment %s status = %s, want staged", id, got)
		}
	}
}

func TestUndoUseCase_RestoreOnlyOnce(t *testing.T) {
	h := newFinalizeHarness()
	result := finalizedBatch(t, h)

	if _, err := h.undo.Restore(context.Background(), result.BatchID, "supervisor"); err != nil {
		t.Fatalf("first restore: %v", err)
	}

	_, err := h.undo.Restore(context.Background(), result.BatchID, "supervisor")
	if !errors.Is(err, domain.ErrSnapshotRestored) {
		t.Errorf("error = %v, want ErrSnapshotRestored", err)
	}

	// The second attempt changed nothing.
	if got := h.account(t, "acc-a").Balance.String(); got != "8000" {
		t.Errorf("balance = %s, want 8000", got)
	}
}

func TestUndoUseCase_RestoreSkipsUntouchedAccounts(t *testing.T) {
	h := newFinalizeHarness()
	h.seedAccount("acc-a", "Stationery", 1000, 0)

	snapshot, err := h.undo.Snapshot(context.Background(), "batch-x", []string{"acc-a"}, nil)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snapshot.Accounts) != 1 {
		t.Fatalf("snapshot accounts = %d, want 1", len(snapshot.Accounts))
	}

	// Nothing mutated between snapshot and restore: no compensation entries.
	restore, err := h.undo.Restore(context.Background(), "batch-x", "supervisor")
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if len(restore.LedgerUpdates) != 0 {
		t.Errorf("ledger updates = %d, want 0", len(restore.LedgerUpdates))
	}
	if len(h.ledgerRepo.Entries) != 0 {
		t.Errorf("entries = %d, want 0", len(h.ledgerRepo.Entries))
	}
}

func TestUndoUseCase_RestoreUnknownBatch(t *testing.T) {
	h := newFinalizeHarness()

	_, err := h.undo.Restore(context.Background(), "no-such-batch", "supervisor")
	if !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Errorf("error = %v, want ErrSnapshotNotFound", err)
	}
}

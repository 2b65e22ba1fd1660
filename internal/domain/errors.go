package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Account errors
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrBalanceInconsistent = errors.New("account balance does not equal allocated minus total spend")

	// Ledger errors
	ErrInvalidAmount      = errors.New("amount must be non-zero")
	ErrConcurrentConflict = errors.New("account was modified concurrently")
	ErrEntryUnbalanced    = errors.New("ledger entry amount does not equal balance delta")

	// Batch errors
	ErrBatchNotFound           = errors.New("finalization batch not found")
	ErrEmptyBatch              = errors.New("batch contains no payments")
	ErrPaymentNotFound         = errors.New("staged payment not found")
	ErrPaymentAlreadyFinalized = errors.New("payment is already finalized")
	ErrZeroNetPayable          = errors.New("payment has zero net payable")

	// Undo errors
	ErrSnapshotNotFound = errors.New("undo snapshot not found")
	ErrSnapshotRestored = errors.New("undo snapshot was already restored")

	// Tax errors
	ErrUnknownProcurementType = errors.New("no withholding rate for procurement type")
)

// ValidationError rejects a batch before any mutation. It carries one message
// per failing payment so the operator can fix all of them in one pass.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("batch validation failed: %s", strings.Join(e.Problems, "; "))
}

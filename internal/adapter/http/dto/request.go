package dto

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/obeng/payrun/internal/usecase"
)

// FinalizeBatchRequest is the voucher-confirmation payload.
type FinalizeBatchRequest struct {
	PaymentIDs []string `json:"payment_ids"`
	VoucherRef string   `json:"voucher_ref"`
	Actor      string   `json:"actor"`
}

// ToUseCaseInput converts the request to usecase input.
func (r *FinalizeBatchRequest) ToUseCaseInput() (usecase.FinalizeInput, error) {
	if len(r.PaymentIDs) == 0 {
		return usecase.FinalizeInput{}, errors.New("payment_ids is required")
	}

	return usecase.FinalizeInput{
		PaymentIDs: r.PaymentIDs,
		VoucherRef: r.VoucherRef,
		Actor:      r.Actor,
	}, nil
}

// UndoBatchRequest triggers compensation for a failed or mistaken batch.
type UndoBatchRequest struct {
	Actor string `json:"actor"`
}

// AdjustAccountRequest is an operator-driven manual ledger adjustment.
type AdjustAccountRequest struct {
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Actor       string `json:"actor"`
}

// ParseAmount parses and validates the signed adjustment amount.
func (r *AdjustAccountRequest) ParseAmount() (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return decimal.Zero, errors.New("amount must be a decimal string")
	}

	return amount, nil
}

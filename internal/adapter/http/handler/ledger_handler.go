package handler

import (
	"net/http"

	"github.com/obeng/payrun/internal/adapter/http/dto"
	"github.com/obeng/payrun/internal/usecase"
)

// LedgerHandler exposes ledger-wide operations.
type LedgerHandler struct {
	consistencyUC *usecase.ConsistencyUseCase
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(consistencyUC *usecase.ConsistencyUseCase) *LedgerHandler {
	return &LedgerHandler{consistencyUC: consistencyUC}
}

// Consistency verifies the conservation law across all accounts.
func (h *LedgerHandler) Consistency(w http.ResponseWriter, r *http.Request) {
	reports, err := h.consistencyUC.CheckAll(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "consistency check failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ConsistencyFromDomain(reports))
}

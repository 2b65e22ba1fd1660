package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/obeng/payrun/internal/adapter/http/dto"
	"github.com/obeng/payrun/internal/usecase"
)

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountRepo usecase.AccountRepository
	resolver    *usecase.AccountResolver
	ledgerUC    *usecase.LedgerUseCase
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountRepo usecase.AccountRepository, resolver *usecase.AccountResolver, ledgerUC *usecase.LedgerUseCase) *AccountHandler {
	return &AccountHandler{
		accountRepo: accountRepo,
		resolver:    resolver,
		ledgerUC:    ledgerUC,
	}
}

// List lists accounts with pagination.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	accounts, err := h.accountRepo.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list accounts", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountsFromDomain(accounts))
}

// Get retrieves an account by ID.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	account, err := h.accountRepo.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get account", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// Resolve maps a free-text budget-line reference to an account.
func (h *AccountHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		writeError(w, http.StatusBadRequest, "missing ref parameter", "")
		return
	}

	account, err := h.resolver.Resolve(r.Context(), ref)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to resolve reference", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// ListEntries lists the ledger entries for an account.
func (h *AccountHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	entries, err := h.ledgerUC.ListEntries(r.Context(), id, limit, offset)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list entries", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntriesFromDomain(entries))
}

// Adjust applies a manual ledger adjustment to an account.
func (h *AccountHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	var req dto.AdjustAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	amount, err := req.ParseAmount()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return
	}

	result, err := h.ledgerUC.ManualAdjustment(r.Context(), id, amount, req.Description, req.Actor)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to adjust account", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.MutationFromDomain(result))
}

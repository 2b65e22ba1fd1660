package dto

import (
	"time"

	"github.com/obeng/payrun/internal/domain"
	"github.com/obeng/payrun/internal/usecase"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// AccountResponse represents an account in API responses. Amounts are
// decimal strings; JSON numbers lose precision.
type AccountResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Kind       string    `json:"kind"`
	Currency   string    `json:"currency"`
	Allocated  string    `json:"allocated"`
	TotalSpend string    `json:"total_spend"`
	Balance    string    `json:"balance"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AccountFromDomain converts a domain account.
func AccountFromDomain(a *domain.Account) AccountResponse {
	return AccountResponse{
		ID:         a.ID,
		Name:       a.Name,
		Kind:       string(a.Kind),
		Currency:   a.Currency,
		Allocated:  a.Allocated.String(),
		TotalSpend: a.TotalSpend.String(),
		Balance:    a.Balance.String(),
		Version:    a.Version,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// AccountsFromDomain converts a slice of domain accounts.
func AccountsFromDomain(accounts []*domain.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, AccountFromDomain(a))
	}

	return out
}

// LedgerEntryResponse represents a ledger entry in API responses.
type LedgerEntryResponse struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"account_id"`
	Amount        string    `json:"amount"`
	BalanceBefore string    `json:"balance_before"`
	BalanceAfter  string    `json:"balance_after"`
	Category      string    `json:"category"`
	Description   string    `json:"description"`
	Source        string    `json:"source"`
	BatchID       string    `json:"batch_id,omitempty"`
	Actor         string    `json:"actor,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// EntriesFromDomain converts a slice of domain ledger entries.
func EntriesFromDomain(entries []*domain.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, LedgerEntryResponse{
			ID:            e.ID,
			AccountID:     e.AccountID,
			Amount:        e.Amount.String(),
			BalanceBefore: e.BalanceBefore.String(),
			BalanceAfter:  e.BalanceAfter.String(),
			Category:      e.Category,
			Description:   e.Description,
			Source:        string(e.Source),
			BatchID:       e.BatchID,
			Actor:         e.Actor,
			CreatedAt:     e.CreatedAt,
		})
	}

	return out
}

// LedgerUpdateResponse summarizes one account's change in a batch.
type LedgerUpdateResponse struct {
	AccountID       string `json:"account_id"`
	AccountName     string `json:"account_name"`
	Amount          string `json:"amount"`
	PreviousBalance string `json:"previous_balance"`
	NewBalance      string `json:"new_balance"`
}

// StepTimingResponse reports how long one saga step took.
type StepTimingResponse struct {
	Step      string `json:"step"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// FinalizeBatchResponse is the terminal result of a finalization.
type FinalizeBatchResponse struct {
	Success        bool                   `json:"success"`
	BatchID        string                 `json:"batch_id"`
	Step           string                 `json:"step"`
	LedgerUpdates  []LedgerUpdateResponse `json:"ledger_updates"`
	TaxEntries     int                    `json:"tax_entries"`
	MasterLogCount int                    `json:"master_log_count"`
	Errors         []string               `json:"errors,omitempty"`
	StepTimings    []StepTimingResponse   `json:"step_timings,omitempty"`
}

// FinalizeResultFromDomain converts a usecase result.
func FinalizeResultFromDomain(r *usecase.FinalizeResult) FinalizeBatchResponse {
	resp := FinalizeBatchResponse{
		Success:        r.Success,
		BatchID:        r.BatchID,
		Step:           string(r.Step),
		TaxEntries:     r.TaxEntries,
		MasterLogCount: r.MasterLogCount,
		Errors:         r.Errors,
	}

	for _, u := range r.LedgerUpdates {
		resp.LedgerUpdates = append(resp.LedgerUpdates, LedgerUpdateResponse{
			AccountID:       u.AccountID,
			AccountName:     u.AccountName,
			Amount:          u.Amount.String(),
			PreviousBalance: u.PreviousBalance.String(),
			NewBalance:      u.NewBalance.String(),
		})
	}

	return resp
}

// BatchResponse represents a batch in API responses.
type BatchResponse struct {
	ID          string    `json:"id"`
	VoucherRef  string    `json:"voucher_ref"`
	PaymentIDs  []string  `json:"payment_ids"`
	Step        string    `json:"step"`
	ErrorDetail string    `json:"error_detail,omitempty"`
	SnapshotID  string    `json:"snapshot_id,omitempty"`
	Actor       string    `json:"actor"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BatchFromDomain converts a domain batch.
func BatchFromDomain(b *domain.FinalizationBatch) BatchResponse {
	return BatchResponse{
		ID:          b.ID,
		VoucherRef:  b.VoucherRef,
		PaymentIDs:  b.PaymentIDs,
		Step:        string(b.Step),
		ErrorDetail: b.ErrorDetail,
		SnapshotID:  b.SnapshotID,
		Actor:       b.Actor,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

// RestoreResponse reports what an undo changed.
type RestoreResponse struct {
	SnapshotID       string                 `json:"snapshot_id"`
	LedgerUpdates    []LedgerUpdateResponse `json:"ledger_updates"`
	PaymentsReverted int                    `json:"payments_reverted"`
}

// RestoreFromDomain converts a usecase restore result.
func RestoreFromDomain(r *usecase.RestoreResult) RestoreResponse {
	resp := RestoreResponse{
		SnapshotID:       r.SnapshotID,
		PaymentsReverted: r.PaymentsReverted,
	}

	for _, u := range r.LedgerUpdates {
		resp.LedgerUpdates = append(resp.LedgerUpdates, LedgerUpdateResponse{
			AccountID:       u.AccountID,
			Amount:          u.NewBalance.Sub(u.PreviousBalance).String(),
			PreviousBalance: u.PreviousBalance.String(),
			NewBalance:      u.NewBalance.String(),
		})
	}

	return resp
}

// ConsistencyReportResponse is the conservation-law verdict for one account.
type ConsistencyReportResponse struct {
	AccountID  string `json:"account_id"`
	Name       string `json:"name"`
	Allocated  string `json:"allocated"`
	Balance    string `json:"balance"`
	EntrySum   string `json:"entry_sum"`
	Expected   string `json:"expected"`
	Consistent bool   `json:"consistent"`
}

// ConsistencyFromDomain converts usecase reports.
func ConsistencyFromDomain(reports []*usecase.AccountReport) []ConsistencyReportResponse {
	out := make([]ConsistencyReportResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, ConsistencyReportResponse{
			AccountID:  r.AccountID,
			Name:       r.Name,
			Allocated:  r.Allocated.String(),
			Balance:    r.Balance.String(),
			EntrySum:   r.EntrySum.String(),
			Expected:   r.Expected.String(),
			Consistent: r.Consistent,
		})
	}

	return out
}

// MutationResponse reports a manual adjustment.
type MutationResponse struct {
	EntryID         string `json:"entry_id"`
	AccountID       string `json:"account_id"`
	PreviousBalance string `json:"previous_balance"`
	NewBalance      string `json:"new_balance"`
}

// MutationFromDomain converts a usecase mutation result.
func MutationFromDomain(m *usecase.MutationResult) MutationResponse {
	return MutationResponse{
		EntryID:         m.EntryID,
		AccountID:       m.AccountID,
		PreviousBalance: m.PreviousBalance.String(),
		NewBalance:      m.NewBalance.String(),
	}
}

package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/obeng/payrun/internal/adapter/http/dto"
	"github.com/obeng/payrun/internal/adapter/http/handler"
	"github.com/obeng/payrun/internal/domain"
	"github.com/obeng/payrun/internal/tax"
	"github.com/obeng/payrun/internal/usecase"
	"github.com/obeng/payrun/internal/usecase/mocks"
)

// testServer wires mock repositories through the real usecases and handlers
// so handler tests exercise the same paths the router serves.
type testServer struct {
	accRepo     *mocks.MockAccountRepository
	paymentRepo *mocks.MockPaymentRepository
	ledgerRepo  *mocks.MockLedgerRepository
	batchRepo   *mocks.MockBatchRepository
	router      chi.Router
}

func newTestServer() *testServer {
	s := &testServer{
		accRepo:     mocks.NewMockAccountRepository(),
		paymentRepo: mocks.NewMockPaymentRepository(),
		ledgerRepo:  mocks.NewMockLedgerRepository(),
		batchRepo:   mocks.NewMockBatchRepository(),
	}

	rates := mocks.NewMockRateTable()
	rates.Rates[domain.ProcurementServices] = decimal.RequireFromString("0.075")
	rates.Rates[domain.ProcurementGoods] = decimal.RequireFromString("0.03")

	calc := tax.New(tax.Config{
		LevyRate:      decimal.RequireFromString("0.06"),
		VATRate:       decimal.RequireFromString("0.15"),
		MomoFeeRate:   decimal.RequireFromString("0.01"),
		LocalCurrency: "GHS",
	}, rates)

	idGen := mocks.NewMockIDGenerator()
	logger := zerolog.Nop()

	ledgerUC := usecase.NewLedgerUseCase(
		mocks.NewMockTransactionManager(), s.accRepo, s.ledgerRepo,
		idGen, mocks.NewMockRetrier(), usecase.OverdraftWarn, logger, nil,
	)
	resolver := usecase.NewAccountResolver(s.accRepo)
	undoUC := usecase.NewUndoUseCase(mocks.NewMockSnapshotRepository(), s.accRepo, s.paymentRepo, ledgerUC, idGen, logger, nil)
	finalizeUC := usecase.NewFinalizeUseCase(
		s.batchRepo, s.paymentRepo, mocks.NewMockTaxReturnRepository(), mocks.NewMockMasterLogRepository(),
		resolver, calc, ledgerUC, undoUC, idGen, logger, nil,
	)

	accountHandler := handler.NewAccountHandler(s.accRepo, resolver, ledgerUC)
	finalizeHandler := handler.NewFinalizeHandler(finalizeUC, undoUC)

	r := chi.NewRouter()
	r.Get("/accounts/resolve", accountHandler.Resolve)
	r.Get("/accounts/{id}", accountHandler.Get)
	r.Post("/accounts/{id}/adjust", accountHandler.Adjust)
	r.Post("/batches/finalize", finalizeHandler.Finalize)
	r.Get("/batches/{id}", finalizeHandler.GetBatch)
	r.Post("/batches/{id}/undo", finalizeHandler.Undo)
	s.router = r

	return s
}

func (s *testServer) seedAccount(id, name string, allocated int64) {
	alloc := decimal.NewFromInt(allocated)
	s.accRepo.Seed(&domain.Account{
		ID: id, Name: name, Kind: domain.AccountKindBudgetLine,
		Currency: "GHS", Allocated: alloc, Balance: alloc, Version: 1,
	})
}

func (s *testServer) seedPayment(id string, preTax int64, ref string) {
	s.paymentRepo.Seed(&domain.StagedPayment{
		ID: id, Vendor: "Acme Ltd", InvoiceRef: "INV-" + id,
		PreTax: decimal.NewFromInt(preTax), Currency: "GHS",
		ProcurementType: domain.ProcurementServices,
		PaymentMode:     domain.ModeBankTransfer,
		BudgetLineRef:   ref, Status: domain.PaymentStatusStaged,
	})
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	return rec
}

func TestFinalizeHandler_Finalize(t *testing.T) {
	t.Run("successful batch returns 201 with result", func(t *testing.T) {
		s := newTestServer()
		s.seedAccount("acc-1", "Stationery", 10000)
		s.seedPayment("pay-1", 500, "acc-1")
		s.seedPayment("pay-2", 300, "acc-1")

		rec := s.do(t, http.MethodPost, "/batches/finalize", dto.FinalizeBatchRequest{
			PaymentIDs: []string{"pay-1", "pay-2"},
			VoucherRef: "PV-2026-001",
			Actor:      "clerk",
		})

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
		}

		var resp dto.FinalizeBatchResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !resp.Success {
			t.Errorf("success = false, errors: %v", resp.Errors)
		}
		if resp.Step != string(domain.StepCompleted) {
			t.Errorf("step = %s, want COMPLETED", resp.Step)
		}
		if len(resp.LedgerUpdates) != 1 {
			t.Fatalf("ledger updates = %d, want 1", len(resp.LedgerUpdates))
		}
		if resp.LedgerUpdates[0].Amount != "-800" {
			t.Errorf("amount = %s, want -800", resp.LedgerUpdates[0].Amount)
		}
		if len(resp.StepTimings) != 7 {
			t.Errorf("step timings = %d, want 7", len(resp.StepTimings))
		}
	})

	t.Run("validation failure returns 422 with the failing step", func(t *testing.T) {
		s := newTestServer()
		s.seedAccount("acc-1", "Stationery", 10000)
		s.seedPayment("pay-1", 500, "no-such-line")

		rec := s.do(t, http.MethodPost, "/batches/finalize", dto.FinalizeBatchRequest{
			PaymentIDs: []string{"pay-1"},
			VoucherRef: "PV-2026-002",
			Actor:      "clerk",
		})

		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("status = %d, want 422, body %s", rec.Code, rec.Body.String())
		}

		var resp dto.FinalizeBatchResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Success {
			t.Error("success = true, want false")
		}
		if resp.Step != string(domain.StepValidating) {
			t.Errorf("step = %s, want VALIDATING", resp.Step)
		}
		if len(resp.Errors) == 0 {
			t.Error("expected validation errors in the response")
		}
	})

	t.Run("empty payment list returns 400", func(t *testing.T) {
		s := newTestServer()

		rec := s.do(t, http.MethodPost, "/batches/finalize", dto.FinalizeBatchRequest{
			VoucherRef: "PV-2026-003",
		})

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("malformed body returns 400", func(t *testing.T) {
		s := newTestServer()

		req := httptest.NewRequest(http.MethodPost, "/batches/finalize", bytes.NewBufferString("{not json"))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

func TestFinalizeHandler_GetBatch(t *testing.T) {
	s := newTestServer()
	s.batchRepo.Create(context.Background(), &domain.FinalizationBatch{
		ID: "batch-1", VoucherRef: "PV-2026-001", Step: domain.StepCompleted,
	})

	t.Run("existing batch", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/batches/batch-1", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var resp dto.BatchResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.ID != "batch-1" || resp.Step != string(domain.StepCompleted) {
			t.Errorf("unexpected batch: %+v", resp)
		}
	})

	t.Run("unknown batch returns 404", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/batches/no-such-batch", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})
}

func TestFinalizeHandler_Undo(t *testing.T) {
	s := newTestServer()
	s.seedAccount("acc-1", "Stationery", 10000)
	s.seedPayment("pay-1", 500, "acc-1")

	rec := s.do(t, http.MethodPost, "/batches/finalize", dto.FinalizeBatchRequest{
		PaymentIDs: []string{"pay-1"},
		VoucherRef: "PV-2026-001",
		Actor:      "clerk",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("finalize status = %d, body %s", rec.Code, rec.Body.String())
	}

	var finalized dto.FinalizeBatchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &finalized); err != nil {
		t.Fatalf("decode: %v", err)
	}

	t.Run("undo compensates the batch", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/batches/"+finalized.BatchID+"/undo", dto.UndoBatchRequest{Actor: "supervisor"})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}

		var resp dto.RestoreResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.PaymentsReverted != 1 {
			t.Errorf("payments reverted = %d, want 1", resp.PaymentsReverted)
		}
		if len(resp.LedgerUpdates) != 1 || resp.LedgerUpdates[0].NewBalance != "10000" {
			t.Errorf("ledger updates = %+v, want balance back to 10000", resp.LedgerUpdates)
		}
	})

	t.Run("second undo returns 409", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/batches/"+finalized.BatchID+"/undo", dto.UndoBatchRequest{Actor: "supervisor"})
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("unknown batch returns 404", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/batches/no-such-batch/undo", dto.UndoBatchRequest{Actor: "supervisor"})
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})
}

func TestAccountHandler(t *testing.T) {
	s := newTestServer()
	s.seedAccount("acc-travel", "Travel", 10000)

	t.Run("get account", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/accounts/acc-travel", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		var resp dto.AccountResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Balance != "10000" {
			t.Errorf("balance = %s, want 10000", resp.Balance)
		}
	})

	t.Run("get unknown account returns 404", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/accounts/missing", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("resolve legacy reference", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/accounts/resolve?ref=Travel+-+4010+-+OPS", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}

		var resp dto.AccountResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.ID != "acc-travel" {
			t.Errorf("resolved %s, want acc-travel", resp.ID)
		}
	})

	t.Run("resolve without ref returns 400", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, "/accounts/resolve", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("manual adjustment", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/accounts/acc-travel/adjust", dto.AdjustAccountRequest{
			Amount:      "-250.50",
			Description: "prepaid booking",
			Actor:       "ops",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
		}

		var resp dto.MutationResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.NewBalance != "9749.5" {
			t.Errorf("new balance = %s, want 9749.5", resp.NewBalance)
		}
	})

	t.Run("adjustment with bad amount returns 400", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/accounts/acc-travel/adjust", dto.AdjustAccountRequest{
			Amount: "lots",
			Actor:  "ops",
		})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

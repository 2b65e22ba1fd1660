package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/obeng/payrun/internal/adapter/http/dto"
	"github.com/obeng/payrun/internal/domain"
	"github.com/obeng/payrun/internal/usecase"
)

// FinalizeHandler handles batch finalization and undo requests.
type FinalizeHandler struct {
	finalizeUC *usecase.FinalizeUseCase
	undoUC     *usecase.UndoUseCase
}

// NewFinalizeHandler creates a new FinalizeHandler.
func NewFinalizeHandler(finalizeUC *usecase.FinalizeUseCase, undoUC *usecase.UndoUseCase) *FinalizeHandler {
	return &FinalizeHandler{finalizeUC: finalizeUC, undoUC: undoUC}
}

// Finalize runs the finalization saga for one voucher confirmation. The
// response carries per-step timings collected through the step callback.
func (h *FinalizeHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req dto.FinalizeBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	var timings []dto.StepTimingResponse

	last := time.Now()
	onStep := func(step domain.Step) {
		now := time.Now()
		timings = append(timings, dto.StepTimingResponse{
			Step:      string(step),
			ElapsedMS: now.Sub(last).Milliseconds(),
		})
		last = now
	}

	result, err := h.finalizeUC.FinalizeBatch(r.Context(), input, onStep)
	if err != nil {
		if result == nil {
			writeError(w, mapDomainError(err), "failed to finalize batch", err.Error())
			return
		}

		// The batch ran and failed terminally: return the partial result so
		// the operator sees the failing step and what was applied.
		resp := dto.FinalizeResultFromDomain(result)
		resp.StepTimings = timings
		writeJSON(w, mapDomainError(err), resp)

		return
	}

	resp := dto.FinalizeResultFromDomain(result)
	resp.StepTimings = timings
	writeJSON(w, http.StatusCreated, resp)
}

// GetBatch retrieves a batch by ID.
func (h *FinalizeHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing batch ID", "")
		return
	}

	batch, err := h.finalizeUC.GetBatch(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get batch", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.BatchFromDomain(batch))
}

// Undo replays a batch's undo snapshot as audited compensating mutations.
func (h *FinalizeHandler) Undo(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing batch ID", "")
		return
	}

	var req dto.UndoBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	result, err := h.undoUC.Restore(r.Context(), id, req.Actor)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to undo batch", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.RestoreFromDomain(result))
}

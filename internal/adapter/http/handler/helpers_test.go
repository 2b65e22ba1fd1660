package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/obeng/payrun/internal/domain"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"account not found", domain.ErrAccountNotFound, http.StatusNotFound},
		{"batch not found", domain.ErrBatchNotFound, http.StatusNotFound},
		{"payment not found", domain.ErrPaymentNotFound, http.StatusNotFound},
		{"snapshot not found", domain.ErrSnapshotNotFound, http.StatusNotFound},
		{"empty batch", domain.ErrEmptyBatch, http.StatusBadRequest},
		{"invalid amount", domain.ErrInvalidAmount, http.StatusBadRequest},
		{"already finalized", domain.ErrPaymentAlreadyFinalized, http.StatusConflict},
		{"snapshot restored", domain.ErrSnapshotRestored, http.StatusConflict},
		{"concurrent conflict", domain.ErrConcurrentConflict, http.StatusConflict},
		{"insufficient funds", domain.ErrInsufficientFunds, http.StatusUnprocessableEntity},
		{"validation error", &domain.ValidationError{Problems: []string{"x"}}, http.StatusUnprocessableEntity},
		{"wrapped domain error", errors.Join(errors.New("update"), domain.ErrAccountNotFound), http.StatusNotFound},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapDomainError(tt.err); got != tt.want {
				t.Errorf("mapDomainError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestParseIntQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		key   string
		def   int
		want  int
	}{
		{"present", "limit=50", "limit", 20, 50},
		{"absent", "", "limit", 20, 20},
		{"not a number", "limit=abc", "limit", 20, 20},
		{"negative allowed", "offset=-5", "offset", 0, -5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
			if got := parseIntQuery(req, tt.key, tt.def); got != tt.want {
				t.Errorf("parseIntQuery(%q) = %d, want %d", tt.query, got, tt.want)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	writeError(rr, http.StatusNotFound, "not found", "account missing")

	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %s, want application/json", ct)
	}
}

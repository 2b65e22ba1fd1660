package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/obeng/payrun/internal/domain"
	"github.com/obeng/payrun/internal/usecase"
	"github.com/obeng/payrun/internal/usecase/mocks"
)

func TestAccountResolver_Resolve(t *testing.T) {
	accRepo := mocks.NewMockAccountRepository()
	accRepo.Seed(&domain.Account{ID: "acc-travel", Name: "Travel", Balance: decimal.NewFromInt(1000)})
	accRepo.Seed(&domain.Account{ID: "acc-office", Name: "Office Supplies", Balance: decimal.NewFromInt(500)})
	accRepo.Seed(&domain.Account{ID: "acc-weird", Name: "Repairs - Annex B", Balance: decimal.NewFromInt(200)})

	resolver := usecase.NewAccountResolver(accRepo)

	tests := []struct {
		name      string
		reference string
		wantID    string
		wantErr   error
	}{
		{
			name:      "direct id hit",
			reference: "acc-travel",
			wantID:    "acc-travel",
		},
		{
			name:      "exact name",
			reference: "Office Supplies",
			wantID:    "acc-office",
		},
		{
			name:      "legacy display string strips suffix",
			reference: "Travel - 4010 - OPS",
			wantID:    "acc-travel",
		},
		{
			name:      "untrimmed fallback when the name itself contains a dash",
			reference: "Repairs - Annex B",
			wantID:    "acc-weird",
		},
		{
			name:      "surrounding whitespace ignored",
			reference: "  Travel - 4010  ",
			wantID:    "acc-travel",
		},
		{
			name:      "no match",
			reference: "Unknown Line - 9999",
			wantErr:   domain.ErrAccountNotFound,
		},
		{
			name:      "empty reference",
			reference: "   ",
			wantErr:   domain.ErrAccountNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := resolver.Resolve(context.Background(), tt.reference)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if account.ID != tt.wantID {
				t.Errorf("resolved %s, want %s", account.ID, tt.wantID)
			}
		})
	}
}

func TestAccountResolver_PropagatesRepositoryErrors(t *testing.T) {
	accRepo := mocks.NewMockAccountRepository()
	storeErr := errors.New("connection refused")
	accRepo.GetByIDFunc = func(ctx context.Context, id string) (*domain.Account, error) {
		return nil, storeErr
	}

	resolver := usecase.NewAccountResolver(accRepo)

	_, err := resolver.Resolve(context.Background(), "acc-1")
	if !errors.Is(err, storeErr) {
		t.Errorf("error = %v, want the repository error", err)
	}
}

package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/obeng/payrun/internal/domain"
)

// AccountResolver maps a free-text budget-line reference to a canonical
// account. Payments carry either a stable account ID (structured UI) or a
// legacy display string like "Travel - 4010 - OPS" (spreadsheet imports);
// both must resolve without a migration step.
type AccountResolver struct {
	accountRepo AccountRepository
}

// NewAccountResolver creates a new AccountResolver.
func NewAccountResolver(accountRepo AccountRepository) *AccountResolver {
	return &AccountResolver{accountRepo: accountRepo}
}

// Resolve returns the account for a reference. Lookup order: direct ID,
// then exact name with the trailing " - metadata" suffix stripped, then
// exact name on the untrimmed reference. First name match wins.
func (r *AccountResolver) Resolve(ctx context.Context, reference string) (*domain.Account, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, domain.ErrAccountNotFound
	}

	account, err := r.accountRepo.GetByID(ctx, reference)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	trimmed := reference
	if name, _, found := strings.Cut(reference, " - "); found {
		trimmed = strings.TrimSpace(name)
	}

	if trimmed != reference {
		account, err = r.accountRepo.GetByName(ctx, trimmed)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
	}

	return r.accountRepo.GetByName(ctx, reference)
}

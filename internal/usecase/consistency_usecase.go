package usecase

import (
	"context"

	"github.com/shopspring/decimal"
)

// ConsistencyUseCase verifies the conservation law: for every account,
// allocated + sum(signed entry amounts) must equal the stored balance, and
// the stored balance must equal allocated minus total spend.
type ConsistencyUseCase struct {
	accountRepo AccountRepository
	ledgerRepo  LedgerRepository
}

// NewConsistencyUseCase creates a new ConsistencyUseCase.
func NewConsistencyUseCase(accountRepo AccountRepository, ledgerRepo LedgerRepository) *ConsistencyUseCase {
	return &ConsistencyUseCase{accountRepo: accountRepo, ledgerRepo: ledgerRepo}
}

// AccountReport is the consistency verdict for one account.
type AccountReport struct {
	AccountID  string
	Name       string
	Allocated  decimal.Decimal
	Balance    decimal.Decimal
	EntrySum   decimal.Decimal
	Expected   decimal.Decimal
	Consistent bool
}

// CheckAccount verifies one account.
func (uc *ConsistencyUseCase) CheckAccount(ctx context.Context, accountID string) (*AccountReport, error) {
	account, err := uc.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	sum, err := uc.ledgerRepo.SumByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	expected := account.Allocated.Add(sum)

	report := &AccountReport{
		AccountID:  account.ID,
		Name:       account.Name,
		Allocated:  account.Allocated,
		Balance:    account.Balance,
		EntrySum:   sum,
		Expected:   expected,
		Consistent: expected.Equal(account.Balance) && account.CheckConsistent() == nil,
	}

	return report, nil
}

// CheckAll verifies every account, paging through the store.
func (uc *ConsistencyUseCase) CheckAll(ctx context.Context) ([]*AccountReport, error) {
	const pageSize = 100

	var reports []*AccountReport

	for offset := 0; ; offset += pageSize {
		accounts, err := uc.accountRepo.List(ctx, pageSize, offset)
		if err != nil {
			return nil, err
		}

		if len(accounts) == 0 {
			break
		}

		for _, account := range accounts {
			report, err := uc.CheckAccount(ctx, account.ID)
			if err != nil {
				return nil, err
			}

			reports = append(reports, report)
		}

		if len(accounts) < pageSize {
			break
		}
	}

	return reports, nil
}

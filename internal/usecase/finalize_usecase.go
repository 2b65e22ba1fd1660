package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/obeng/payrun/internal/domain"
	"github.com/obeng/payrun/internal/infrastructure/metrics"
	"github.com/obeng/payrun/internal/tax"
)

// StepCallback is invoked once per saga state transition, for presentation
// only. It must not block.
type StepCallback func(step domain.Step)

// FinalizeUseCase orchestrates the finalization saga: validation, undo
// capture, per-account balance updates, tax-return logging, status flips and
// master-log writes. Steps at or after BUDGET_UPDATE are independent atomic
// operations; a failure leaves prior steps applied and surfaces the failing
// step so an operator can decide whether to invoke the undo snapshot.
type FinalizeUseCase struct {
	batchRepo   BatchRepository
	paymentRepo PaymentRepository
	taxRepo     TaxReturnRepository
	masterRepo  MasterLogRepository
	resolver    *AccountResolver
	calc        *tax.Calculator
	ledger      *LedgerUseCase
	undo        *UndoUseCase
	idGen       IDGenerator
	logger      zerolog.Logger
	metrics     *metrics.Metrics
}

// NewFinalizeUseCase creates a new FinalizeUseCase. metrics may be nil in tests.
func NewFinalizeUseCase(
	batchRepo BatchRepository,
	paymentRepo PaymentRepository,
	taxRepo TaxReturnRepository,
	masterRepo MasterLogRepository,
	resolver *AccountResolver,
	calc *tax.Calculator,
	ledger *LedgerUseCase,
	undo *UndoUseCase,
	idGen IDGenerator,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *FinalizeUseCase {
	return &FinalizeUseCase{
		batchRepo:   batchRepo,
		paymentRepo: paymentRepo,
		taxRepo:     taxRepo,
		masterRepo:  masterRepo,
		resolver:    resolver,
		calc:        calc,
		ledger:      ledger,
		undo:        undo,
		idGen:       idGen,
		logger:      logger,
		metrics:     m,
	}
}

// FinalizeInput identifies the payments of one voucher confirmation.
type FinalizeInput struct {
	PaymentIDs []string
	VoucherRef string
	Actor      string
}

// LedgerUpdate summarizes one account's balance change for the caller.
type LedgerUpdate struct {
	AccountID       string
	AccountName     string
	Amount          decimal.Decimal
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
}

// FinalizeResult is the terminal outcome of one batch.
type FinalizeResult struct {
	Success        bool
	BatchID        string
	Step           domain.Step
	LedgerUpdates  []LedgerUpdate
	TaxEntries     int
	MasterLogCount int
	// Errors holds non-fatal per-payment problems (tax-return logging) and,
	// for failed batches, the fatal error detail.
	Errors []string
}

// FinalizeBatch runs the saga to COMPLETED or ERROR. onStep may be nil.
func (uc *FinalizeUseCase) FinalizeBatch(ctx context.Context, input FinalizeInput, onStep StepCallback) (*FinalizeResult, error) {
	started := time.Now()

	batch := &domain.FinalizationBatch{
		ID:         uc.idGen.Generate(),
		VoucherRef: input.VoucherRef,
		PaymentIDs: input.PaymentIDs,
		Step:       domain.StepValidating,
		Actor:      input.Actor,
		CreatedAt:  started.UTC(),
		UpdatedAt:  started.UTC(),
	}

	if err := uc.batchRepo.Create(ctx, batch); err != nil {
		return nil, err
	}

	if uc.metrics != nil {
		uc.metrics.BatchesStarted.Inc()
	}

	result := &FinalizeResult{BatchID: batch.ID}
	uc.notify(batch, domain.StepValidating, onStep)

	// VALIDATING: zero side effects on failure.
	payments, accounts, err := uc.validate(ctx, input)
	if err != nil {
		return uc.fail(ctx, batch, result, err)
	}

	// UNDO_CAPTURE
	if err := uc.advance(ctx, batch, domain.StepUndoCapture, onStep); err != nil {
		return uc.fail(ctx, batch, result, err)
	}

	accountIDs := sortedAccountIDs(accounts)

	snapshot, err := uc.undo.Snapshot(ctx, batch.ID, accountIDs, input.PaymentIDs)
	if err != nil {
		return uc.fail(ctx, batch, result, fmt.Errorf("undo capture: %w", err))
	}

	batch.SnapshotID = snapshot.ID
	if err := uc.batchRepo.SetSnapshot(ctx, batch.ID, snapshot.ID, time.Now().UTC()); err != nil {
		return uc.fail(ctx, batch, result, err)
	}

	// BUDGET_UPDATE: one ledger call per distinct account, carrying the
	// batch's summed impact on that account.
	if err := uc.advance(ctx, batch, domain.StepBudgetUpdate, onStep); err != nil {
		return uc.fail(ctx, batch, result, err)
	}

	impacts := groupBudgetImpacts(payments)

	for _, accountID := range accountIDs {
		impact, ok := impacts[accountID]
		if !ok {
			continue
		}

		mutation, err := uc.ledger.ApplyMutation(ctx, MutationInput{
			AccountID:   accountID,
			Amount:      impact.Neg(),
			Category:    "payment finalization",
			Description: fmt.Sprintf("voucher %s", input.VoucherRef),
			Source:      domain.SourcePaymentFinalization,
			BatchID:     batch.ID,
			Actor:       input.Actor,
		})
		if err != nil {
			return uc.fail(ctx, batch, result, fmt.Errorf("budget update for account %s: %w", accountID, err))
		}

		result.LedgerUpdates = append(result.LedgerUpdates, LedgerUpdate{
			AccountID:       accountID,
			AccountName:     accounts[accountID].Name,
			Amount:          impact.Neg(),
			PreviousBalance: mutation.PreviousBalance,
			NewBalance:      mutation.NewBalance,
		})
	}

	// WHT_PROCESSING: best-effort relative to balance correctness. The
	// mutation above is the financially authoritative step; a tax-return
	// row that fails to write is logged and reported, never a batch abort.
	if err := uc.advance(ctx, batch, domain.StepWHTProcessing, onStep); err != nil {
		return uc.fail(ctx, batch, result, err)
	}

	for _, p := range payments {
		if !uc.calc.RemittableWHT(p) {
			continue
		}

		entry := &domain.TaxReturnEntry{
			ID:          uc.idGen.Generate(),
			BatchID:     batch.ID,
			PaymentID:   p.ID,
			VoucherRef:  input.VoucherRef,
			Vendor:      p.Vendor,
			InvoiceRef:  p.InvoiceRef,
			GrossAmount: p.PreTax,
			WHTAmount:   p.Taxes.WHT,
			WHTRate:     p.Taxes.WHTRate,
			Currency:    p.Currency,
			CreatedAt:   time.Now().UTC(),
		}

		if err := uc.taxRepo.Create(ctx, entry); err != nil {
			uc.logger.Error().
				Err(err).
				Str("batch_id", batch.ID).
				Str("payment_id", p.ID).
				Msg("tax return entry failed")

			result.Errors = append(result.Errors, fmt.Sprintf("tax return for payment %s: %v", p.ID, err))

			if uc.metrics != nil {
				uc.metrics.TaxEntryFailures.Inc()
			}

			continue
		}

		result.TaxEntries++

		if uc.metrics != nil {
			uc.metrics.TaxEntriesWritten.Inc()
		}
	}

	// STATUS_UPDATE
	if err := uc.advance(ctx, batch, domain.StepStatusUpdate, onStep); err != nil {
		return uc.fail(ctx, batch, result, err)
	}

	now := time.Now().UTC()
	for _, p := range payments {
		err := uc.paymentRepo.UpdateFinalization(ctx, p.ID, p.AccountID, p.Taxes, domain.PaymentStatusFinalized, now)
		if err != nil {
			return uc.fail(ctx, batch, result, fmt.Errorf("status update for payment %s: %w", p.ID, err))
		}

		p.Status = domain.PaymentStatusFinalized
	}

	// MASTER_LOG
	if err := uc.advance(ctx, batch, domain.StepMasterLog, onStep); err != nil {
		return uc.fail(ctx, batch, result, err)
	}

	for _, p := range payments {
		record := &domain.MasterLogRecord{
			ID:          uc.idGen.Generate(),
			BatchID:     batch.ID,
			PaymentID:   p.ID,
			VoucherRef:  input.VoucherRef,
			Vendor:      p.Vendor,
			InvoiceRef:  p.InvoiceRef,
			AccountID:   p.AccountID,
			AccountName: accounts[p.AccountID].Name,
			Currency:    p.Currency,
			PreTax:      p.PreTax,
			WHT:         p.Taxes.WHT,
			Levy:        p.Taxes.Levy,
			VAT:         p.Taxes.VAT,
			Fee:         p.Taxes.Fee,
			NetPayable:  p.Taxes.NetPayable,
			TotalCost:   p.Taxes.TotalCost,
			Actor:       input.Actor,
			CreatedAt:   time.Now().UTC(),
		}

		if err := uc.masterRepo.Create(ctx, record); err != nil {
			return uc.fail(ctx, batch, result, fmt.Errorf("master log for payment %s: %w", p.ID, err))
		}

		result.MasterLogCount++
	}

	// COMPLETED
	if err := uc.advance(ctx, batch, domain.StepCompleted, onStep); err != nil {
		return uc.fail(ctx, batch, result, err)
	}

	result.Success = true
	result.Step = domain.StepCompleted

	if uc.metrics != nil {
		uc.metrics.BatchesCompleted.Inc()
		uc.metrics.PaymentsFinalized.Add(float64(len(payments)))
		uc.metrics.BatchDuration.Observe(time.Since(started).Seconds())
	}

	uc.logger.Info().
		Str("batch_id", batch.ID).
		Str("voucher_ref", input.VoucherRef).
		Int("payments", len(payments)).
		Int("accounts", len(result.LedgerUpdates)).
		Int("tax_entries", result.TaxEntries).
		Msg("batch finalized")

	return result, nil
}

// validate resolves every payment's budget-line reference, computes its tax
// breakdown and rejects the batch if any payment fails. Payments are mutated
// in memory only; nothing is persisted on this path.
func (uc *FinalizeUseCase) validate(ctx context.Context, input FinalizeInput) ([]*domain.StagedPayment, map[string]*domain.Account, error) {
	if len(input.PaymentIDs) == 0 {
		return nil, nil, domain.ErrEmptyBatch
	}

	payments, err := uc.paymentRepo.GetByIDs(ctx, input.PaymentIDs)
	if err != nil {
		return nil, nil, err
	}

	if len(payments) != len(input.PaymentIDs) {
		return nil, nil, domain.ErrPaymentNotFound
	}

	accounts := make(map[string]*domain.Account)

	var problems []string

	for _, p := range payments {
		if p.Status == domain.PaymentStatusFinalized {
			problems = append(problems, fmt.Sprintf("payment %s: %v", p.ID, domain.ErrPaymentAlreadyFinalized))
			continue
		}

		ref := p.BudgetLineRef
		if ref == "" {
			ref = p.AccountID
		}

		account, err := uc.resolver.Resolve(ctx, ref)
		if err != nil {
			problems = append(problems, fmt.Sprintf("payment %s: budget line %q: %v", p.ID, ref, err))
			continue
		}

		p.AccountID = account.ID
		accounts[account.ID] = account

		taxes, err := uc.calc.Compute(ctx, p)
		if err != nil {
			problems = append(problems, fmt.Sprintf("payment %s: %v", p.ID, err))
			continue
		}

		p.Taxes = taxes

		if taxes.NetPayable.IsZero() {
			problems = append(problems, fmt.Sprintf("payment %s: %v", p.ID, domain.ErrZeroNetPayable))
		}
	}

	if len(problems) > 0 {
		return nil, nil, &domain.ValidationError{Problems: problems}
	}

	return payments, accounts, nil
}

// advance persists the batch's next step and notifies the caller.
func (uc *FinalizeUseCase) advance(ctx context.Context, batch *domain.FinalizationBatch, step domain.Step, onStep StepCallback) error {
	if !batch.Step.CanTransitionTo(step) {
		return fmt.Errorf("illegal step transition %s -> %s", batch.Step, step)
	}

	if err := uc.batchRepo.UpdateStep(ctx, batch.ID, step, time.Now().UTC()); err != nil {
		return err
	}

	batch.Step = step
	uc.notify(batch, step, onStep)

	return nil
}

func (uc *FinalizeUseCase) notify(batch *domain.FinalizationBatch, step domain.Step, onStep StepCallback) {
	uc.logger.Debug().
		Str("batch_id", batch.ID).
		Str("step", string(step)).
		Msg("batch step")

	if onStep != nil {
		onStep(step)
	}
}

// fail records the terminal ERROR state. Mutations already applied stay
// applied; the snapshot, if captured, is the operator's compensation path.
func (uc *FinalizeUseCase) fail(ctx context.Context, batch *domain.FinalizationBatch, result *FinalizeResult, cause error) (*FinalizeResult, error) {
	failedAt := batch.Step

	uc.logger.Error().
		Err(cause).
		Str("batch_id", batch.ID).
		Str("step", string(failedAt)).
		Bool("mutations_applied", failedAt.MutationsApplied()).
		Msg("batch failed")

	if err := uc.batchRepo.SetError(ctx, batch.ID, failedAt, cause.Error(), time.Now().UTC()); err != nil {
		uc.logger.Error().Err(err).Str("batch_id", batch.ID).Msg("recording batch error failed")
	}

	batch.Step = domain.StepError
	batch.ErrorDetail = cause.Error()

	if uc.metrics != nil {
		uc.metrics.BatchesErrored.WithLabelValues(string(failedAt)).Inc()
	}

	result.Success = false
	result.Step = failedAt
	result.Errors = append(result.Errors, cause.Error())

	return result, cause
}

// GetBatch returns a batch by ID.
func (uc *FinalizeUseCase) GetBatch(ctx context.Context, id string) (*domain.FinalizationBatch, error) {
	return uc.batchRepo.GetByID(ctx, id)
}

func sortedAccountIDs(accounts map[string]*domain.Account) []string {
	ids := make([]string, 0, len(accounts))
	for id := range accounts {
		ids = append(ids, id)
	}

	sort.Strings(ids)

	return ids
}

// groupBudgetImpacts sums, per distinct account, the cost each payment puts
// on that account. One ledger entry per account per batch.
func groupBudgetImpacts(payments []*domain.StagedPayment) map[string]decimal.Decimal {
	impacts := make(map[string]decimal.Decimal)
	for _, p := range payments {
		impacts[p.AccountID] = impacts[p.AccountID].Add(p.Taxes.TotalCost)
	}

	return impacts
}

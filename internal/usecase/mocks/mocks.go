// Package mocks provides hand-written in-memory fakes for the usecase
// repository interfaces. Default behavior is a working in-memory store;
// individual calls are overridable through the exported Func fields.
package mocks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/obeng/payrun/internal/domain"
	"github.com/obeng/payrun/internal/usecase"
)

// MockAccountRepository is a mock implementation of AccountRepository.
type MockAccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	order    []string

	CreateFunc           func(ctx context.Context, account *domain.Account) error
	GetByIDFunc          func(ctx context.Context, id string) (*domain.Account, error)
	GetByNameFunc        func(ctx context.Context, name string) (*domain.Account, error)
	UpdateBalanceCASFunc func(ctx context.Context, tx usecase.Transaction, id string, expectedVersion int64, balance, totalSpend decimal.Decimal, updatedAt time.Time) error
	ListFunc             func(ctx context.Context, limit, offset int) ([]*domain.Account, error)
}

func NewMockAccountRepository() *MockAccountRepository {
	return &MockAccountRepository{accounts: make(map[string]*domain.Account)}
}

// Seed adds an account to the in-memory store.
func (m *MockAccountRepository) Seed(account *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.ID] = account
	m.order = append(m.order, account.ID)
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	m.Seed(account)
	return nil
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if acc, ok := m.accounts[id]; ok {
		copied := *acc
		return &copied, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) GetByName(ctx context.Context, name string) (*domain.Account, error) {
	if m.GetByNameFunc != nil {
		return m.GetByNameFunc(ctx, name)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		if m.accounts[id].Name == name {
			copied := *m.accounts[id]
			return &copied, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (m *MockAccountRepository) UpdateBalanceCAS(ctx context.Context, tx usecase.Transaction, id string, expectedVersion int64, balance, totalSpend decimal.Decimal, updatedAt time.Time) error {
	if m.UpdateBalanceCASFunc != nil {
		return m.UpdateBalanceCASFunc(ctx, tx, id, expectedVersion, balance, totalSpend, updatedAt)
	}
	return m.DefaultUpdateBalanceCAS(ctx, tx, id, expectedVersion, balance, totalSpend, updatedAt)
}

// DefaultUpdateBalanceCAS is the in-memory compare-and-swap. Overrides that
// intercept only some accounts delegate here for the rest; calling
// UpdateBalanceCAS from inside an override would recurse.
func (m *MockAccountRepository) DefaultUpdateBalanceCAS(_ context.Context, _ usecase.Transaction, id string, expectedVersion int64, balance, totalSpend decimal.Decimal, updatedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc, ok := m.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if acc.Version != expectedVersion {
		return domain.ErrConcurrentConflict
	}
	acc.Balance = balance
	acc.TotalSpend = totalSpend
	acc.Version++
	acc.UpdatedAt = updatedAt
	return nil
}

func (m *MockAccountRepository) List(ctx context.Context, limit, offset int) ([]*domain.Account, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var accounts []*domain.Account
	for i := offset; i < len(m.order) && len(accounts) < limit; i++ {
		copied := *m.accounts[m.order[i]]
		accounts = append(accounts, &copied)
	}
	return accounts, nil
}

// MockLedgerRepository is a mock implementation of LedgerRepository.
type MockLedgerRepository struct {
	mu      sync.RWMutex
	Entries []*domain.LedgerEntry

	CreateEntryFunc   func(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error
	ListByAccountFunc func(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error)
	GetByBatchFunc    func(ctx context.Context, batchID string) ([]*domain.LedgerEntry, error)
	SumByAccountFunc  func(ctx context.Context, accountID string) (decimal.Decimal, error)
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{}
}

func (m *MockLedgerRepository) CreateEntry(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	if m.CreateEntryFunc != nil {
		return m.CreateEntryFunc(ctx, tx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockLedgerRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	if m.ListByAccountFunc != nil {
		return m.ListByAccountFunc(ctx, accountID, limit, offset)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.LedgerEntry
	for _, e := range m.Entries {
		if e.AccountID == accountID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (m *MockLedgerRepository) GetByBatch(ctx context.Context, batchID string) ([]*domain.LedgerEntry, error) {
	if m.GetByBatchFunc != nil {
		return m.GetByBatchFunc(ctx, batchID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.LedgerEntry
	for _, e := range m.Entries {
		if e.BatchID == batchID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (m *MockLedgerRepository) SumByAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	if m.SumByAccountFunc != nil {
		return m.SumByAccountFunc(ctx, accountID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	sum := decimal.Zero
	for _, e := range m.Entries {
		if e.AccountID == accountID {
			sum = sum.Add(e.Amount)
		}
	}
	return sum, nil
}

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.StagedPayment

	CreateFunc             func(ctx context.Context, payment *domain.StagedPayment) error
	GetByIDFunc            func(ctx context.Context, id string) (*domain.StagedPayment, error)
	GetByIDsFunc           func(ctx context.Context, ids []string) ([]*domain.StagedPayment, error)
	UpdateFinalizationFunc func(ctx context.Context, id, accountID string, taxes domain.TaxBreakdown, status domain.PaymentStatus, updatedAt time.Time) error
	UpdateStatusFunc       func(ctx context.Context, id string, status domain.PaymentStatus, updatedAt time.Time) error
}

func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{payments: make(map[string]*domain.StagedPayment)}
}

func (m *MockPaymentRepository) Seed(payment *domain.StagedPayment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[payment.ID] = payment
}

// Get returns the stored payment without copying, for assertions.
func (m *MockPaymentRepository) Get(id string) *domain.StagedPayment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.payments[id]
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.StagedPayment) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, payment)
	}
	m.Seed(payment)
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.StagedPayment, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.payments[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, domain.ErrPaymentNotFound
}

func (m *MockPaymentRepository) GetByIDs(ctx context.Context, ids []string) ([]*domain.StagedPayment, error) {
	if m.GetByIDsFunc != nil {
		return m.GetByIDsFunc(ctx, ids)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var payments []*domain.StagedPayment
	for _, id := range ids {
		if p, ok := m.payments[id]; ok {
			copied := *p
			payments = append(payments, &copied)
		}
	}
	return payments, nil
}

func (m *MockPaymentRepository) UpdateFinalization(ctx context.Context, id, accountID string, taxes domain.TaxBreakdown, status domain.PaymentStatus, updatedAt time.Time) error {
	if m.UpdateFinalizationFunc != nil {
		return m.UpdateFinalizationFunc(ctx, id, accountID, taxes, status, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.AccountID = accountID
	p.Taxes = taxes
	p.Status = status
	p.UpdatedAt = updatedAt
	return nil
}

func (m *MockPaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus, updatedAt time.Time) error {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, status, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.Status = status
	p.UpdatedAt = updatedAt
	return nil
}

// MockBatchRepository is a mock implementation of BatchRepository.
type MockBatchRepository struct {
	mu      sync.RWMutex
	batches map[string]*domain.FinalizationBatch

	CreateFunc      func(ctx context.Context, batch *domain.FinalizationBatch) error
	GetByIDFunc     func(ctx context.Context, id string) (*domain.FinalizationBatch, error)
	UpdateStepFunc  func(ctx context.Context, id string, step domain.Step, updatedAt time.Time) error
	SetErrorFunc    func(ctx context.Context, id string, step domain.Step, detail string, updatedAt time.Time) error
	SetSnapshotFunc func(ctx context.Context, id, snapshotID string, updatedAt time.Time) error
}

func NewMockBatchRepository() *MockBatchRepository {
	return &MockBatchRepository{batches: make(map[string]*domain.FinalizationBatch)}
}

// Get returns the stored batch without copying, for assertions.
func (m *MockBatchRepository) Get(id string) *domain.FinalizationBatch {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.batches[id]
}

func (m *MockBatchRepository) Create(ctx context.Context, batch *domain.FinalizationBatch) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, batch)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *batch
	m.batches[batch.ID] = &copied
	return nil
}

func (m *MockBatchRepository) GetByID(ctx context.Context, id string) (*domain.FinalizationBatch, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if b, ok := m.batches[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, domain.ErrBatchNotFound
}

func (m *MockBatchRepository) UpdateStep(ctx context.Context, id string, step domain.Step, updatedAt time.Time) error {
	if m.UpdateStepFunc != nil {
		return m.UpdateStepFunc(ctx, id, step, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return domain.ErrBatchNotFound
	}
	b.Step = step
	b.UpdatedAt = updatedAt
	return nil
}

func (m *MockBatchRepository) SetError(ctx context.Context, id string, step domain.Step, detail string, updatedAt time.Time) error {
	if m.SetErrorFunc != nil {
		return m.SetErrorFunc(ctx, id, step, detail, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return domain.ErrBatchNotFound
	}
	b.Step = domain.StepError
	b.ErrorDetail = fmt.Sprintf("%s: %s", step, detail)
	b.UpdatedAt = updatedAt
	return nil
}

func (m *MockBatchRepository) SetSnapshot(ctx context.Context, id, snapshotID string, updatedAt time.Time) error {
	if m.SetSnapshotFunc != nil {
		return m.SetSnapshotFunc(ctx, id, snapshotID, updatedAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return domain.ErrBatchNotFound
	}
	b.SnapshotID = snapshotID
	b.UpdatedAt = updatedAt
	return nil
}

// MockSnapshotRepository is a mock implementation of SnapshotRepository.
type MockSnapshotRepository struct {
	mu        sync.RWMutex
	snapshots map[string]*domain.UndoSnapshot

	CreateFunc       func(ctx context.Context, snapshot *domain.UndoSnapshot) error
	GetByBatchFunc   func(ctx context.Context, batchID string) (*domain.UndoSnapshot, error)
	MarkRestoredFunc func(ctx context.Context, id string, restoredAt time.Time) error
}

func NewMockSnapshotRepository() *MockSnapshotRepository {
	return &MockSnapshotRepository{snapshots: make(map[string]*domain.UndoSnapshot)}
}

func (m *MockSnapshotRepository) Create(ctx context.Context, snapshot *domain.UndoSnapshot) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, snapshot)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshot.ID] = snapshot
	return nil
}

func (m *MockSnapshotRepository) GetByBatch(ctx context.Context, batchID string) (*domain.UndoSnapshot, error) {
	if m.GetByBatchFunc != nil {
		return m.GetByBatchFunc(ctx, batchID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.snapshots {
		if s.BatchID == batchID {
			return s, nil
		}
	}
	return nil, domain.ErrSnapshotNotFound
}

func (m *MockSnapshotRepository) MarkRestored(ctx context.Context, id string, restoredAt time.Time) error {
	if m.MarkRestoredFunc != nil {
		return m.MarkRestoredFunc(ctx, id, restoredAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snapshots[id]
	if !ok {
		return domain.ErrSnapshotNotFound
	}
	s.RestoredAt = &restoredAt
	return nil
}

// MockTaxReturnRepository is a mock implementation of TaxReturnRepository.
type MockTaxReturnRepository struct {
	mu      sync.RWMutex
	Entries []*domain.TaxReturnEntry

	CreateFunc      func(ctx context.Context, entry *domain.TaxReturnEntry) error
	ListByBatchFunc func(ctx context.Context, batchID string) ([]*domain.TaxReturnEntry, error)
}

func NewMockTaxReturnRepository() *MockTaxReturnRepository {
	return &MockTaxReturnRepository{}
}

func (m *MockTaxReturnRepository) Create(ctx context.Context, entry *domain.TaxReturnEntry) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, entry)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockTaxReturnRepository) ListByBatch(ctx context.Context, batchID string) ([]*domain.TaxReturnEntry, error) {
	if m.ListByBatchFunc != nil {
		return m.ListByBatchFunc(ctx, batchID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var entries []*domain.TaxReturnEntry
	for _, e := range m.Entries {
		if e.BatchID == batchID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// MockMasterLogRepository is a mock implementation of MasterLogRepository.
type MockMasterLogRepository struct {
	mu      sync.RWMutex
	Records []*domain.MasterLogRecord

	CreateFunc      func(ctx context.Context, record *domain.MasterLogRecord) error
	ListByBatchFunc func(ctx context.Context, batchID string) ([]*domain.MasterLogRecord, error)
}

func NewMockMasterLogRepository() *MockMasterLogRepository {
	return &MockMasterLogRepository{}
}

func (m *MockMasterLogRepository) Create(ctx context.Context, record *domain.MasterLogRecord) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, record)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, record)
	return nil
}

func (m *MockMasterLogRepository) ListByBatch(ctx context.Context, batchID string) ([]*domain.MasterLogRecord, error) {
	if m.ListByBatchFunc != nil {
		return m.ListByBatchFunc(ctx, batchID)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var records []*domain.MasterLogRecord
	for _, r := range m.Records {
		if r.BatchID == batchID {
			records = append(records, r)
		}
	}
	return records, nil
}

// MockTransaction is a no-op transaction.
type MockTransaction struct {
	Committed  bool
	RolledBack bool
}

func (t *MockTransaction) Commit(ctx context.Context) error {
	t.Committed = true
	return nil
}

func (t *MockTransaction) Rollback(ctx context.Context) error {
	if !t.Committed {
		t.RolledBack = true
	}
	return nil
}

// MockTransactionManager is a mock implementation of TransactionManager.
type MockTransactionManager struct {
	BeginFunc func(ctx context.Context) (usecase.Transaction, error)
}

func NewMockTransactionManager() *MockTransactionManager {
	return &MockTransactionManager{}
}

func (m *MockTransactionManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx)
	}
	return &MockTransaction{}, nil
}

// MockRetrier retries on optimistic conflicts up to MaxAttempts, without
// backoff delays.
type MockRetrier struct {
	MaxAttempts int
	Attempts    int
}

func NewMockRetrier() *MockRetrier {
	return &MockRetrier{MaxAttempts: 3}
}

func (r *MockRetrier) Retry(ctx context.Context, operation func() error) error {
	var err error
	for i := 0; i < r.MaxAttempts; i++ {
		r.Attempts++
		err = operation()
		if err == nil || !errors.Is(err, domain.ErrConcurrentConflict) {
			return err
		}
	}
	return err
}

// MockIDGenerator generates sequential IDs.
type MockIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func NewMockIDGenerator() *MockIDGenerator {
	return &MockIDGenerator{prefix: "id"}
}

func (g *MockIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}

// MockRateTable serves withholding rates from a fixed map.
type MockRateTable struct {
	Rates map[domain.ProcurementType]decimal.Decimal

	EffectiveWHTRateFunc func(ctx context.Context, procurement domain.ProcurementType) (decimal.Decimal, error)
}

func NewMockRateTable() *MockRateTable {
	return &MockRateTable{Rates: make(map[domain.ProcurementType]decimal.Decimal)}
}

func (m *MockRateTable) EffectiveWHTRate(ctx context.Context, procurement domain.ProcurementType) (decimal.Decimal, error) {
	if m.EffectiveWHTRateFunc != nil {
		return m.EffectiveWHTRateFunc(ctx, procurement)
	}
	if rate, ok := m.Rates[procurement]; ok {
		return rate, nil
	}
	return decimal.Zero, domain.ErrUnknownProcurementType
}

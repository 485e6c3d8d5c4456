package domain

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository is an in-memory Repository seeded with the sample
// dataset. FailNext allows tests and demos to inject transient failures
// ahead of the next fetches.
type MemoryRepository struct {
	mu          sync.Mutex
	enterprises []Enterprise
	accounts    map[int][]UtilityAccount
	budgets     map[int][]BudgetSnapshot
	failures    int
	failErr     error
	fetchCount  int
	latency     time.Duration
}

// NewMemoryRepository creates a repository with the sample dataset
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		enterprises: SampleEnterprises(),
		accounts:    SampleAccounts(),
		budgets:     SampleBudgets(),
	}
}

// FailNext makes the next n fetches return err
func (r *MemoryRepository) FailNext(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = n
	r.failErr = err
}

// SetLatency adds an artificial delay to every fetch
func (r *MemoryRepository) SetLatency(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latency = d
}

// FetchCount returns how many fetches have been attempted
func (r *MemoryRepository) FetchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fetchCount
}

// gate applies latency, cancellation and injected failures
func (r *MemoryRepository) gate(ctx context.Context) error {
	r.mu.Lock()
	r.fetchCount++
	latency := r.latency
	var err error
	if r.failures > 0 {
		r.failures--
		err = r.failErr
	}
	r.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// FetchAll returns all enterprises
func (r *MemoryRepository) FetchAll(ctx context.Context) ([]Enterprise, error) {
	if err := r.gate(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Enterprise, len(r.enterprises))
	copy(out, r.enterprises)
	return out, nil
}

// FetchAccounts returns the accounts of one enterprise
func (r *MemoryRepository) FetchAccounts(ctx context.Context, enterpriseID int) ([]UtilityAccount, error) {
	if err := r.gate(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	accounts := r.accounts[enterpriseID]
	out := make([]UtilityAccount, len(accounts))
	copy(out, accounts)
	return out, nil
}

// FetchBudgets returns the budget snapshots of one enterprise
func (r *MemoryRepository) FetchBudgets(ctx context.Context, enterpriseID int) ([]BudgetSnapshot, error) {
	if err := r.gate(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	budgets := r.budgets[enterpriseID]
	out := make([]BudgetSnapshot, len(budgets))
	copy(out, budgets)
	return out, nil
}

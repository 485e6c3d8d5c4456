package domain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchAllReturnsSampleDataset(t *testing.T) {
	repo := NewMemoryRepository()

	enterprises, err := repo.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, enterprises, 4)

	assert.Equal(t, "City Water Works", enterprises[0].Name)
	assert.Equal(t, EnterpriseWater, enterprises[0].Type)
	assert.Equal(t, 1, repo.FetchCount())
}

func TestFetchAllReturnsCopies(t *testing.T) {
	repo := NewMemoryRepository()

	first, err := repo.FetchAll(context.Background())
	require.NoError(t, err)
	first[0].Name = "mutated"

	second, err := repo.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "City Water Works", second[0].Name)
}

func TestFailNextInjectsThenRecovers(t *testing.T) {
	repo := NewMemoryRepository()
	injected := errors.New("connection reset")
	repo.FailNext(2, injected)

	_, err := repo.FetchAll(context.Background())
	assert.ErrorIs(t, err, injected)
	_, err = repo.FetchAll(context.Background())
	assert.ErrorIs(t, err, injected)

	enterprises, err := repo.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, enterprises, 4)
	assert.Equal(t, 3, repo.FetchCount())
}

func TestFetchHonorsCancellation(t *testing.T) {
	repo := NewMemoryRepository()
	repo.SetLatency(time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := repo.FetchAll(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond, "cancellation must cut the latency short")
}

func TestFetchAccountsPerEnterprise(t *testing.T) {
	repo := NewMemoryRepository()

	accounts, err := repo.FetchAccounts(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
	for _, a := range accounts {
		assert.Equal(t, 1, a.EnterpriseID)
	}

	none, err := repo.FetchAccounts(context.Background(), 999)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFetchBudgetsFullYear(t *testing.T) {
	repo := NewMemoryRepository()

	budgets, err := repo.FetchBudgets(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, budgets, 12)

	assert.Equal(t, time.January, budgets[0].Month.Month())
	assert.Equal(t, time.December, budgets[11].Month.Month())
	for _, b := range budgets {
		assert.Equal(t, 2, b.EnterpriseID)
		assert.InDelta(t, b.Revenue-b.Expenses, b.Surplus(), 0.001)
	}
}

func TestMonthlyRevenue(t *testing.T) {
	e := Enterprise{CitizenCount: 100, CurrentRate: 2.5}
	assert.InDelta(t, 250.0, e.MonthlyRevenue(), 0.001)
}

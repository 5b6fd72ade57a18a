package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
	"budget/internal/events"
	"budget/internal/store/memory"
	"budget/internal/store/sqlite"
)

func newAggregator(t *testing.T, e *env) *Aggregator {
	t.Helper()
	cfg := DefaultAggregatorConfig()
	cfg.Location = time.UTC
	a := NewAggregator(e.store, e.bus, cfg)
	a.now = func() time.Time { return refNow }
	t.Cleanup(a.Close)
	return a
}

func TestAggregatorEmptyStore(t *testing.T) {
	bus := events.NewBus(0)
	a := NewAggregator(memory.New(), bus, DefaultAggregatorConfig())
	defer a.Close()

	d, err := a.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Zero(t, d.TotalBalance)
	assert.Empty(t, d.Budgets)
	assert.Empty(t, d.Accounts)
	assert.Empty(t, d.Recent)
}

func TestAggregatorDashboardAndTransferNeutrality(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := newAggregator(t, e)

	_, err := e.ledger.CreateTransaction(ctx, core.Transaction{Date: refNow, AccountID: e.cash.ID, CategoryID: e.salary.ID, Amount: 30000})
	require.NoError(t, err)
	_, err = e.ledger.CreateTransaction(ctx, core.Transaction{Date: refNow, AccountID: e.bank.ID, CategoryID: e.food.ID, Amount: -25000})
	require.NoError(t, err)

	before, err := a.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Money(10000+50000+30000-25000), before.TotalBalance)
	require.Len(t, before.Budgets, 1)
	assert.Equal(t, 100.0, before.Budgets[0].Percentage)

	_, err = e.transfers.Create(ctx, core.TransferRequest{Amount: 4000, FromAccount: e.cash.ID, ToAccount: e.bank.ID, Date: refNow})
	require.NoError(t, err)

	after, err := a.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.TotalBalance, after.TotalBalance)
	assert.Equal(t, before.Global.Flow, after.Global.Flow)

	balances, err := a.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Money(10000+30000-4000), balances.PerAccount[e.cash.ID])
	assert.Equal(t, core.Money(50000-25000+4000), balances.PerAccount[e.bank.ID])
}

func TestAggregatorSeesWritesAfterCaching(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	a := newAggregator(t, e)

	first, err := a.Ledger(ctx)
	require.NoError(t, err)
	again, err := a.Ledger(ctx)
	require.NoError(t, err)
	assert.Same(t, first, again)

	r1, err := a.MonthlyReport(ctx, refNow)
	require.NoError(t, err)
	assert.Zero(t, r1.TransactionCount)

	_, err = e.ledger.CreateTransaction(ctx, core.Transaction{Date: refNow, AccountID: e.cash.ID, CategoryID: e.food.ID, Amount: -100})
	require.NoError(t, err)

	r2, err := a.MonthlyReport(ctx, refNow)
	require.NoError(t, err)
	assert.Equal(t, 1, r2.TransactionCount)
	assert.Equal(t, core.Money(100), r2.TotalExpenses)

	txs, err := a.Transactions(ctx, core.Criteria{Type: core.FlowExpense})
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	s, err := a.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Money(100), s.TotalExpenses)
}

// Two processes sharing one database: the writer publishes on its own bus,
// so the reader only learns about the commit from the store revision.
func TestAggregatorSeesCommitsFromAnotherStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "budget.db")

	readerStore, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { readerStore.Close() })
	writerStore, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { writerStore.Close() })

	a := NewAggregator(readerStore, events.NewBus(0), DefaultAggregatorConfig())
	t.Cleanup(a.Close)

	before, err := a.Balances(ctx)
	require.NoError(t, err)
	assert.Zero(t, before.Total)

	writer := NewLedger(writerStore, events.NewBus(0))
	acc, err := writer.CreateAccount(ctx, core.Account{Name: "Savings", InitialBalance: 500})
	require.NoError(t, err)

	after, err := a.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.Money(500), after.Total)
	assert.Equal(t, core.Money(500), after.PerAccount[acc.ID])
}

func TestAggregatorStoreReadFailure(t *testing.T) {
	e := newEnv(t)
	a := NewAggregator(failingReader{Reader: e.store}, e.bus, DefaultAggregatorConfig())
	defer a.Close()

	_, err := a.Dashboard(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreRead)
	assert.ErrorIs(t, err, errInjected)

	var readErr *StoreReadError
	require.ErrorAs(t, err, &readErr)
	assert.Equal(t, "transactions", readErr.Table)
}

func TestAggregatorCloseIsIdempotent(t *testing.T) {
	a := NewAggregator(memory.New(), events.NewBus(0), DefaultAggregatorConfig())
	a.Close()
	a.Close()
}

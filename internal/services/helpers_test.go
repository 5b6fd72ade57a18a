package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"budget/internal/core"
	"budget/internal/events"
	"budget/internal/store"
	"budget/internal/store/memory"
)

var errInjected = errors.New("injected failure")

// faultyStore fails the (allow+1)th AddTransaction of every unit of work.
// A negative allow never fails.
type faultyStore struct {
	*memory.Store
	allow int
}

func (s *faultyStore) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.Store.Update(ctx, func(tx store.Tx) error {
		return fn(&faultyTx{Tx: tx, left: s.allow})
	})
}

type faultyTx struct {
	store.Tx
	left int
}

func (t *faultyTx) AddTransaction(ctx context.Context, tr core.Transaction) (int64, error) {
	if t.left == 0 {
		return 0, errInjected
	}
	t.left--
	return t.Tx.AddTransaction(ctx, tr)
}

// failingReader fails ListTransactions.
type failingReader struct {
	store.Reader
}

func (failingReader) ListTransactions(context.Context) ([]core.Transaction, error) {
	return nil, errInjected
}

type env struct {
	store     *faultyStore
	bus       *events.Bus
	ledger    *Ledger
	transfers *Transfers

	cash, bank   core.Account
	food, salary core.Category
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	st := &faultyStore{Store: memory.New(), allow: -1}
	bus := events.NewBus(64)
	e := &env{
		store:     st,
		bus:       bus,
		ledger:    NewLedger(st, bus),
		transfers: NewTransfers(st, bus),
	}

	var err error
	e.cash, err = e.ledger.CreateAccount(ctx, core.Account{Name: "Cash", InitialBalance: 10000})
	require.NoError(t, err)
	e.bank, err = e.ledger.CreateAccount(ctx, core.Account{Name: "Bank", InitialBalance: 50000})
	require.NoError(t, err)
	limit := core.Money(20000)
	e.food, err = e.ledger.CreateCategory(ctx, core.Category{Name: "Food", Type: core.Expense, MonthlyLimit: &limit})
	require.NoError(t, err)
	e.salary, err = e.ledger.CreateCategory(ctx, core.Category{Name: "Salary", Type: core.Income})
	require.NoError(t, err)
	return e
}

// legCounts returns the number of rows per transfer id.
func legCounts(t *testing.T, r store.Reader) map[string]int {
	t.Helper()
	txs, err := r.ListTransactions(context.Background())
	require.NoError(t, err)
	counts := map[string]int{}
	for _, tx := range txs {
		if tx.TransferID != "" {
			counts[tx.TransferID]++
		}
	}
	return counts
}

var refNow = time.Date(2025, time.March, 15, 18, 0, 0, 0, time.UTC)

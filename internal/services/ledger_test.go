package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/core"
	"budget/internal/exchange"
	"budget/internal/store"
)

func TestLedgerAccountLifecycle(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.ledger.CreateAccount(ctx, core.Account{Name: "  "})
	assert.ErrorIs(t, err, core.ErrEmptyName)

	_, err = e.ledger.CreateAccount(ctx, core.Account{Name: "cash"})
	assert.ErrorIs(t, err, store.ErrDuplicateName)

	wave, err := e.ledger.CreateAccount(ctx, core.Account{Name: " Wave "})
	require.NoError(t, err)
	assert.Equal(t, "Wave", wave.Name)

	wave.InitialBalance = 700
	require.NoError(t, e.ledger.UpdateAccount(ctx, wave))
	got, err := e.store.GetAccount(ctx, wave.ID)
	require.NoError(t, err)
	assert.Equal(t, core.Money(700), got.InitialBalance)

	_, err = e.ledger.CreateTransaction(ctx, core.Transaction{Date: refNow, AccountID: wave.ID, CategoryID: e.food.ID, Amount: -100})
	require.NoError(t, err)
	assert.ErrorIs(t, e.ledger.DeleteAccount(ctx, wave.ID), store.ErrAccountInUse)
	assert.ErrorIs(t, e.ledger.DeleteAccount(ctx, 999), store.ErrNotFound)
}

func TestLedgerCategoryGuards(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	_, err := e.ledger.CreateCategory(ctx, core.Category{Name: core.TransferCategoryName, Type: core.Expense})
	assert.ErrorIs(t, err, store.ErrSystemCategory)

	_, err = e.ledger.CreateCategory(ctx, core.Category{Name: "Bonus", Type: "gift"})
	assert.ErrorIs(t, err, core.ErrInvalidCategoryType)

	_, err = e.transfers.Create(ctx, core.TransferRequest{Amount: 100, FromAccount: e.cash.ID, ToAccount: e.bank.ID, Date: refNow})
	require.NoError(t, err)
	transfer, err := e.store.CategoryByName(ctx, core.TransferCategoryName)
	require.NoError(t, err)
	assert.ErrorIs(t, e.ledger.DeleteCategory(ctx, transfer.ID), store.ErrSystemCategory)
	transfer.Name = "Moves"
	assert.ErrorIs(t, e.ledger.UpdateCategory(ctx, transfer), store.ErrSystemCategory)

	_, err = e.ledger.CreateTransaction(ctx, core.Transaction{Date: refNow, AccountID: e.cash.ID, CategoryID: e.food.ID, Amount: -100})
	require.NoError(t, err)
	assert.ErrorIs(t, e.ledger.DeleteCategory(ctx, e.food.ID), store.ErrCategoryInUse)

	spare, err := e.ledger.CreateCategory(ctx, core.Category{Name: "Spare", Type: core.Expense})
	require.NoError(t, err)
	require.NoError(t, e.ledger.DeleteCategory(ctx, spare.ID))
}

func TestReservedCategoryNameIgnoresCase(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	for _, name := range []string{"transfert", "TRANSFERT", "  tRaNsFeRt "} {
		_, err := e.ledger.CreateCategory(ctx, core.Category{Name: name, Type: core.Expense})
		assert.ErrorIs(t, err, store.ErrSystemCategory, name)
	}
	renamed := e.food
	renamed.Name = "transfert"
	assert.ErrorIs(t, e.ledger.UpdateCategory(ctx, renamed), store.ErrSystemCategory)

	_, err := e.transfers.Create(ctx, core.TransferRequest{Amount: 100, FromAccount: e.cash.ID, ToAccount: e.bank.ID, Date: refNow})
	require.NoError(t, err)
}

// A differently cased transfer category left by an older store is reused
// instead of colliding with the unique name index.
func TestTransferReusesDifferentlyCasedCategory(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	var legacy int64
	require.NoError(t, e.store.Update(ctx, func(tx store.Tx) error {
		var err error
		legacy, err = tx.AddCategory(ctx, core.Category{Name: "transfert", Type: core.Expense})
		return err
	}))

	tr, err := e.transfers.Create(ctx, core.TransferRequest{Amount: 100, FromAccount: e.cash.ID, ToAccount: e.bank.ID, Date: refNow})
	require.NoError(t, err)
	src, err := e.store.GetTransaction(ctx, tr.SourceLeg)
	require.NoError(t, err)
	assert.Equal(t, legacy, src.CategoryID)

	_, err = e.ledger.CreateTransaction(ctx, core.Transaction{Date: refNow, AccountID: e.cash.ID, CategoryID: legacy, Amount: -5})
	assert.ErrorIs(t, err, ErrTransferLeg)
}

func TestLedgerTransactionChecks(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	tests := []struct {
		name string
		tx   core.Transaction
		want error
	}{
		{"expense with positive amount", core.Transaction{Date: refNow, AccountID: e.cash.ID, CategoryID: e.food.ID, Amount: 100}, core.ErrSignMismatch},
		{"income with negative amount", core.Transaction{Date: refNow, AccountID: e.cash.ID, CategoryID: e.salary.ID, Amount: -100}, core.ErrSignMismatch},
		{"unknown account", core.Transaction{Date: refNow, AccountID: 99, CategoryID: e.food.ID, Amount: -100}, core.ErrInvalidReference},
		{"unknown category", core.Transaction{Date: refNow, AccountID: e.cash.ID, CategoryID: 99, Amount: -100}, core.ErrInvalidReference},
		{"zero amount", core.Transaction{Date: refNow, AccountID: e.cash.ID, CategoryID: e.food.ID}, core.ErrZeroAmount},
		{"transfer id", core.Transaction{Date: refNow, AccountID: e.cash.ID, CategoryID: e.food.ID, Amount: -1, TransferID: "x"}, ErrTransferLeg},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.ledger.CreateTransaction(ctx, tt.tx)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	created, err := e.ledger.CreateTransaction(ctx, core.Transaction{Date: refNow, AccountID: e.cash.ID, CategoryID: e.food.ID, Amount: -250, Description: "bread"})
	require.NoError(t, err)
	assert.Positive(t, created.ID)

	created.Amount = -300
	require.NoError(t, e.ledger.UpdateTransaction(ctx, created))
	got, err := e.store.GetTransaction(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, core.Money(-300), got.Amount)

	require.NoError(t, e.ledger.DeleteTransaction(ctx, created.ID))
	_, err = e.store.GetTransaction(ctx, created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestLedgerRejectsLegEdits(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	tr, err := e.transfers.Create(ctx, core.TransferRequest{Amount: 100, FromAccount: e.cash.ID, ToAccount: e.bank.ID, Date: refNow})
	require.NoError(t, err)

	assert.ErrorIs(t, e.ledger.DeleteTransaction(ctx, tr.SourceLeg), ErrTransferLeg)

	leg, err := e.store.GetTransaction(ctx, tr.DestLeg)
	require.NoError(t, err)
	leg.TransferID = ""
	assert.ErrorIs(t, e.ledger.UpdateTransaction(ctx, leg), ErrTransferLeg)

	assert.Equal(t, map[string]int{tr.ID: 2}, legCounts(t, e.store))
}

func TestLedgerPublishesOnlyCommittedWrites(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	changes, cancel := e.bus.Subscribe()
	defer cancel()

	_, err := e.ledger.CreateAccount(ctx, core.Account{Name: "Cash"})
	require.Error(t, err)
	_, err = e.ledger.CreateTransaction(ctx, core.Transaction{Date: refNow, AccountID: e.cash.ID, CategoryID: e.food.ID, Amount: -5})
	require.NoError(t, err)

	c := <-changes
	assert.Equal(t, "transactions", string(c.Table))
	assert.Equal(t, "create", string(c.Op))
	assert.Empty(t, changes)
}

func TestLedgerImportAndReset(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	doc := exchange.Document{
		Version:  exchange.FormatVersion,
		Accounts: []core.Account{{ID: 7, Name: "Imported"}},
		Categories: []core.Category{
			{ID: 3, Name: "Rent", Type: core.Expense},
		},
		Transactions: []core.Transaction{
			{ID: 11, Date: refNow, AccountID: 7, CategoryID: 3, Amount: -900},
		},
	}
	require.NoError(t, e.ledger.Import(ctx, doc, true))

	accounts, err := e.store.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, int64(7), accounts[0].ID)

	bad := doc
	bad.Accounts = []core.Account{{ID: 0, Name: "x"}}
	assert.Error(t, e.ledger.Import(ctx, bad, true))

	require.NoError(t, e.ledger.Reset(ctx))
	accounts, err = e.store.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, accounts)

	applied, err := e.ledger.Seed(ctx, store.DefaultSeed())
	require.NoError(t, err)
	assert.True(t, applied)
	applied, err = e.ledger.Seed(ctx, store.DefaultSeed())
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestLedgerSignAmount(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)

	m, err := e.ledger.SignAmount(ctx, e.food.ID, 250)
	require.NoError(t, err)
	assert.Equal(t, core.Money(-250), m)

	m, err = e.ledger.SignAmount(ctx, e.salary.ID, -250)
	require.NoError(t, err)
	assert.Equal(t, core.Money(250), m)

	_, err = e.ledger.SignAmount(ctx, 404, 1)
	assert.ErrorIs(t, err, core.ErrInvalidReference)
}

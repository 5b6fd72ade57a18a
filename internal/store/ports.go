// Package store defines the record store the budget engine reads snapshots
// from and writes through. Implementations live in the memory and sqlite
// subpackages.
package store

import (
	"context"
	"errors"

	"budget/internal/core"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateName  = errors.New("name already in use")
	ErrAccountInUse   = errors.New("account still has transactions")
	ErrCategoryInUse  = errors.New("category still has transactions")
	ErrSystemCategory = errors.New("system category cannot be modified or deleted")
)

// Ports for the record store. Reads never promise any ordering.
type (
	Reader interface {
		ListAccounts(ctx context.Context) ([]core.Account, error)
		ListCategories(ctx context.Context) ([]core.Category, error)
		ListTransactions(ctx context.Context) ([]core.Transaction, error)

		GetAccount(ctx context.Context, id int64) (core.Account, error)
		GetCategory(ctx context.Context, id int64) (core.Category, error)
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)

		// CategoryByName matches names case-insensitively and returns
		// ErrNotFound when no category has that name.
		CategoryByName(ctx context.Context, name string) (core.Category, error)

		// Range queries over the indexed transaction fields.
		TransactionsByAccount(ctx context.Context, accountID int64) ([]core.Transaction, error)
		TransactionsByCategory(ctx context.Context, categoryID int64) ([]core.Transaction, error)
		TransactionsByTransfer(ctx context.Context, transferID string) ([]core.Transaction, error)

		// Revision increases with every committed unit of work, whichever
		// process committed it.
		Revision(ctx context.Context) (int64, error)
	}

	// Tx is a unit of work. Writes are visible to later reads on the same Tx
	// and to everyone else only once the enclosing Update returns nil.
	Tx interface {
		Reader

		AddAccount(ctx context.Context, a core.Account) (int64, error)
		UpdateAccount(ctx context.Context, a core.Account) error
		DeleteAccount(ctx context.Context, id int64) error

		AddCategory(ctx context.Context, c core.Category) (int64, error)
		UpdateCategory(ctx context.Context, c core.Category) error
		DeleteCategory(ctx context.Context, id int64) error

		AddTransaction(ctx context.Context, t core.Transaction) (int64, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id int64) error
		// DeleteTransfer removes every row carrying transferID and reports how many.
		DeleteTransfer(ctx context.Context, transferID string) (int, error)

		// Bulk puts insert or replace rows keeping their ids.
		PutAccounts(ctx context.Context, accounts []core.Account) error
		PutCategories(ctx context.Context, categories []core.Category) error
		PutTransactions(ctx context.Context, txs []core.Transaction) error

		// Clear empties all three tables.
		Clear(ctx context.Context) error
	}

	Store interface {
		Reader
		// Update runs fn in a unit of work. If fn returns an error or panics
		// nothing it wrote is kept.
		Update(ctx context.Context, fn func(tx Tx) error) error
		Close() error
	}
)

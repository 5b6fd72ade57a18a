// Package services holds the write paths, transfer reconciliation, the
// cached aggregator and the backup processor. Every successful write
// publishes one change on the events bus after it commits.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"budget/internal/core"
	"budget/internal/events"
	"budget/internal/exchange"
	applog "budget/internal/log"
	"budget/internal/store"
)

// Ledger orchestrates account, category and plain transaction writes.
type Ledger struct {
	store store.Store
	bus   *events.Bus
}

func NewLedger(st store.Store, bus *events.Bus) *Ledger {
	return &Ledger{store: st, bus: bus}
}

func (s *Ledger) publish(table events.Table, op events.Op) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(table, op)
}

// refError turns a missing referenced row into a validation failure.
func refError(err error, what string, id int64) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s %d does not exist", core.ErrInvalidReference, what, id)
	}
	return err
}

// CreateAccount adds an account and returns it with its assigned id.
func (s *Ledger) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a.Name = strings.TrimSpace(a.Name)
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	err := s.store.Update(ctx, func(tx store.Tx) error {
		id, err := tx.AddAccount(ctx, a)
		a.ID = id
		return err
	})
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	s.publish(events.TableAccounts, events.OpCreate)
	slog.InfoContext(ctx, "Account created", "account_id", a.ID, "name", a.Name)
	return a, nil
}

func (s *Ledger) UpdateAccount(ctx context.Context, a core.Account) error {
	a.Name = strings.TrimSpace(a.Name)
	if err := a.Validate(); err != nil {
		return err
	}
	if err := s.store.Update(ctx, func(tx store.Tx) error {
		return tx.UpdateAccount(ctx, a)
	}); err != nil {
		return fmt.Errorf("update account %d: %w", a.ID, err)
	}
	s.publish(events.TableAccounts, events.OpUpdate)
	slog.InfoContext(ctx, "Account updated", "account_id", a.ID)
	return nil
}

// DeleteAccount removes an account that owns no transactions.
func (s *Ledger) DeleteAccount(ctx context.Context, id int64) error {
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.GetAccount(ctx, id); err != nil {
			return err
		}
		txs, err := tx.TransactionsByAccount(ctx, id)
		if err != nil {
			return err
		}
		if len(txs) > 0 {
			return fmt.Errorf("%w (%d)", store.ErrAccountInUse, len(txs))
		}
		return tx.DeleteAccount(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete account %d: %w", id, err)
	}
	s.publish(events.TableAccounts, events.OpDelete)
	slog.InfoContext(ctx, "Account deleted", "account_id", id)
	return nil
}

func normalizeCategory(c core.Category) (core.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if c.IsTransfer() {
		return core.Category{}, store.ErrSystemCategory
	}
	return c, nil
}

// CreateCategory adds a user category. The transfer category is reserved.
func (s *Ledger) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c, err := normalizeCategory(c)
	if err != nil {
		return core.Category{}, err
	}
	err = s.store.Update(ctx, func(tx store.Tx) error {
		id, err := tx.AddCategory(ctx, c)
		c.ID = id
		return err
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	s.publish(events.TableCategories, events.OpCreate)
	slog.InfoContext(ctx, "Category created", "category_id", c.ID, "name", c.Name, "type", c.Type)
	return c, nil
}

// UpdateCategory renames or retypes a category, or changes its limit.
// Changing the type does not rewrite the amounts already recorded.
func (s *Ledger) UpdateCategory(ctx context.Context, c core.Category) error {
	c, err := normalizeCategory(c)
	if err != nil {
		return err
	}
	err = s.store.Update(ctx, func(tx store.Tx) error {
		existing, err := tx.GetCategory(ctx, c.ID)
		if err != nil {
			return err
		}
		if existing.IsTransfer() {
			return store.ErrSystemCategory
		}
		return tx.UpdateCategory(ctx, c)
	})
	if err != nil {
		return fmt.Errorf("update category %d: %w", c.ID, err)
	}
	s.publish(events.TableCategories, events.OpUpdate)
	slog.InfoContext(ctx, "Category updated", "category_id", c.ID)
	return nil
}

// DeleteCategory removes an unreferenced user category.
func (s *Ledger) DeleteCategory(ctx context.Context, id int64) error {
	err := s.store.Update(ctx, func(tx store.Tx) error {
		existing, err := tx.GetCategory(ctx, id)
		if err != nil {
			return err
		}
		if existing.IsTransfer() {
			return store.ErrSystemCategory
		}
		txs, err := tx.TransactionsByCategory(ctx, id)
		if err != nil {
			return err
		}
		if len(txs) > 0 {
			return fmt.Errorf("%w (%d)", store.ErrCategoryInUse, len(txs))
		}
		return tx.DeleteCategory(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	s.publish(events.TableCategories, events.OpDelete)
	slog.InfoContext(ctx, "Category deleted", "category_id", id)
	return nil
}

// checkTransaction resolves t's references inside the unit of work and
// enforces the sign convention of its category.
func checkTransaction(ctx context.Context, tx store.Tx, t core.Transaction) error {
	if _, err := tx.GetAccount(ctx, t.AccountID); err != nil {
		return refError(err, "account", t.AccountID)
	}
	cat, err := tx.GetCategory(ctx, t.CategoryID)
	if err != nil {
		return refError(err, "category", t.CategoryID)
	}
	if cat.IsTransfer() {
		return ErrTransferLeg
	}
	return t.CheckSign(cat)
}

// SignAmount gives magnitude the sign its category expects: positive for
// income, negative for expense.
func (s *Ledger) SignAmount(ctx context.Context, categoryID int64, magnitude core.Money) (core.Money, error) {
	cat, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return 0, refError(err, "category", categoryID)
	}
	if cat.Type == core.Expense {
		return -magnitude.Abs(), nil
	}
	return magnitude.Abs(), nil
}

// CreateTransaction records an ordinary income or expense.
func (s *Ledger) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.TransferID != "" {
		return core.Transaction{}, ErrTransferLeg
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if err := checkTransaction(ctx, tx, t); err != nil {
			return err
		}
		id, err := tx.AddTransaction(ctx, t)
		t.ID = id
		return err
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.publish(events.TableTransactions, events.OpCreate)
	slog.InfoContext(ctx, "Transaction created", applog.NewFields().
		WithTransaction(t.ID, t.AccountID, t.CategoryID, int64(t.Amount)).
		WithComponent(applog.ComponentLedger).
		ToSlice()...)
	return t, nil
}

func (s *Ledger) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	if t.TransferID != "" {
		return ErrTransferLeg
	}
	if err := t.Validate(); err != nil {
		return err
	}
	err := s.store.Update(ctx, func(tx store.Tx) error {
		existing, err := tx.GetTransaction(ctx, t.ID)
		if err != nil {
			return err
		}
		if existing.TransferID != "" {
			return ErrTransferLeg
		}
		if err := checkTransaction(ctx, tx, t); err != nil {
			return err
		}
		return tx.UpdateTransaction(ctx, t)
	})
	if err != nil {
		return fmt.Errorf("update transaction %d: %w", t.ID, err)
	}
	s.publish(events.TableTransactions, events.OpUpdate)
	slog.InfoContext(ctx, "Transaction updated", "transaction_id", t.ID, "amount", int64(t.Amount))
	return nil
}

func (s *Ledger) DeleteTransaction(ctx context.Context, id int64) error {
	err := s.store.Update(ctx, func(tx store.Tx) error {
		existing, err := tx.GetTransaction(ctx, id)
		if err != nil {
			return err
		}
		if existing.TransferID != "" {
			return ErrTransferLeg
		}
		return tx.DeleteTransaction(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	s.publish(events.TableTransactions, events.OpDelete)
	slog.InfoContext(ctx, "Transaction deleted", "transaction_id", id)
	return nil
}

// Import writes an export document in a single unit of work.
func (s *Ledger) Import(ctx context.Context, doc exchange.Document, clearFirst bool) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	if err := s.store.Update(ctx, func(tx store.Tx) error {
		return exchange.Apply(ctx, tx, doc, clearFirst)
	}); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	s.publish(events.TableAll, events.OpImport)
	slog.InfoContext(ctx, "Import completed",
		"accounts", len(doc.Accounts),
		"categories", len(doc.Categories),
		"transactions", len(doc.Transactions),
		"clear_first", clearFirst)
	return nil
}

// Reset empties every table.
func (s *Ledger) Reset(ctx context.Context) error {
	if err := s.store.Update(ctx, func(tx store.Tx) error {
		return tx.Clear(ctx)
	}); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	s.publish(events.TableAll, events.OpClear)
	slog.WarnContext(ctx, "All data cleared")
	return nil
}

// Seed applies the seed data to an empty store.
func (s *Ledger) Seed(ctx context.Context, seed store.Seed) (bool, error) {
	applied, err := store.ApplySeed(ctx, s.store, seed)
	if err != nil {
		return false, err
	}
	if applied {
		s.publish(events.TableAll, events.OpImport)
	}
	return applied, nil
}

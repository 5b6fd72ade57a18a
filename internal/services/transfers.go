package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"budget/internal/core"
	"budget/internal/events"
	applog "budget/internal/log"
	"budget/internal/store"
)

// Transfers reconciles the two legs of account-to-account moves. Every
// operation runs in one unit of work, so a transfer id never ends up with
// a single leg.
type Transfers struct {
	store store.Store
	bus   *events.Bus
	newID func() string
}

func NewTransfers(st store.Store, bus *events.Bus) *Transfers {
	return &Transfers{store: st, bus: bus, newID: uuid.NewString}
}

// transferCategory returns the system transfer category, creating it on
// first use.
func transferCategory(ctx context.Context, tx store.Tx) (core.Category, error) {
	cat, err := tx.CategoryByName(ctx, core.TransferCategoryName)
	if err == nil {
		return cat, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return core.Category{}, err
	}
	cat = core.Category{Name: core.TransferCategoryName, Type: core.Expense}
	if cat.ID, err = tx.AddCategory(ctx, cat); err != nil {
		return core.Category{}, fmt.Errorf("create transfer category: %w", err)
	}
	return cat, nil
}

// insertLegs writes both legs under transferID and reads them back.
func insertLegs(ctx context.Context, tx store.Tx, transferID string, req core.TransferRequest) (core.Transfer, error) {
	from, err := tx.GetAccount(ctx, req.FromAccount)
	if err != nil {
		return core.Transfer{}, refError(err, "account", req.FromAccount)
	}
	to, err := tx.GetAccount(ctx, req.ToAccount)
	if err != nil {
		return core.Transfer{}, refError(err, "account", req.ToAccount)
	}
	cat, err := transferCategory(ctx, tx)
	if err != nil {
		return core.Transfer{}, err
	}

	src, dst := req.Legs(cat.ID, transferID, from.Name, to.Name)
	for _, leg := range []core.Transaction{src, dst} {
		if _, err := tx.AddTransaction(ctx, leg); err != nil {
			return core.Transfer{}, fmt.Errorf("%w: insert leg: %w", core.ErrTransferIntegrity, err)
		}
	}
	return loadTransfer(ctx, tx, transferID)
}

func loadTransfer(ctx context.Context, r store.Reader, transferID string) (core.Transfer, error) {
	legs, err := r.TransactionsByTransfer(ctx, transferID)
	if err != nil {
		return core.Transfer{}, err
	}
	return core.TransferFromLegs(legs)
}

// Create records a new transfer and returns it with its id and leg ids.
func (s *Transfers) Create(ctx context.Context, req core.TransferRequest) (core.Transfer, error) {
	if err := req.Validate(); err != nil {
		return core.Transfer{}, err
	}
	var out core.Transfer
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		out, err = insertLegs(ctx, tx, s.newID(), req)
		return err
	})
	if err != nil {
		return core.Transfer{}, fmt.Errorf("create transfer: %w", err)
	}
	s.publish(events.OpCreate)
	logTransfer(ctx, applog.OpCreate, out)
	return out, nil
}

// Get rebuilds a transfer from its legs.
func (s *Transfers) Get(ctx context.Context, transferID string) (core.Transfer, error) {
	return loadTransfer(ctx, s.store, transferID)
}

// Edit replaces a transfer by deleting its legs and inserting new ones under
// the same id. The existing transfer must have exactly two legs.
func (s *Transfers) Edit(ctx context.Context, transferID string, req core.TransferRequest) (core.Transfer, error) {
	if err := req.Validate(); err != nil {
		return core.Transfer{}, err
	}
	var out core.Transfer
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := loadTransfer(ctx, tx, transferID); err != nil {
			return err
		}
		n, err := tx.DeleteTransfer(ctx, transferID)
		if err != nil {
			return err
		}
		if n != 2 {
			return fmt.Errorf("%w: deleted %d legs", core.ErrTransferIntegrity, n)
		}
		out, err = insertLegs(ctx, tx, transferID, req)
		return err
	})
	if err != nil {
		return core.Transfer{}, fmt.Errorf("edit transfer %s: %w", transferID, err)
	}
	s.publish(events.OpUpdate)
	logTransfer(ctx, applog.OpUpdate, out)
	return out, nil
}

// Delete removes every leg carrying transferID. A transfer left with a
// single leg by some earlier fault is deleted too, with a warning.
func (s *Transfers) Delete(ctx context.Context, transferID string) error {
	var n int
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		n, err = tx.DeleteTransfer(ctx, transferID)
		if err != nil {
			return err
		}
		if n == 0 {
			return core.ErrTransferNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete transfer %s: %w", transferID, err)
	}
	if n != 2 {
		slog.WarnContext(ctx, "Deleted transfer with unexpected leg count", "transfer_id", transferID, "legs", n)
	}
	s.publish(events.OpDelete)
	slog.InfoContext(ctx, "Transfer deleted", "transfer_id", transferID)
	return nil
}

func logTransfer(ctx context.Context, op string, t core.Transfer) {
	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogTransferChanged(ctx, op, t.ID, t.FromAccount, t.ToAccount, int64(t.Amount))
}

func (s *Transfers) publish(op events.Op) {
	if s.bus != nil {
		s.bus.Publish(events.TableTransactions, op)
	}
}

// Package memory is an in-process record store. Each unit of work runs on a
// private copy of the tables which replaces the live tables on commit.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"budget/internal/core"
	"budget/internal/store"
)

type tables struct {
	accounts     map[int64]core.Account
	categories   map[int64]core.Category
	transactions map[int64]core.Transaction
	nextID       struct{ account, category, transaction int64 }
	revision     int64
}

func newTables() *tables {
	t := &tables{
		accounts:     map[int64]core.Account{},
		categories:   map[int64]core.Category{},
		transactions: map[int64]core.Transaction{},
	}
	t.nextID.account, t.nextID.category, t.nextID.transaction = 1, 1, 1
	return t
}

func (t *tables) clone() *tables {
	c := &tables{
		accounts:     maps.Clone(t.accounts),
		categories:   maps.Clone(t.categories),
		transactions: maps.Clone(t.transactions),
		nextID:       t.nextID,
		revision:     t.revision,
	}
	// Limits are pointers; copy them so a rolled back unit of work cannot
	// leak edits into the live tables.
	for id, cat := range c.categories {
		cat.MonthlyLimit = copyLimit(cat.MonthlyLimit)
		c.categories[id] = cat
	}
	return c
}

func copyLimit(m *core.Money) *core.Money {
	if m == nil {
		return nil
	}
	v := *m
	return &v
}

type Store struct {
	writeMu sync.Mutex   // serialises units of work
	mu      sync.RWMutex // guards live
	live    *tables
}

func New() *Store {
	return &Store{live: newTables()}
}

func (s *Store) read() *view {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &view{t: s.live}
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	work := s.live.clone()
	s.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unit of work panicked: %v", r)
		}
	}()
	if err := fn(&txn{view: view{t: work}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	work.revision++
	s.mu.Lock()
	s.live = work
	s.mu.Unlock()
	return nil
}

func (s *Store) Close() error { return nil }

func (s *Store) ListAccounts(ctx context.Context) ([]core.Account, error) {
	return s.read().ListAccounts(ctx)
}

func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.read().ListCategories(ctx)
}

func (s *Store) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.read().ListTransactions(ctx)
}

func (s *Store) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return s.read().GetAccount(ctx, id)
}

func (s *Store) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	return s.read().GetCategory(ctx, id)
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return s.read().GetTransaction(ctx, id)
}

func (s *Store) CategoryByName(ctx context.Context, name string) (core.Category, error) {
	return s.read().CategoryByName(ctx, name)
}

func (s *Store) TransactionsByAccount(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	return s.read().TransactionsByAccount(ctx, accountID)
}

func (s *Store) TransactionsByCategory(ctx context.Context, categoryID int64) ([]core.Transaction, error) {
	return s.read().TransactionsByCategory(ctx, categoryID)
}

func (s *Store) TransactionsByTransfer(ctx context.Context, transferID string) ([]core.Transaction, error) {
	return s.read().TransactionsByTransfer(ctx, transferID)
}

func (s *Store) Revision(ctx context.Context) (int64, error) {
	return s.read().Revision(ctx)
}

// view reads one version of the tables. Committed versions are never
// mutated, so a view over s.live needs no lock once obtained.
type view struct {
	t *tables
}

func sortedValues[T any](m map[int64]T) []T {
	keys := slices.Sorted(maps.Keys(m))
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func (v *view) Revision(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return v.t.revision, nil
}

func (v *view) ListAccounts(ctx context.Context) ([]core.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sortedValues(v.t.accounts), nil
}

func (v *view) ListCategories(ctx context.Context) ([]core.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := sortedValues(v.t.categories)
	for i := range out {
		out[i].MonthlyLimit = copyLimit(out[i].MonthlyLimit)
	}
	return out, nil
}

func (v *view) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return sortedValues(v.t.transactions), nil
}

func (v *view) GetAccount(_ context.Context, id int64) (core.Account, error) {
	a, ok := v.t.accounts[id]
	if !ok {
		return core.Account{}, fmt.Errorf("account %d: %w", id, store.ErrNotFound)
	}
	return a, nil
}

func (v *view) GetCategory(_ context.Context, id int64) (core.Category, error) {
	c, ok := v.t.categories[id]
	if !ok {
		return core.Category{}, fmt.Errorf("category %d: %w", id, store.ErrNotFound)
	}
	c.MonthlyLimit = copyLimit(c.MonthlyLimit)
	return c, nil
}

func (v *view) GetTransaction(_ context.Context, id int64) (core.Transaction, error) {
	t, ok := v.t.transactions[id]
	if !ok {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", id, store.ErrNotFound)
	}
	return t, nil
}

func (v *view) CategoryByName(ctx context.Context, name string) (core.Category, error) {
	for _, c := range sortedValues(v.t.categories) {
		if sameName(c.Name, name) {
			return v.GetCategory(ctx, c.ID)
		}
	}
	return core.Category{}, fmt.Errorf("category %q: %w", name, store.ErrNotFound)
}

func (v *view) where(match func(core.Transaction) bool) []core.Transaction {
	var out []core.Transaction
	for _, t := range sortedValues(v.t.transactions) {
		if match(t) {
			out = append(out, t)
		}
	}
	return out
}

func (v *view) TransactionsByAccount(_ context.Context, accountID int64) ([]core.Transaction, error) {
	return v.where(func(t core.Transaction) bool { return t.AccountID == accountID }), nil
}

func (v *view) TransactionsByCategory(_ context.Context, categoryID int64) ([]core.Transaction, error) {
	return v.where(func(t core.Transaction) bool { return t.CategoryID == categoryID }), nil
}

func (v *view) TransactionsByTransfer(_ context.Context, transferID string) ([]core.Transaction, error) {
	if transferID == "" {
		return nil, nil
	}
	return v.where(func(t core.Transaction) bool { return t.TransferID == transferID }), nil
}

// txn writes to a private copy of the tables.
type txn struct {
	view
}

func sameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func (x *txn) accountNameTaken(name string, except int64) bool {
	for id, a := range x.t.accounts {
		if id != except && sameName(a.Name, name) {
			return true
		}
	}
	return false
}

func (x *txn) categoryNameTaken(name string, except int64) bool {
	for id, c := range x.t.categories {
		if id != except && sameName(c.Name, name) {
			return true
		}
	}
	return false
}

func (x *txn) AddAccount(_ context.Context, a core.Account) (int64, error) {
	if x.accountNameTaken(a.Name, 0) {
		return 0, fmt.Errorf("account %q: %w", a.Name, store.ErrDuplicateName)
	}
	a.ID = x.t.nextID.account
	x.t.nextID.account++
	x.t.accounts[a.ID] = a
	return a.ID, nil
}

func (x *txn) UpdateAccount(_ context.Context, a core.Account) error {
	if _, ok := x.t.accounts[a.ID]; !ok {
		return fmt.Errorf("account %d: %w", a.ID, store.ErrNotFound)
	}
	if x.accountNameTaken(a.Name, a.ID) {
		return fmt.Errorf("account %q: %w", a.Name, store.ErrDuplicateName)
	}
	x.t.accounts[a.ID] = a
	return nil
}

func (x *txn) DeleteAccount(_ context.Context, id int64) error {
	if _, ok := x.t.accounts[id]; !ok {
		return fmt.Errorf("account %d: %w", id, store.ErrNotFound)
	}
	delete(x.t.accounts, id)
	return nil
}

func (x *txn) AddCategory(_ context.Context, c core.Category) (int64, error) {
	if x.categoryNameTaken(c.Name, 0) {
		return 0, fmt.Errorf("category %q: %w", c.Name, store.ErrDuplicateName)
	}
	c.ID = x.t.nextID.category
	c.MonthlyLimit = copyLimit(c.MonthlyLimit)
	x.t.nextID.category++
	x.t.categories[c.ID] = c
	return c.ID, nil
}

func (x *txn) UpdateCategory(_ context.Context, c core.Category) error {
	if _, ok := x.t.categories[c.ID]; !ok {
		return fmt.Errorf("category %d: %w", c.ID, store.ErrNotFound)
	}
	if x.categoryNameTaken(c.Name, c.ID) {
		return fmt.Errorf("category %q: %w", c.Name, store.ErrDuplicateName)
	}
	c.MonthlyLimit = copyLimit(c.MonthlyLimit)
	x.t.categories[c.ID] = c
	return nil
}

func (x *txn) DeleteCategory(_ context.Context, id int64) error {
	if _, ok := x.t.categories[id]; !ok {
		return fmt.Errorf("category %d: %w", id, store.ErrNotFound)
	}
	delete(x.t.categories, id)
	return nil
}

func (x *txn) AddTransaction(_ context.Context, t core.Transaction) (int64, error) {
	t.ID = x.t.nextID.transaction
	x.t.nextID.transaction++
	x.t.transactions[t.ID] = t
	return t.ID, nil
}

func (x *txn) UpdateTransaction(_ context.Context, t core.Transaction) error {
	if _, ok := x.t.transactions[t.ID]; !ok {
		return fmt.Errorf("transaction %d: %w", t.ID, store.ErrNotFound)
	}
	x.t.transactions[t.ID] = t
	return nil
}

func (x *txn) DeleteTransaction(_ context.Context, id int64) error {
	if _, ok := x.t.transactions[id]; !ok {
		return fmt.Errorf("transaction %d: %w", id, store.ErrNotFound)
	}
	delete(x.t.transactions, id)
	return nil
}

func (x *txn) DeleteTransfer(_ context.Context, transferID string) (int, error) {
	if transferID == "" {
		return 0, nil
	}
	n := 0
	for id, t := range x.t.transactions {
		if t.TransferID == transferID {
			delete(x.t.transactions, id)
			n++
		}
	}
	return n, nil
}

func (x *txn) PutAccounts(_ context.Context, accounts []core.Account) error {
	for _, a := range accounts {
		if a.ID <= 0 {
			return fmt.Errorf("put account %q: missing id", a.Name)
		}
		if x.accountNameTaken(a.Name, a.ID) {
			return fmt.Errorf("account %q: %w", a.Name, store.ErrDuplicateName)
		}
		x.t.accounts[a.ID] = a
		x.t.nextID.account = max(x.t.nextID.account, a.ID+1)
	}
	return nil
}

func (x *txn) PutCategories(_ context.Context, categories []core.Category) error {
	for _, c := range categories {
		if c.ID <= 0 {
			return fmt.Errorf("put category %q: missing id", c.Name)
		}
		if x.categoryNameTaken(c.Name, c.ID) {
			return fmt.Errorf("category %q: %w", c.Name, store.ErrDuplicateName)
		}
		c.MonthlyLimit = copyLimit(c.MonthlyLimit)
		x.t.categories[c.ID] = c
		x.t.nextID.category = max(x.t.nextID.category, c.ID+1)
	}
	return nil
}

func (x *txn) PutTransactions(_ context.Context, txs []core.Transaction) error {
	for _, t := range txs {
		if t.ID <= 0 {
			return fmt.Errorf("put transaction: missing id")
		}
		x.t.transactions[t.ID] = t
		x.t.nextID.transaction = max(x.t.nextID.transaction, t.ID+1)
	}
	return nil
}

func (x *txn) Clear(_ context.Context) error {
	next := x.t.nextID
	*x.t = *newTables()
	// Ids keep growing across a clear, like SQLite AUTOINCREMENT.
	x.t.nextID = next
	return nil
}

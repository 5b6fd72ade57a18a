package core

import (
	"encoding/json"
	"sort"
)

// CategoryRef is the result of resolving a transaction's category id. A
// reference can be unresolved when the category no longer exists; callers
// must go through Get and handle both branches.
type CategoryRef struct {
	ID  int64
	cat *Category
}

// Get returns the resolved category, or false when the id did not resolve.
func (r CategoryRef) Get() (Category, bool) {
	if r.cat == nil {
		return Category{}, false
	}
	return *r.cat, true
}

func (r CategoryRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.cat)
}

// AccountRef is the account counterpart of CategoryRef.
type AccountRef struct {
	ID  int64
	acc *Account
}

// Get returns the resolved account, or false when the id did not resolve.
func (r AccountRef) Get() (Account, bool) {
	if r.acc == nil {
		return Account{}, false
	}
	return *r.acc, true
}

// Name is the account name, empty when unresolved.
func (r AccountRef) Name() string {
	if r.acc == nil {
		return ""
	}
	return r.acc.Name
}

func (r AccountRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.acc)
}

// EnrichedTransaction is a stored transaction joined with its category and
// account plus the derived flow flags.
type EnrichedTransaction struct {
	Transaction
	Category   CategoryRef `json:"category"`
	Account    AccountRef  `json:"account"`
	IsIncome   bool        `json:"isIncome"`
	IsTransfer bool        `json:"isTransfer"`
}

// Classify derives the flow flags of t given its category reference.
//
// A transfer is a row carrying a transfer id or the transfer category; its
// receiving leg counts as income. Otherwise the resolved category type wins
// over the amount sign. An unresolved category falls back to the sign.
func Classify(t Transaction, ref CategoryRef) (isIncome, isTransfer bool) {
	cat, ok := ref.Get()
	if !ok {
		return t.Amount > 0, t.TransferID != ""
	}
	if t.TransferID != "" || cat.IsTransfer() {
		return t.Amount > 0, true
	}
	return cat.Type == Income, false
}

// Snapshot is a full copy of the three tables at one point in time.
type Snapshot struct {
	Accounts     []Account
	Categories   []Category
	Transactions []Transaction
}

// IsEmpty reports whether the snapshot holds no rows at all.
func (s Snapshot) IsEmpty() bool {
	return len(s.Accounts) == 0 && len(s.Categories) == 0 && len(s.Transactions) == 0
}

// Ledger is an enriched, read-only view of a snapshot. The join is computed
// once in NewLedger and shared by every aggregate built from it.
type Ledger struct {
	accounts     []Account
	categories   []Category
	accountByID  map[int64]*Account
	categoryByID map[int64]*Category
	txs          []EnrichedTransaction
}

// NewLedger copies and indexes the snapshot and enriches its transactions.
// Accounts and categories are ordered by id; transactions most recent first.
func NewLedger(s Snapshot) *Ledger {
	l := &Ledger{
		accounts:     append([]Account(nil), s.Accounts...),
		categories:   append([]Category(nil), s.Categories...),
		accountByID:  make(map[int64]*Account, len(s.Accounts)),
		categoryByID: make(map[int64]*Category, len(s.Categories)),
	}
	sort.SliceStable(l.accounts, func(i, j int) bool { return l.accounts[i].ID < l.accounts[j].ID })
	sort.SliceStable(l.categories, func(i, j int) bool { return l.categories[i].ID < l.categories[j].ID })
	for i := range l.accounts {
		l.accountByID[l.accounts[i].ID] = &l.accounts[i]
	}
	for i := range l.categories {
		l.categoryByID[l.categories[i].ID] = &l.categories[i]
	}
	l.txs = l.enrich(s.Transactions)
	return l
}

// Enrich joins transactions with the given accounts and categories and
// returns them most recent first.
func Enrich(accounts []Account, categories []Category, txs []Transaction) []EnrichedTransaction {
	return NewLedger(Snapshot{Accounts: accounts, Categories: categories, Transactions: txs}).Transactions()
}

func (l *Ledger) enrich(txs []Transaction) []EnrichedTransaction {
	out := make([]EnrichedTransaction, len(txs))
	for i, t := range txs {
		cref := l.Category(t.CategoryID)
		isIncome, isTransfer := Classify(t, cref)
		out[i] = EnrichedTransaction{
			Transaction: t,
			Category:    cref,
			Account:     l.Account(t.AccountID),
			IsIncome:    isIncome,
			IsTransfer:  isTransfer,
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Category resolves a category id.
func (l *Ledger) Category(id int64) CategoryRef {
	return CategoryRef{ID: id, cat: l.categoryByID[id]}
}

// Account resolves an account id.
func (l *Ledger) Account(id int64) AccountRef {
	return AccountRef{ID: id, acc: l.accountByID[id]}
}

// Accounts returns the accounts ordered by id. The slice must not be modified.
func (l *Ledger) Accounts() []Account { return l.accounts }

// Categories returns the categories ordered by id. The slice must not be modified.
func (l *Ledger) Categories() []Category { return l.categories }

// Transactions returns the enriched transactions, most recent first.
// The slice is shared and must not be modified.
func (l *Ledger) Transactions() []EnrichedTransaction { return l.txs }

// chronological calls fn for every transaction oldest first, which matches
// insertion order for rows sharing a date.
func (l *Ledger) chronological(fn func(t EnrichedTransaction)) {
	for i := len(l.txs) - 1; i >= 0; i-- {
		fn(l.txs[i])
	}
}

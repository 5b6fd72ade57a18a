// Package exchange moves ledger data in and out of the process: the JSON
// export document used for backups and restores, and CSV lists.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"budget/internal/core"
	"budget/internal/store"
)

// FormatVersion is the only document version Read accepts.
const FormatVersion = 1

var (
	ErrUnsupportedVersion = errors.New("unsupported export version")
	ErrMissingTable       = errors.New("document is missing a table")
	ErrBrokenTransfer     = errors.New("transfer must have exactly two legs")
)

// Document is the export format. Transaction dates travel as ISO-8601
// strings through time.Time's JSON encoding.
type Document struct {
	Version      int                `json:"version"`
	Timestamp    time.Time          `json:"timestamp"`
	Accounts     []core.Account     `json:"accounts"`
	Categories   []core.Category    `json:"categories"`
	Transactions []core.Transaction `json:"transactions"`
}

// Snapshot returns the document's tables.
func (d Document) Snapshot() core.Snapshot {
	return core.Snapshot{Accounts: d.Accounts, Categories: d.Categories, Transactions: d.Transactions}
}

// Export reads all three tables into a document stamped with at.
func Export(ctx context.Context, r store.Reader, at time.Time) (Document, error) {
	doc := Document{Version: FormatVersion, Timestamp: at.UTC()}

	var err error
	if doc.Accounts, err = r.ListAccounts(ctx); err != nil {
		return Document{}, fmt.Errorf("export accounts: %w", err)
	}
	if doc.Categories, err = r.ListCategories(ctx); err != nil {
		return Document{}, fmt.Errorf("export categories: %w", err)
	}
	if doc.Transactions, err = r.ListTransactions(ctx); err != nil {
		return Document{}, fmt.Errorf("export transactions: %w", err)
	}
	if doc.Accounts == nil {
		doc.Accounts = []core.Account{}
	}
	if doc.Categories == nil {
		doc.Categories = []core.Category{}
	}
	if doc.Transactions == nil {
		doc.Transactions = []core.Transaction{}
	}
	return doc, nil
}

// Write encodes doc as indented JSON.
func Write(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// Read decodes and validates a document.
func Read(r io.Reader) (Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decode export: %w", err)
	}
	if doc.Version != FormatVersion {
		return Document{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Validate checks that all three tables are present, every row is valid,
// ids are positive and unique per table and each transfer id is carried by
// exactly two rows. An empty table is present; a nil one is not.
// References between tables are not checked: an export may legitimately
// contain transactions whose category was deleted.
func (d Document) Validate() error {
	switch {
	case d.Accounts == nil:
		return fmt.Errorf("%w: accounts", ErrMissingTable)
	case d.Categories == nil:
		return fmt.Errorf("%w: categories", ErrMissingTable)
	case d.Transactions == nil:
		return fmt.Errorf("%w: transactions", ErrMissingTable)
	}

	seen := map[int64]bool{}
	for _, a := range d.Accounts {
		if a.ID <= 0 || seen[a.ID] {
			return fmt.Errorf("account %d: invalid or duplicate id", a.ID)
		}
		seen[a.ID] = true
		if err := a.Validate(); err != nil {
			return fmt.Errorf("account %d: %w", a.ID, err)
		}
	}
	clear(seen)
	for _, c := range d.Categories {
		if c.ID <= 0 || seen[c.ID] {
			return fmt.Errorf("category %d: invalid or duplicate id", c.ID)
		}
		seen[c.ID] = true
		if err := c.Validate(); err != nil {
			return fmt.Errorf("category %d: %w", c.ID, err)
		}
	}
	clear(seen)
	for _, t := range d.Transactions {
		if t.ID <= 0 || seen[t.ID] {
			return fmt.Errorf("transaction %d: invalid or duplicate id", t.ID)
		}
		seen[t.ID] = true
		if err := t.Validate(); err != nil {
			return fmt.Errorf("transaction %d: %w", t.ID, err)
		}
	}
	return checkTransferGroups(d.Transactions)
}

func checkTransferGroups(txs []core.Transaction) error {
	legs := map[string]int{}
	for _, t := range txs {
		if t.TransferID != "" {
			legs[t.TransferID]++
		}
	}
	for id, n := range legs {
		if n != 2 {
			return fmt.Errorf("%w: %s has %d", ErrBrokenTransfer, id, n)
		}
	}
	return nil
}

// Apply writes doc into tx keeping its ids. With clearFirst the tables are
// emptied beforehand; otherwise rows with matching ids are replaced.
func Apply(ctx context.Context, tx store.Tx, doc Document, clearFirst bool) error {
	if clearFirst {
		if err := tx.Clear(ctx); err != nil {
			return fmt.Errorf("clear: %w", err)
		}
	}
	if err := tx.PutAccounts(ctx, doc.Accounts); err != nil {
		return fmt.Errorf("import accounts: %w", err)
	}
	if err := tx.PutCategories(ctx, doc.Categories); err != nil {
		return fmt.Errorf("import categories: %w", err)
	}
	if err := tx.PutTransactions(ctx, doc.Transactions); err != nil {
		return fmt.Errorf("import transactions: %w", err)
	}
	return nil
}

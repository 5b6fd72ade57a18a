// Package sqlite is the SQLite record store, built on modernc.org/sqlite
// with golang-migrate schema migrations.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"budget/internal/core"
	"budget/internal/store"
)

// Dates are stored as UTC RFC 3339 text so lexical order is time order.
const dateLayout = "2006-01-02T15:04:05.000000000Z07:00"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	reader
	db *sql.DB
}

func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

// Open creates the database directory if needed, applies migrations and
// returns a ready store.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQLite store ready", "db_path", dbPath)
	return &Store{reader: reader{q: db}, db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Update runs fn inside a SQL transaction.
func (s *Store) Update(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = sqlTx.Rollback()
			err = fmt.Errorf("unit of work panicked: %v", r)
		}
	}()

	if err := fn(&txn{reader: reader{q: sqlTx}}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}

	if _, err := sqlTx.ExecContext(ctx, `UPDATE store_revision SET revision = revision + 1 WHERE id = 1`); err != nil {
		_ = sqlTx.Rollback()
		return fmt.Errorf("bump revision: %w", err)
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored date %q: %w", s, err)
	}
	return t, nil
}

func nullLimit(m *core.Money) sql.NullInt64 {
	if m == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*m), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// mapErr turns unique constraint violations into store.ErrDuplicateName.
func mapErr(err error, what string) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return fmt.Errorf("%s: %w", what, store.ErrDuplicateName)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func mustAffect(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return nil
}

type reader struct {
	q querier
}

const (
	accountCols     = `id, name, initial_balance`
	categoryCols    = `id, name, type, monthly_limit`
	transactionCols = `id, date, account_id, category_id, amount, description, transfer_id`
)

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (core.Account, error) {
	var a core.Account
	err := s.Scan(&a.ID, &a.Name, &a.InitialBalance)
	return a, err
}

func scanCategory(s scanner) (core.Category, error) {
	var (
		c     core.Category
		typ   string
		limit sql.NullInt64
	)
	if err := s.Scan(&c.ID, &c.Name, &typ, &limit); err != nil {
		return c, err
	}
	c.Type = core.CategoryType(typ)
	if limit.Valid {
		m := core.Money(limit.Int64)
		c.MonthlyLimit = &m
	}
	return c, nil
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t          core.Transaction
		date       string
		transferID sql.NullString
	)
	if err := s.Scan(&t.ID, &date, &t.AccountID, &t.CategoryID, &t.Amount, &t.Description, &transferID); err != nil {
		return t, err
	}
	d, err := parseDate(date)
	if err != nil {
		return t, err
	}
	t.Date = d
	t.TransferID = transferID.String
	return t, nil
}

func queryAll[T any](ctx context.Context, q querier, scan func(scanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func queryOne[T any](ctx context.Context, q querier, scan func(scanner) (T, error), what, query string, args ...any) (T, error) {
	v, err := scan(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return v, fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	if err != nil {
		return v, fmt.Errorf("%s: %w", what, err)
	}
	return v, nil
}

func (r reader) ListAccounts(ctx context.Context) ([]core.Account, error) {
	out, err := queryAll(ctx, r.q, scanAccount, `SELECT `+accountCols+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return out, nil
}

func (r reader) ListCategories(ctx context.Context) ([]core.Category, error) {
	out, err := queryAll(ctx, r.q, scanCategory, `SELECT `+categoryCols+` FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}

func (r reader) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	out, err := queryAll(ctx, r.q, scanTransaction, `SELECT `+transactionCols+` FROM transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

func (r reader) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	return queryOne(ctx, r.q, scanAccount, fmt.Sprintf("account %d", id),
		`SELECT `+accountCols+` FROM accounts WHERE id = ?`, id)
}

func (r reader) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	return queryOne(ctx, r.q, scanCategory, fmt.Sprintf("category %d", id),
		`SELECT `+categoryCols+` FROM categories WHERE id = ?`, id)
}

func (r reader) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	return queryOne(ctx, r.q, scanTransaction, fmt.Sprintf("transaction %d", id),
		`SELECT `+transactionCols+` FROM transactions WHERE id = ?`, id)
}

func (r reader) CategoryByName(ctx context.Context, name string) (core.Category, error) {
	return queryOne(ctx, r.q, scanCategory, fmt.Sprintf("category %q", name),
		`SELECT `+categoryCols+` FROM categories WHERE name = ? COLLATE NOCASE ORDER BY id LIMIT 1`, strings.TrimSpace(name))
}

func (r reader) Revision(ctx context.Context) (int64, error) {
	var rev int64
	if err := r.q.QueryRowContext(ctx, `SELECT revision FROM store_revision WHERE id = 1`).Scan(&rev); err != nil {
		return 0, fmt.Errorf("read revision: %w", err)
	}
	return rev, nil
}

func (r reader) transactionsWhere(ctx context.Context, column string, value any) ([]core.Transaction, error) {
	out, err := queryAll(ctx, r.q, scanTransaction,
		`SELECT `+transactionCols+` FROM transactions WHERE `+column+` = ? ORDER BY id`, value)
	if err != nil {
		return nil, fmt.Errorf("transactions by %s: %w", column, err)
	}
	return out, nil
}

func (r reader) TransactionsByAccount(ctx context.Context, accountID int64) ([]core.Transaction, error) {
	return r.transactionsWhere(ctx, "account_id", accountID)
}

func (r reader) TransactionsByCategory(ctx context.Context, categoryID int64) ([]core.Transaction, error) {
	return r.transactionsWhere(ctx, "category_id", categoryID)
}

func (r reader) TransactionsByTransfer(ctx context.Context, transferID string) ([]core.Transaction, error) {
	if transferID == "" {
		return nil, nil
	}
	return r.transactionsWhere(ctx, "transfer_id", transferID)
}

// txn implements store.Tx on top of a *sql.Tx.
type txn struct {
	reader
}

func (x *txn) insert(ctx context.Context, what, query string, args ...any) (int64, error) {
	res, err := x.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, mapErr(err, what)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	return id, nil
}

func (x *txn) exec(ctx context.Context, what, query string, args ...any) error {
	res, err := x.q.ExecContext(ctx, query, args...)
	if err != nil {
		return mapErr(err, what)
	}
	return mustAffect(res, what)
}

func (x *txn) AddAccount(ctx context.Context, a core.Account) (int64, error) {
	return x.insert(ctx, fmt.Sprintf("add account %q", a.Name),
		`INSERT INTO accounts (name, initial_balance) VALUES (?, ?)`, a.Name, int64(a.InitialBalance))
}

func (x *txn) UpdateAccount(ctx context.Context, a core.Account) error {
	return x.exec(ctx, fmt.Sprintf("update account %d", a.ID),
		`UPDATE accounts SET name = ?, initial_balance = ? WHERE id = ?`, a.Name, int64(a.InitialBalance), a.ID)
}

func (x *txn) DeleteAccount(ctx context.Context, id int64) error {
	return x.exec(ctx, fmt.Sprintf("delete account %d", id), `DELETE FROM accounts WHERE id = ?`, id)
}

func (x *txn) AddCategory(ctx context.Context, c core.Category) (int64, error) {
	return x.insert(ctx, fmt.Sprintf("add category %q", c.Name),
		`INSERT INTO categories (name, type, monthly_limit) VALUES (?, ?, ?)`,
		c.Name, string(c.Type), nullLimit(c.MonthlyLimit))
}

func (x *txn) UpdateCategory(ctx context.Context, c core.Category) error {
	return x.exec(ctx, fmt.Sprintf("update category %d", c.ID),
		`UPDATE categories SET name = ?, type = ?, monthly_limit = ? WHERE id = ?`,
		c.Name, string(c.Type), nullLimit(c.MonthlyLimit), c.ID)
}

func (x *txn) DeleteCategory(ctx context.Context, id int64) error {
	return x.exec(ctx, fmt.Sprintf("delete category %d", id), `DELETE FROM categories WHERE id = ?`, id)
}

func (x *txn) AddTransaction(ctx context.Context, t core.Transaction) (int64, error) {
	return x.insert(ctx, "add transaction",
		`INSERT INTO transactions (date, account_id, category_id, amount, description, transfer_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		formatDate(t.Date), t.AccountID, t.CategoryID, int64(t.Amount), t.Description, nullString(t.TransferID))
}

func (x *txn) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	return x.exec(ctx, fmt.Sprintf("update transaction %d", t.ID),
		`UPDATE transactions
		 SET date = ?, account_id = ?, category_id = ?, amount = ?, description = ?, transfer_id = ?
		 WHERE id = ?`,
		formatDate(t.Date), t.AccountID, t.CategoryID, int64(t.Amount), t.Description, nullString(t.TransferID), t.ID)
}

func (x *txn) DeleteTransaction(ctx context.Context, id int64) error {
	return x.exec(ctx, fmt.Sprintf("delete transaction %d", id), `DELETE FROM transactions WHERE id = ?`, id)
}

func (x *txn) DeleteTransfer(ctx context.Context, transferID string) (int, error) {
	if transferID == "" {
		return 0, nil
	}
	res, err := x.q.ExecContext(ctx, `DELETE FROM transactions WHERE transfer_id = ?`, transferID)
	if err != nil {
		return 0, fmt.Errorf("delete transfer %s: %w", transferID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete transfer %s: %w", transferID, err)
	}
	return int(n), nil
}

func (x *txn) PutAccounts(ctx context.Context, accounts []core.Account) error {
	for _, a := range accounts {
		_, err := x.q.ExecContext(ctx,
			`INSERT INTO accounts (id, name, initial_balance) VALUES (?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET name = excluded.name, initial_balance = excluded.initial_balance`,
			a.ID, a.Name, int64(a.InitialBalance))
		if err != nil {
			return mapErr(err, fmt.Sprintf("put account %d", a.ID))
		}
	}
	return nil
}

func (x *txn) PutCategories(ctx context.Context, categories []core.Category) error {
	for _, c := range categories {
		_, err := x.q.ExecContext(ctx,
			`INSERT INTO categories (id, name, type, monthly_limit) VALUES (?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET name = excluded.name, type = excluded.type, monthly_limit = excluded.monthly_limit`,
			c.ID, c.Name, string(c.Type), nullLimit(c.MonthlyLimit))
		if err != nil {
			return mapErr(err, fmt.Sprintf("put category %d", c.ID))
		}
	}
	return nil
}

func (x *txn) PutTransactions(ctx context.Context, txs []core.Transaction) error {
	for _, t := range txs {
		_, err := x.q.ExecContext(ctx,
			`INSERT INTO transactions (id, date, account_id, category_id, amount, description, transfer_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (id) DO UPDATE SET date = excluded.date, account_id = excluded.account_id,
			   category_id = excluded.category_id, amount = excluded.amount,
			   description = excluded.description, transfer_id = excluded.transfer_id`,
			t.ID, formatDate(t.Date), t.AccountID, t.CategoryID, int64(t.Amount), t.Description, nullString(t.TransferID))
		if err != nil {
			return mapErr(err, fmt.Sprintf("put transaction %d", t.ID))
		}
	}
	return nil
}

func (x *txn) Clear(ctx context.Context) error {
	for _, table := range []string{"transactions", "categories", "accounts"} {
		if _, err := x.q.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

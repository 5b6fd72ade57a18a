package core

import "time"

// ledgerFixture builds snapshots with auto-assigned ids in insertion order.
type ledgerFixture struct {
	snap Snapshot
}

func (f *ledgerFixture) account(name string, initial Money) int64 {
	id := int64(len(f.snap.Accounts) + 1)
	f.snap.Accounts = append(f.snap.Accounts, Account{ID: id, Name: name, InitialBalance: initial})
	return id
}

func (f *ledgerFixture) category(name string, typ CategoryType, limit *Money) int64 {
	id := int64(len(f.snap.Categories) + 1)
	f.snap.Categories = append(f.snap.Categories, Category{ID: id, Name: name, Type: typ, MonthlyLimit: limit})
	return id
}

func (f *ledgerFixture) tx(date time.Time, account, category int64, amount Money) int64 {
	id := int64(len(f.snap.Transactions) + 1)
	f.snap.Transactions = append(f.snap.Transactions, Transaction{
		ID:         id,
		Date:       date,
		AccountID:  account,
		CategoryID: category,
		Amount:     amount,
	})
	return id
}

func (f *ledgerFixture) transfer(date time.Time, transferID string, from, to, category int64, amount Money) {
	req := TransferRequest{Amount: amount, FromAccount: from, ToAccount: to, Date: date}
	src, dst := req.Legs(category, transferID, "from", "to")
	for _, leg := range []Transaction{src, dst} {
		leg.ID = int64(len(f.snap.Transactions) + 1)
		f.snap.Transactions = append(f.snap.Transactions, leg)
	}
}

func (f *ledgerFixture) ledger() *Ledger {
	return NewLedger(f.snap)
}

func money(m Money) *Money { return &m }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 10, 0, 0, 0, time.UTC)
}

// refNow is a Saturday; its ISO week starts on Monday 2025-03-10.
var refNow = time.Date(2025, time.March, 15, 18, 0, 0, 0, time.UTC)

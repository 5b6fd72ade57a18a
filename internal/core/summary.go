package core

// Summary is the all-time overview.
type Summary struct {
	TotalBalance  Money `json:"totalBalance"`
	TotalIncome   Money `json:"totalIncome"`
	TotalExpenses Money `json:"totalExpenses"`
}

// Summarize totals the whole ledger. Income sums signed amounts of income
// rows so refunds recorded against an income category reduce it; expenses
// sum magnitudes. Transfers and unresolved categories only move the balance.
func Summarize(l *Ledger) Summary {
	var s Summary
	for _, a := range l.Accounts() {
		s.TotalBalance += a.InitialBalance
	}
	for _, t := range l.Transactions() {
		s.TotalBalance += t.Amount
		if t.IsTransfer {
			continue
		}
		cat, ok := t.Category.Get()
		if !ok {
			continue
		}
		switch cat.Type {
		case Income:
			s.TotalIncome += t.Amount
		case Expense:
			s.TotalExpenses += t.Amount.Abs()
		}
	}
	return s
}

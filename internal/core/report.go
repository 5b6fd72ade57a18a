package core

import "time"

// MonthlyReport is the statistics page for one calendar month.
type MonthlyReport struct {
	Month             Interval         `json:"month"`
	TotalIncome       Money            `json:"totalIncome"`
	TotalExpenses     Money            `json:"totalExpenses"`
	NetSavings        Money            `json:"netSavings"`
	SavingsRate       float64          `json:"savingsRate"`
	ExpenseCategories []CategoryAmount `json:"expenseCategories"`
	IncomeCategories  []CategoryAmount `json:"incomeCategories"`
	Daily             []DailyPoint     `json:"daily"`
	Budgets           []BudgetStatus   `json:"budgets"`
	TransactionCount  int              `json:"transactionCount"`
}

// BuildMonthlyReport computes the report for the month containing at.
// Income and expense totals exclude transfers; TransactionCount does not.
// Daily points carry no running balance.
func BuildMonthlyReport(l *Ledger, at time.Time) MonthlyReport {
	month := MonthOf(at)
	r := MonthlyReport{Month: month}

	for _, t := range l.Transactions() {
		if !month.Contains(t.Date) {
			continue
		}
		r.TransactionCount++
		if t.IsTransfer {
			continue
		}
		if t.IsIncome {
			r.TotalIncome += t.Amount.Abs()
		} else {
			r.TotalExpenses += t.Amount.Abs()
		}
	}
	r.NetSavings = r.TotalIncome - r.TotalExpenses
	if r.TotalIncome > 0 {
		r.SavingsRate = float64(r.NetSavings) / float64(r.TotalIncome) * 100
	}

	b := CategoryBreakdown(l, month)
	r.ExpenseCategories = Ranked(b.Expenses)
	r.IncomeCategories = Ranked(b.Income)
	r.Daily = dailyFlows(l.Transactions(), month.Days(), at.Location())
	r.Budgets = Budgets(l, month)
	return r
}

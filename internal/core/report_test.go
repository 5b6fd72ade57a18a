package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMonthlyReport(t *testing.T) {
	f, ids := metricsFixture()
	f.transfer(day(2025, 3, 12), "tr-1", ids["bank"], ids["cash"], ids["transfer"], 20000)
	r := BuildMonthlyReport(f.ledger(), refNow)

	assert.Equal(t, Money(150000), r.TotalIncome)
	assert.Equal(t, Money(7500), r.TotalExpenses)
	assert.Equal(t, Money(142500), r.NetSavings)
	assert.InDelta(t, 95.0, r.SavingsRate, 1e-9)
	assert.Equal(t, 5, r.TransactionCount)
	assert.Equal(t, []CategoryAmount{{"Food", 7500}}, r.ExpenseCategories)
	assert.Equal(t, []CategoryAmount{{"Salary", 150000}}, r.IncomeCategories)
	require.Len(t, r.Daily, 31)
	assert.Equal(t, "2025-03-01", r.Daily[0].Key)
	assert.Equal(t, Money(6000), r.Daily[10].Expenses)
	require.Len(t, r.Budgets, 1)
}

func TestMonthlyReportWithoutIncome(t *testing.T) {
	var f ledgerFixture
	acc := f.account("Cash", 0)
	food := f.category("Food", Expense, nil)
	f.tx(day(2025, 3, 1), acc, food, -100)

	r := BuildMonthlyReport(f.ledger(), refNow)
	assert.Equal(t, Money(-100), r.NetSavings)
	assert.Equal(t, 0.0, r.SavingsRate)
}

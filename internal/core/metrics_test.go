package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariance(t *testing.T) {
	tests := []struct {
		cur, prev, want float64
	}{
		{0, 0, 0},
		{100, 0, 100},
		{0, 100, -100},
		{150, 100, 50},
		{50, 200, -75},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, Variance(tt.cur, tt.prev), 1e-9, "variance(%v, %v)", tt.cur, tt.prev)
	}
}

func metricsFixture() (*ledgerFixture, map[string]int64) {
	f := &ledgerFixture{}
	ids := map[string]int64{}
	ids["cash"] = f.account("Cash", 10000)
	ids["bank"] = f.account("Bank", 50000)
	ids["food"] = f.category("Food", Expense, money(20000))
	ids["salary"] = f.category("Salary", Income, nil)
	ids["transfer"] = f.category(TransferCategoryName, Expense, nil)

	f.tx(day(2025, 2, 3), ids["bank"], ids["salary"], 100000)
	f.tx(day(2025, 2, 4), ids["cash"], ids["food"], -4000)
	f.tx(day(2025, 3, 3), ids["bank"], ids["salary"], 150000)
	f.tx(day(2025, 3, 11), ids["cash"], ids["food"], -6000)
	f.tx(refNow, ids["cash"], ids["food"], -1500)
	return f, ids
}

func TestBalanceConservation(t *testing.T) {
	f, ids := metricsFixture()
	f.transfer(day(2025, 3, 12), "tr-1", ids["bank"], ids["cash"], ids["transfer"], 20000)
	f.tx(day(2025, 1, 2), ids["cash"], 99, -700) // category since deleted
	f.tx(day(2025, 1, 2), 77, ids["food"], -300) // account since deleted
	l := f.ledger()

	var want Money
	for _, a := range f.snap.Accounts {
		want += a.InitialBalance
	}
	for _, tx := range f.snap.Transactions {
		want += tx.Amount
	}

	b := ComputeBalances(l.Accounts(), l.Transactions())
	assert.Equal(t, want, b.Total)

	var perAccount Money
	for _, v := range b.PerAccount {
		perAccount += v
	}
	assert.Equal(t, b.Total, perAccount)
	assert.Equal(t, Money(-300), b.PerAccount[77])
}

func TestTransferNeutrality(t *testing.T) {
	f, ids := metricsFixture()
	before := f.ledger()

	f.transfer(day(2025, 3, 12), "tr-1", ids["bank"], ids["cash"], ids["transfer"], 20000)
	after := f.ledger()

	statsBefore := GlobalStats(before.Transactions(), refNow)
	statsAfter := GlobalStats(after.Transactions(), refNow)
	assert.Equal(t, statsBefore, statsAfter)

	balBefore := ComputeBalances(before.Accounts(), before.Transactions())
	balAfter := ComputeBalances(after.Accounts(), after.Transactions())
	assert.Equal(t, balBefore.Total, balAfter.Total)
	assert.Equal(t, Money(-20000), balAfter.PerAccount[ids["bank"]]-balBefore.PerAccount[ids["bank"]])
	assert.Equal(t, Money(20000), balAfter.PerAccount[ids["cash"]]-balBefore.PerAccount[ids["cash"]])
}

func TestAccountViewCountsTransfers(t *testing.T) {
	f, ids := metricsFixture()
	f.transfer(day(2025, 3, 12), "tr-1", ids["bank"], ids["cash"], ids["transfer"], 20000)
	l := f.ledger()

	cash, ok := l.Account(ids["cash"]).Get()
	require.True(t, ok)
	m := AccountView(cash, l.Transactions(), refNow)
	assert.Equal(t, Money(20000), m.Income)
	assert.Equal(t, Money(7500), m.Expenses)
	assert.Equal(t, Money(10000-4000-6000-1500+20000), m.Balance)
	assert.InDelta(t, 100.0, m.Comparison.IncomeVar, 1e-9)
	assert.InDelta(t, 87.5, m.Comparison.ExpenseVar, 1e-9)

	bank, _ := l.Account(ids["bank"]).Get()
	mb := AccountView(bank, l.Transactions(), refNow)
	assert.Equal(t, Money(150000), mb.Income)
	assert.Equal(t, Money(20000), mb.Expenses)

	global := GlobalStats(l.Transactions(), refNow)
	assert.Equal(t, Money(150000), global.CurrentMonth.Income)
	assert.Equal(t, Money(7500), global.CurrentMonth.Expenses)
}

func TestGlobalStatsBuckets(t *testing.T) {
	f, _ := metricsFixture()
	s := GlobalStats(f.ledger().Transactions(), refNow)

	assert.Equal(t, Flow{Income: 150000, Expenses: 7500}, s.CurrentMonth)
	assert.Equal(t, Flow{Income: 100000, Expenses: 4000}, s.PreviousMonth)
	assert.Equal(t, Flow{Expenses: 1500}, s.Today)
	assert.Equal(t, Flow{Expenses: 7500}, s.Week)
	assert.Equal(t, Money(150000-7500), s.CurrentMonth.Net())
}

func TestDailySeriesEndsAtTotal(t *testing.T) {
	f, ids := metricsFixture()
	f.transfer(day(2025, 3, 12), "tr-1", ids["bank"], ids["cash"], ids["transfer"], 20000)
	l := f.ledger()
	total := ComputeBalances(l.Accounts(), l.Transactions()).Total

	series := DailySeries(l.Transactions(), total, refNow, TrendDays)
	require.Len(t, series, TrendDays)
	assert.Equal(t, "2025-02-14", series[0].Key)
	assert.Equal(t, "2025-03-15", series[TrendDays-1].Key)
	assert.Equal(t, total, series[TrendDays-1].Balance)

	// Feb 14 predates every in-window flow, so its balance is the total
	// minus everything that happened inside the window.
	windowNet := Money(150000 - 6000 - 1500)
	assert.Equal(t, total-windowNet, series[0].Balance)

	byKey := map[string]DailyPoint{}
	for _, p := range series {
		byKey[p.Key] = p
	}
	assert.Equal(t, Money(150000), byKey["2025-03-03"].Income)
	assert.Equal(t, Money(0), byKey["2025-03-12"].Income+byKey["2025-03-12"].Expenses)
	assert.Equal(t, byKey["2025-03-11"].Balance, byKey["2025-03-12"].Balance)
}

func TestDailySeriesUsesReferenceLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	now := time.Date(2025, 3, 15, 1, 0, 0, 0, loc)
	var f ledgerFixture
	acc := f.account("Cash", 0)
	cat := f.category("Food", Expense, nil)
	// 23:30 UTC on the 14th is already the 15th at UTC+3.
	f.tx(time.Date(2025, 3, 14, 23, 30, 0, 0, time.UTC), acc, cat, -100)

	series := DailySeries(f.ledger().Transactions(), -100, now, 2)
	require.Len(t, series, 2)
	assert.Equal(t, Money(100), series[1].Expenses)
	assert.Equal(t, Money(0), series[0].Balance)
}

func TestDashboardEmptyState(t *testing.T) {
	d := BuildDashboard(NewLedger(Snapshot{}), refNow, 5)

	assert.Equal(t, Money(0), d.TotalBalance)
	assert.NotNil(t, d.Budgets)
	assert.Empty(t, d.Budgets)
	assert.Empty(t, d.Accounts)
	assert.Empty(t, d.Recent)
	assert.Empty(t, d.TopCategories)
	require.Len(t, d.Daily, TrendDays)
	for _, p := range d.Daily {
		assert.Equal(t, Money(0), p.Balance)
	}
}

func TestBuildDashboard(t *testing.T) {
	f, ids := metricsFixture()
	f.transfer(day(2025, 3, 12), "tr-1", ids["bank"], ids["cash"], ids["transfer"], 20000)
	d := BuildDashboard(f.ledger(), refNow, 5)

	assert.Equal(t, Money(10000+50000+100000-4000+150000-6000-1500), d.TotalBalance)
	assert.Equal(t, Money(150000), d.Global.Income)
	assert.InDelta(t, 50.0, d.Global.Comparison.IncomeVar, 1e-9)
	assert.InDelta(t, 87.5, d.Global.Comparison.ExpenseVar, 1e-9)
	assert.Len(t, d.Accounts, 2)
	assert.Len(t, d.Recent, RecentCount)
	assert.Equal(t, refNow, d.Recent[0].Date)
	assert.Equal(t, []CategoryAmount{{Name: "Food", Amount: 7500}}, d.TopCategories)
	require.Len(t, d.Budgets, 1)
	assert.InDelta(t, 37.5, d.Budgets[0].Percentage, 1e-9)
}

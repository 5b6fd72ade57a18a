package core

import "time"

// TrendDays is the length of the dashboard daily series, today included.
const TrendDays = 30

// RecentCount is the number of transactions listed on the dashboard.
const RecentCount = 5

// Flow accumulates absolute income and expense amounts.
type Flow struct {
	Income   Money `json:"income"`
	Expenses Money `json:"expenses"`
}

func (f *Flow) add(isIncome bool, amount Money) {
	if isIncome {
		f.Income += amount.Abs()
	} else {
		f.Expenses += amount.Abs()
	}
}

// Net is income minus expenses.
func (f Flow) Net() Money {
	return f.Income - f.Expenses
}

// Comparison holds month-over-month variances in percent.
type Comparison struct {
	IncomeVar  float64 `json:"incomeVar"`
	ExpenseVar float64 `json:"expenseVar"`
}

// Variance is the percentage change from previous to current. Growth from
// zero is reported as +100, and zero to zero as 0.
func Variance(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return (current - previous) / previous * 100
}

func compare(cur, prev Flow) Comparison {
	return Comparison{
		IncomeVar:  Variance(float64(cur.Income), float64(prev.Income)),
		ExpenseVar: Variance(float64(cur.Expenses), float64(prev.Expenses)),
	}
}

// MonthFlow is a current-month flow with its comparison to the month before.
type MonthFlow struct {
	Flow
	Comparison Comparison `json:"comparison"`
}

// Balances holds the system-wide and per-account balances.
type Balances struct {
	Total      Money           `json:"total"`
	PerAccount map[int64]Money `json:"perAccount"`
}

// ComputeBalances adds every transaction amount to the initial balances.
// Transfer legs cancel out in Total but move both accounts. Rows whose
// account no longer resolves still get an entry so PerAccount sums to Total.
func ComputeBalances(accounts []Account, txs []EnrichedTransaction) Balances {
	b := Balances{PerAccount: make(map[int64]Money, len(accounts))}
	for _, a := range accounts {
		b.Total += a.InitialBalance
		b.PerAccount[a.ID] += a.InitialBalance
	}
	for _, t := range txs {
		b.Total += t.Amount
		b.PerAccount[t.AccountID] += t.Amount
	}
	return b
}

// PeriodStats are the global rollups for the time buckets around now.
type PeriodStats struct {
	CurrentMonth  Flow `json:"currentMonth"`
	PreviousMonth Flow `json:"previousMonth"`
	Today         Flow `json:"today"`
	Week          Flow `json:"week"`
}

// GlobalStats buckets non-transfer transactions by period. Transfers are
// excluded so that moving money between accounts is neither income nor
// expense system-wide.
func GlobalStats(txs []EnrichedTransaction, now time.Time) PeriodStats {
	cur, prev := MonthOf(now), PreviousMonthOf(now)
	today, week := DayOf(now), WeekOf(now)

	var s PeriodStats
	for _, t := range txs {
		if t.IsTransfer {
			continue
		}
		switch {
		case cur.Contains(t.Date):
			s.CurrentMonth.add(t.IsIncome, t.Amount)
		case prev.Contains(t.Date):
			s.PreviousMonth.add(t.IsIncome, t.Amount)
		}
		if today.Contains(t.Date) {
			s.Today.add(t.IsIncome, t.Amount)
		}
		if week.Contains(t.Date) {
			s.Week.add(t.IsIncome, t.Amount)
		}
	}
	return s
}

// AccountMetrics is the per-account dashboard card.
type AccountMetrics struct {
	ID         int64      `json:"id"`
	Name       string     `json:"name"`
	Balance    Money      `json:"balance"`
	Income     Money      `json:"income"`
	Expenses   Money      `json:"expenses"`
	Comparison Comparison `json:"comparison"`
}

// AccountView computes one account's balance and month flows. Unlike the
// global stats, transfers count here: from the account's point of view the
// money really came in or went out.
func AccountView(account Account, txs []EnrichedTransaction, now time.Time) AccountMetrics {
	cur, prev := MonthOf(now), PreviousMonthOf(now)
	m := AccountMetrics{ID: account.ID, Name: account.Name, Balance: account.InitialBalance}

	var curFlow, prevFlow Flow
	for _, t := range txs {
		if t.AccountID != account.ID {
			continue
		}
		m.Balance += t.Amount
		switch {
		case cur.Contains(t.Date):
			curFlow.add(t.IsIncome, t.Amount)
		case prev.Contains(t.Date):
			prevFlow.add(t.IsIncome, t.Amount)
		}
	}
	m.Income, m.Expenses = curFlow.Income, curFlow.Expenses
	m.Comparison = compare(curFlow, prevFlow)
	return m
}

// DailyPoint is one day of a daily series. Balance is the running balance
// at the end of that day.
type DailyPoint struct {
	Date     time.Time `json:"date"`
	Key      string    `json:"key"`
	Income   Money     `json:"income"`
	Expenses Money     `json:"expenses"`
	Balance  Money     `json:"balance"`
}

// dailyFlows sums non-transfer income and expenses per calendar day of the
// given days, keyed in loc.
func dailyFlows(txs []EnrichedTransaction, days []time.Time, loc *time.Location) []DailyPoint {
	points := make([]DailyPoint, len(days))
	index := make(map[string]int, len(days))
	for i, d := range days {
		key := DayKey(d, loc)
		points[i] = DailyPoint{Date: d, Key: key}
		index[key] = i
	}
	for _, t := range txs {
		if t.IsTransfer {
			continue
		}
		i, ok := index[DayKey(t.Date, loc)]
		if !ok {
			continue
		}
		if t.IsIncome {
			points[i].Income += t.Amount.Abs()
		} else {
			points[i].Expenses += t.Amount.Abs()
		}
	}
	return points
}

// DailySeries returns the last n days up to now with a running-balance
// trend that ends at totalBalance: the window's net change is taken off the
// current balance, then each day's net is added back walking forward.
func DailySeries(txs []EnrichedTransaction, totalBalance Money, now time.Time, n int) []DailyPoint {
	if n <= 0 {
		return nil
	}
	window := Interval{Start: StartOfDay(now).AddDate(0, 0, -(n - 1)), End: EndOfDay(now)}
	points := dailyFlows(txs, window.Days(), now.Location())

	var windowNet Money
	for _, p := range points {
		windowNet += p.Income - p.Expenses
	}
	running := totalBalance - windowNet
	for i := range points {
		running += points[i].Income - points[i].Expenses
		points[i].Balance = running
	}
	return points
}

// Dashboard gathers every aggregate shown on the home screen.
type Dashboard struct {
	GeneratedAt   time.Time             `json:"generatedAt"`
	TotalBalance  Money                 `json:"totalBalance"`
	Global        MonthFlow             `json:"global"`
	Today         Flow                  `json:"today"`
	Week          Flow                  `json:"week"`
	Accounts      []AccountMetrics      `json:"accounts"`
	Recent        []EnrichedTransaction `json:"recent"`
	Daily         []DailyPoint          `json:"daily"`
	TopCategories []CategoryAmount      `json:"topCategories"`
	Budgets       []BudgetStatus        `json:"budgets"`
}

// BuildDashboard computes the dashboard for the reference instant now.
// An empty ledger yields zeros and empty lists.
func BuildDashboard(l *Ledger, now time.Time, topN int) Dashboard {
	txs := l.Transactions()
	balances := ComputeBalances(l.Accounts(), txs)
	stats := GlobalStats(txs, now)

	d := Dashboard{
		GeneratedAt:  now,
		TotalBalance: balances.Total,
		Global: MonthFlow{
			Flow:       stats.CurrentMonth,
			Comparison: compare(stats.CurrentMonth, stats.PreviousMonth),
		},
		Today:    stats.Today,
		Week:     stats.Week,
		Accounts: make([]AccountMetrics, 0, len(l.Accounts())),
		Daily:    DailySeries(txs, balances.Total, now, TrendDays),
	}
	for _, a := range l.Accounts() {
		d.Accounts = append(d.Accounts, AccountView(a, txs, now))
	}

	recent := min(RecentCount, len(txs))
	d.Recent = append([]EnrichedTransaction{}, txs[:recent]...)

	month := MonthOf(now)
	d.TopCategories = TopN(CategoryBreakdown(l, month).Expenses, topN)
	d.Budgets = Budgets(l, month)
	return d
}

package core

import (
	"math"
	"sort"
)

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// Breakdown holds per-category totals for one window. Both lists are in
// first-seen order, walking the window oldest first.
type Breakdown struct {
	Expenses []CategoryAmount `json:"expenses"`
	Income   []CategoryAmount `json:"income"`
}

// orderedSums keeps category totals in insertion order of first occurrence.
type orderedSums struct {
	index map[string]int
	items []CategoryAmount
}

func (o *orderedSums) add(name string, amount Money) {
	if o.index == nil {
		o.index = make(map[string]int)
	}
	i, ok := o.index[name]
	if !ok {
		i = len(o.items)
		o.index[name] = i
		o.items = append(o.items, CategoryAmount{Name: name})
	}
	o.items[i].Amount += amount
}

func (o *orderedSums) list() []CategoryAmount {
	if o.items == nil {
		return []CategoryAmount{}
	}
	return o.items
}

// CategoryBreakdown sums absolute amounts by category name within window,
// separately for expenses and income. Transfers are excluded, as are rows
// whose category does not resolve since they have no name to group by.
func CategoryBreakdown(l *Ledger, window Interval) Breakdown {
	var expenses, income orderedSums
	l.chronological(func(t EnrichedTransaction) {
		if t.IsTransfer || !window.Contains(t.Date) {
			return
		}
		cat, ok := t.Category.Get()
		if !ok {
			return
		}
		if t.IsIncome {
			income.add(cat.Name, t.Amount.Abs())
		} else {
			expenses.add(cat.Name, t.Amount.Abs())
		}
	})
	return Breakdown{Expenses: expenses.list(), Income: income.list()}
}

// Ranked returns a copy of items sorted by amount, largest first. Equal
// amounts keep their input order.
func Ranked(items []CategoryAmount) []CategoryAmount {
	out := append([]CategoryAmount{}, items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Amount > out[j].Amount })
	return out
}

// TopN returns the n largest items of Ranked(items). A non-positive n
// returns the full ranking.
func TopN(items []CategoryAmount, n int) []CategoryAmount {
	out := Ranked(items)
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// BudgetStatus is the utilisation of one category's monthly limit.
type BudgetStatus struct {
	CategoryID int64   `json:"categoryId"`
	Name       string  `json:"name"`
	Limit      Money   `json:"limit"`
	Spent      Money   `json:"spent"`
	Percentage float64 `json:"percentage"`
}

// Overspent reports whether spending went past the limit. Percentage is
// clamped at 100 and cannot tell.
func (b BudgetStatus) Overspent() bool {
	return b.Spent > b.Limit
}

// Budgets reports every category with a positive monthly limit, sorted by
// percentage descending and then by category id.
func Budgets(l *Ledger, window Interval) []BudgetStatus {
	spent := make(map[int64]Money)
	for _, t := range l.Transactions() {
		if t.IsTransfer || t.IsIncome || !window.Contains(t.Date) {
			continue
		}
		spent[t.CategoryID] += t.Amount.Abs()
	}

	out := []BudgetStatus{}
	for _, c := range l.Categories() {
		if !c.HasBudget() {
			continue
		}
		limit := *c.MonthlyLimit
		s := spent[c.ID]
		out = append(out, BudgetStatus{
			CategoryID: c.ID,
			Name:       c.Name,
			Limit:      limit,
			Spent:      s,
			Percentage: math.Min(float64(s)/float64(limit)*100, 100),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Percentage > out[j].Percentage })
	return out
}

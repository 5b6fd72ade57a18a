package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filterFixture() (*Ledger, map[string]int64) {
	var f ledgerFixture
	ids := map[string]int64{}
	ids["cash"] = f.account("Cash", 0)
	ids["bank"] = f.account("Bank", 0)
	ids["food"] = f.category("Food", Expense, nil)
	ids["salary"] = f.category("Salary", Income, nil)
	ids["t1"] = f.tx(day(2025, 3, 1), ids["cash"], ids["food"], -300)
	ids["t2"] = f.tx(day(2025, 3, 2), ids["bank"], ids["salary"], 1000)
	ids["t3"] = f.tx(day(2025, 3, 2), ids["cash"], ids["food"], -300)
	ids["t4"] = f.tx(day(2025, 3, 10), ids["bank"], ids["food"], -50)
	return f.ledger(), ids
}

func txIDs(list []EnrichedTransaction) []int64 {
	out := make([]int64, 0, len(list))
	for _, t := range list {
		out = append(out, t.ID)
	}
	return out
}

func TestFilterCriteria(t *testing.T) {
	l, ids := filterFixture()
	start := time.Date(2025, 3, 2, 23, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		c    Criteria
		want []int64
	}{
		{"no criteria", Criteria{}, []int64{ids["t4"], ids["t3"], ids["t2"], ids["t1"]}},
		{"account", Criteria{AccountIDs: []int64{ids["cash"]}}, []int64{ids["t3"], ids["t1"]}},
		{"category", Criteria{CategoryIDs: []int64{ids["salary"]}}, []int64{ids["t2"]}},
		{"income", Criteria{Type: FlowIncome}, []int64{ids["t2"]}},
		{"expense", Criteria{Type: FlowExpense}, []int64{ids["t4"], ids["t3"], ids["t1"]}},
		{"whole-day range", Criteria{DateRange: DateRange{Start: &start, End: &end}}, []int64{ids["t3"], ids["t2"]}},
		{"open start", Criteria{DateRange: DateRange{End: &end}}, []int64{ids["t3"], ids["t2"], ids["t1"]}},
		{"amount on magnitude", Criteria{AmountRange: AmountRange{Min: money(100), Max: money(300)}}, []int64{ids["t3"], ids["t1"]}},
		{"combined", Criteria{AccountIDs: []int64{ids["bank"]}, Type: FlowExpense}, []int64{ids["t4"]}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, txIDs(Filter(l.Transactions(), tt.c)))
		})
	}
}

func TestFilterSortIsStable(t *testing.T) {
	l, ids := filterFixture()

	byAmount := Filter(l.Transactions(), Criteria{SortBy: SortAmountDesc})
	// t3 and t1 tie on 300 and keep their date-desc input order.
	assert.Equal(t, []int64{ids["t2"], ids["t3"], ids["t1"], ids["t4"]}, txIDs(byAmount))

	asc := Filter(l.Transactions(), Criteria{SortBy: SortAmountAsc})
	assert.Equal(t, []int64{ids["t4"], ids["t3"], ids["t1"], ids["t2"]}, txIDs(asc))

	// t2 and t3 share a timestamp.
	dateAsc := Filter(l.Transactions(), Criteria{SortBy: SortDateAsc})
	assert.Equal(t, []int64{ids["t1"], ids["t3"], ids["t2"], ids["t4"]}, txIDs(dateAsc))
}

func TestFilterIdempotent(t *testing.T) {
	l, ids := filterFixture()
	criteria := []Criteria{
		{},
		{Type: FlowExpense, SortBy: SortAmountAsc},
		{AccountIDs: []int64{ids["cash"]}, AmountRange: AmountRange{Min: money(1)}, SortBy: SortDateAsc},
	}
	for _, c := range criteria {
		once := Filter(l.Transactions(), c)
		twice := Filter(once, c)
		assert.Equal(t, txIDs(once), txIDs(twice))
	}
}

func TestFilterLeavesInputUntouched(t *testing.T) {
	l, _ := filterFixture()
	before := txIDs(l.Transactions())
	Filter(l.Transactions(), Criteria{SortBy: SortAmountAsc})
	assert.Equal(t, before, txIDs(l.Transactions()))
}

func TestActiveCount(t *testing.T) {
	start := refNow
	assert.Equal(t, 0, Criteria{SortBy: SortAmountAsc}.ActiveCount())
	c := Criteria{
		AccountIDs:  []int64{1, 2},
		CategoryIDs: []int64{3},
		Type:        FlowIncome,
		DateRange:   DateRange{Start: &start},
		AmountRange: AmountRange{Max: money(10)},
	}
	assert.Equal(t, 6, c.ActiveCount())
}

func TestParseSortOrder(t *testing.T) {
	o, err := ParseSortOrder("")
	require.NoError(t, err)
	assert.Equal(t, SortDateDesc, o)

	o, err = ParseSortOrder("amount-asc")
	require.NoError(t, err)
	assert.Equal(t, SortAmountAsc, o)

	_, err = ParseSortOrder("name")
	assert.Error(t, err)

	_, err = ParseFlowType("transfer")
	assert.Error(t, err)
}

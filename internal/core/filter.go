package core

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

// FlowType selects income or expense rows; the zero value disables the filter.
type FlowType string

const (
	FlowAll     FlowType = ""
	FlowIncome  FlowType = "income"
	FlowExpense FlowType = "expense"
)

// SortOrder selects the ordering of a filtered list.
type SortOrder string

const (
	SortDateDesc   SortOrder = "date-desc"
	SortDateAsc    SortOrder = "date-asc"
	SortAmountDesc SortOrder = "amount-desc"
	SortAmountAsc  SortOrder = "amount-asc"
)

// ParseSortOrder validates s; an empty string yields the default date-desc.
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case "":
		return SortDateDesc, nil
	case SortDateDesc, SortDateAsc, SortAmountDesc, SortAmountAsc:
		return o, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", s)
	}
}

// ParseFlowType validates s; an empty string disables the flow filter.
func ParseFlowType(s string) (FlowType, error) {
	switch f := FlowType(s); f {
	case FlowAll, FlowIncome, FlowExpense:
		return f, nil
	default:
		return "", fmt.Errorf("unknown flow type %q", s)
	}
}

// DateRange bounds are compared at day granularity; nil means unbounded.
type DateRange struct {
	Start *time.Time `json:"start,omitempty"`
	End   *time.Time `json:"end,omitempty"`
}

// AmountRange bounds apply to the absolute amount; nil means 0 / no maximum.
type AmountRange struct {
	Min *Money `json:"min,omitempty"`
	Max *Money `json:"max,omitempty"`
}

// Criteria is a list filter. All fields are optional and AND-combined.
type Criteria struct {
	AccountIDs  []int64     `json:"accountIds,omitempty"`
	CategoryIDs []int64     `json:"categoryIds,omitempty"`
	Type        FlowType    `json:"type,omitempty"`
	DateRange   DateRange   `json:"dateRange"`
	AmountRange AmountRange `json:"amountRange"`
	SortBy      SortOrder   `json:"sortBy,omitempty"`
}

// ActiveCount is the number of active filter facets, each selected account
// and category counting once.
func (c Criteria) ActiveCount() int {
	n := len(c.AccountIDs) + len(c.CategoryIDs)
	if c.Type != FlowAll {
		n++
	}
	if c.DateRange.Start != nil || c.DateRange.End != nil {
		n++
	}
	if c.AmountRange.Min != nil || c.AmountRange.Max != nil {
		n++
	}
	return n
}

func (c Criteria) matches(t EnrichedTransaction) bool {
	if len(c.AccountIDs) > 0 && !slices.Contains(c.AccountIDs, t.AccountID) {
		return false
	}
	if len(c.CategoryIDs) > 0 && !slices.Contains(c.CategoryIDs, t.CategoryID) {
		return false
	}
	switch c.Type {
	case FlowIncome:
		if !t.IsIncome {
			return false
		}
	case FlowExpense:
		if t.IsIncome {
			return false
		}
	}
	if c.DateRange.Start != nil && t.Date.Before(StartOfDay(*c.DateRange.Start)) {
		return false
	}
	if c.DateRange.End != nil && t.Date.After(EndOfDay(*c.DateRange.End)) {
		return false
	}
	abs := t.Amount.Abs()
	if c.AmountRange.Min != nil && abs < *c.AmountRange.Min {
		return false
	}
	if c.AmountRange.Max != nil && abs > *c.AmountRange.Max {
		return false
	}
	return true
}

// Filter returns the transactions matching c in the order c.SortBy asks for.
// The input is left untouched and equal sort keys keep their input order.
func Filter(list []EnrichedTransaction, c Criteria) []EnrichedTransaction {
	out := make([]EnrichedTransaction, 0, len(list))
	for _, t := range list {
		if c.matches(t) {
			out = append(out, t)
		}
	}

	var less func(a, b EnrichedTransaction) bool
	switch c.SortBy {
	case SortDateDesc, "":
		less = func(a, b EnrichedTransaction) bool { return a.Date.After(b.Date) }
	case SortDateAsc:
		less = func(a, b EnrichedTransaction) bool { return a.Date.Before(b.Date) }
	case SortAmountDesc:
		less = func(a, b EnrichedTransaction) bool { return a.Amount.Abs() > b.Amount.Abs() }
	case SortAmountAsc:
		less = func(a, b EnrichedTransaction) bool { return a.Amount.Abs() < b.Amount.Abs() }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

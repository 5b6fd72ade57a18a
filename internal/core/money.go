// Package core provides money parsing and handling utilities.
//
// Amounts are stored as integers in the currency's smallest unit so that
// balances are exact sums. Parsing goes through shopspring/decimal.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a signed amount in the currency's smallest unit.
type Money int64

// Abs returns the magnitude of m.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}
	return m
}

// Decimal returns m scaled back to major units using the given number of
// fractional digits (0 for XOF, 2 for EUR).
func (m Money) Decimal(places int32) decimal.Decimal {
	return decimal.New(int64(m), -places)
}

// StringFixed renders m with the given fractional digits, e.g. "-12.50".
func (m Money) StringFixed(places int32) string {
	return m.Decimal(places).StringFixed(places)
}

// ParseAmount converts a decimal string to minor units with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs are
// rejected: direction is carried by the caller (expense, income, transfer leg).
// Returns ErrInvalidAmount for malformed input, zero or negative values.
//
// Examples (places=2):
//
//	ParseAmount("12.34", 2) -> 1234, nil
//	ParseAmount("12,345", 2) -> 1235, nil
//	ParseAmount("1500", 0) -> 1500, nil
func ParseAmount(s string, places int32) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	minor := d.Shift(places).Round(0)
	if !minor.IsPositive() {
		return 0, ErrInvalidAmount
	}
	if !minor.BigInt().IsInt64() {
		return 0, ErrInvalidAmount
	}
	return Money(minor.IntPart()), nil
}

// ParseBalance is ParseAmount for values that may be zero or negative, such
// as an initial balance or a limit. An empty string is zero.
func ParseBalance(s string, places int32) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	if d.Shift(places).Round(0).IsZero() {
		return 0, nil
	}
	m, err := ParseAmount(s, places)
	if err != nil {
		return 0, err
	}
	if neg {
		m = -m
	}
	return m, nil
}

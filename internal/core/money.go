// Package core provides the domain types shared by every layer.
//
// This file contains amount parsing and formatting on top of
// shopspring/decimal so that aggregates never accumulate float error.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AmountPlaces is the number of decimals shown and accepted from forms.
const AmountPlaces = 2

// ParseAmount converts a user-entered amount into a decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up to two places. Negative values are rejected; zero is allowed.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("-1")     -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(AmountPlaces), nil
}

// FormatAmount renders d with exactly two decimals.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountPlaces)
}

// SumAmounts adds the amounts of every expense.
func SumAmounts(rows []Expense) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	return total
}

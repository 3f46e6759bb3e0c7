package core

import "github.com/shopspring/decimal"

// CategoryTotal is the sum of amounts for one category.
type CategoryTotal struct {
	Category Category
	Total    decimal.Decimal
}

// MonthTotal is the sum of amounts for one YYYY-MM bucket.
type MonthTotal struct {
	Month string
	Total decimal.Decimal
}

// Summary is the aggregate view of a caller's visible expenses.
type Summary struct {
	Count      int
	Total      decimal.Decimal
	ByCategory []CategoryTotal
	ByMonth    []MonthTotal
}

// Empty reports whether there is nothing to show.
func (s Summary) Empty() bool { return s.Count == 0 }

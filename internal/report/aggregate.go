// Package report turns expense rows into aggregates, spreadsheets, PDF
// documents and chart images.
package report

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"expensedash/internal/core"
)

// ErrNoData is returned by renderers given nothing to draw.
var ErrNoData = errors.New("no expenses to report")

// ByCategory sums amounts per category, largest total first. Only categories
// present in rows appear. Empty input yields nil.
func ByCategory(rows []core.Expense) []core.CategoryTotal {
	if len(rows) == 0 {
		return nil
	}
	sums := map[core.Category]decimal.Decimal{}
	for _, r := range rows {
		sums[r.Category] = sums[r.Category].Add(r.Amount)
	}
	out := make([]core.CategoryTotal, 0, len(sums))
	for c, total := range sums {
		out = append(out, core.CategoryTotal{Category: c, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		ri, rj := categoryRank(out[i].Category), categoryRank(out[j].Category)
		if ri != rj {
			return ri < rj
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// ByMonth sums amounts per YYYY-MM bucket in chronological order. Empty
// input yields nil.
func ByMonth(rows []core.Expense) []core.MonthTotal {
	if len(rows) == 0 {
		return nil
	}
	sums := map[string]decimal.Decimal{}
	for _, r := range rows {
		k := r.Date.MonthKey()
		sums[k] = sums[k].Add(r.Amount)
	}
	out := make([]core.MonthTotal, 0, len(sums))
	for m, total := range sums {
		out = append(out, core.MonthTotal{Month: m, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// Summarize computes every aggregate in one pass over rows.
func Summarize(rows []core.Expense) core.Summary {
	return core.Summary{
		Count:      len(rows),
		Total:      core.SumAmounts(rows),
		ByCategory: ByCategory(rows),
		ByMonth:    ByMonth(rows),
	}
}

// Title is the report heading for a caller.
func Title(username string, isAdmin bool) string {
	if isAdmin {
		return "Full Company Expense Report"
	}
	return "Expense Report for " + username
}

// SpreadsheetName and DocumentName are the download file names.
func SpreadsheetName(username string) string { return "expenses_" + username + ".xlsx" }
func DocumentName(username string) string    { return "report_" + username + ".pdf" }

func categoryRank(c core.Category) int {
	for i, known := range core.Categories {
		if c == known {
			return i
		}
	}
	return len(core.Categories)
}

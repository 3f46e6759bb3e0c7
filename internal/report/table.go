package report

import (
	"strconv"

	"expensedash/internal/core"
)

// Columns returns the export header. The owner column is included for
// admin exports only.
func Columns(withOwner bool) []string {
	if withOwner {
		return []string{"id", "username", "expense_date", "category", "amount", "description"}
	}
	return []string{"id", "expense_date", "category", "amount", "description"}
}

// Row renders e as text in Columns order.
func Row(e core.Expense, withOwner bool) []string {
	out := []string{strconv.FormatInt(e.ID, 10)}
	if withOwner {
		out = append(out, e.Username)
	}
	return append(out, e.Date.String(), string(e.Category), core.FormatAmount(e.Amount), e.Description)
}

// Rows renders every expense with Row.
func Rows(rows []core.Expense, withOwner bool) [][]string {
	out := make([][]string, len(rows))
	for i, e := range rows {
		out[i] = Row(e, withOwner)
	}
	return out
}

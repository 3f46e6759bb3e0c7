package report

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"expensedash/internal/core"
)

func expense(id int64, user string, date core.Date, cat core.Category, amount, desc string) core.Expense {
	return core.Expense{ID: id, Username: user, Date: date, Category: cat, Amount: decimal.RequireFromString(amount), Description: desc}
}

func demoRows() []core.Expense {
	return []core.Expense{
		expense(1, "demo", core.NewDate(2024, 1, 5), core.Food, "10.00", "Lunch"),
		expense(2, "demo", core.NewDate(2024, 1, 20), core.Food, "5.00", "Coffee"),
		expense(3, "demo", core.NewDate(2024, 2, 1), core.Transport, "20.00", "Train"),
	}
}

func TestDemoScenarioAggregates(t *testing.T) {
	byCat := ByCategory(demoRows())
	require.Len(t, byCat, 2)
	assert.Equal(t, core.Transport, byCat[0].Category, "largest first")
	assert.Equal(t, "20.00", core.FormatAmount(byCat[0].Total))
	assert.Equal(t, core.Food, byCat[1].Category)
	assert.Equal(t, "15.00", core.FormatAmount(byCat[1].Total))

	byMonth := ByMonth(demoRows())
	require.Len(t, byMonth, 2)
	assert.Equal(t, "2024-01", byMonth[0].Month)
	assert.Equal(t, "15.00", core.FormatAmount(byMonth[0].Total))
	assert.Equal(t, "2024-02", byMonth[1].Month)
	assert.Equal(t, "20.00", core.FormatAmount(byMonth[1].Total))
}

func TestAggregatesMatchGroupedSums(t *testing.T) {
	rows := append(demoRows(),
		expense(4, "demo", core.NewDate(2023, 12, 31), core.Bills, "0.10", ""),
		expense(5, "demo", core.NewDate(2023, 12, 1), core.Bills, "0.20", ""),
		expense(6, "demo", core.NewDate(2024, 1, 1), core.Other, "0.30", ""),
	)

	want := map[core.Category]decimal.Decimal{}
	for _, r := range rows {
		want[r.Category] = want[r.Category].Add(r.Amount)
	}
	got := ByCategory(rows)
	require.Len(t, got, len(want))
	for _, ct := range got {
		assert.True(t, want[ct.Category].Equal(ct.Total), "%s: %s", ct.Category, ct.Total)
	}
	for _, absent := range []core.Category{core.Shopping, core.Entertainment} {
		for _, ct := range got {
			assert.NotEqual(t, absent, ct.Category)
		}
	}

	months := ByMonth(rows)
	keys := make([]string, len(months))
	for i, m := range months {
		keys[i] = m.Month
	}
	assert.Equal(t, []string{"2023-12", "2024-01", "2024-02"}, keys)
	assert.Equal(t, "0.30", core.FormatAmount(months[0].Total))
}

func TestAggregatesTieBreakByCategoryOrder(t *testing.T) {
	rows := []core.Expense{
		expense(1, "u", core.NewDate(2024, 1, 1), core.Other, "5", ""),
		expense(2, "u", core.NewDate(2024, 1, 1), core.Food, "5", ""),
	}
	got := ByCategory(rows)
	assert.Equal(t, core.Food, got[0].Category)
	assert.Equal(t, core.Other, got[1].Category)
}

func TestEmptyAggregatesAreNil(t *testing.T) {
	assert.Nil(t, ByCategory(nil))
	assert.Nil(t, ByMonth([]core.Expense{}))

	s := Summarize(nil)
	assert.True(t, s.Empty())
	assert.True(t, s.Total.IsZero())
}

func TestSummarize(t *testing.T) {
	s := Summarize(demoRows())
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, "35.00", core.FormatAmount(s.Total))
	assert.Len(t, s.ByCategory, 2)
	assert.Len(t, s.ByMonth, 2)
}

func TestTitleAndNames(t *testing.T) {
	assert.Equal(t, "Full Company Expense Report", Title("admin", true))
	assert.Equal(t, "Expense Report for demo", Title("demo", false))
	assert.Equal(t, "expenses_demo.xlsx", SpreadsheetName("demo"))
	assert.Equal(t, "report_demo.pdf", DocumentName("demo"))
}

func readSheet(t *testing.T, b []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	return rows
}

func TestToSpreadsheet(t *testing.T) {
	b, err := ToSpreadsheet(demoRows(), false)
	require.NoError(t, err)

	rows := readSheet(t, b)
	require.Len(t, rows, 4)
	assert.Equal(t, Columns(false), rows[0])
	assert.Equal(t, []string{"1", "2024-01-05", "Food", "10", "Lunch"}, rows[1])
	assert.Equal(t, "Transport", rows[3][2])
}

func TestToSpreadsheetWithOwner(t *testing.T) {
	rows := demoRows()
	rows[1].Username = "alice"
	b, err := ToSpreadsheet(rows, true)
	require.NoError(t, err)

	got := readSheet(t, b)
	assert.Equal(t, Columns(true), got[0])
	assert.Equal(t, "alice", got[2][1])
}

func TestToSpreadsheetEmptyHasHeaderOnly(t *testing.T) {
	b, err := ToSpreadsheet(nil, true)
	require.NoError(t, err)

	rows := readSheet(t, b)
	require.Len(t, rows, 1)
	assert.Equal(t, Columns(true), rows[0])
}

func TestToDocument(t *testing.T) {
	b, err := renderDocument(demoRows(), Title("demo", false), false, false)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")))
	assert.Contains(t, string(b), "Expense Report for demo")
	assert.Contains(t, string(b), "expense_date")
	assert.Contains(t, string(b), "Lunch")
	assert.NotContains(t, string(b), "(username)")

	compressed, err := ToDocument(demoRows(), "t", false)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(compressed, []byte("%PDF-")))
}

func TestToDocumentEmptyHasHeaderOnly(t *testing.T) {
	b, err := renderDocument(nil, Title("admin", true), true, false)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")))
	assert.Contains(t, string(b), "Full Company Expense Report")
	assert.Contains(t, string(b), "(username)")
}

func TestToDocumentPaginates(t *testing.T) {
	var rows []core.Expense
	for i := int64(1); i <= 120; i++ {
		rows = append(rows, expense(i, "demo", core.NewDate(2024, 1, 1), core.Food, "1", "a rather long description that will be trimmed to fit inside its column"))
	}
	b, err := renderDocument(rows, "many", false, false)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, bytes.Count(b, []byte("/Type /Page\n")), 2)
	assert.GreaterOrEqual(t, bytes.Count(b, []byte("(expense_date)")), 2, "header repeats per page")
}

func TestCharts(t *testing.T) {
	png := []byte("\x89PNG")
	for _, kind := range []ChartKind{ChartPie, ChartBar, ChartLine} {
		b, err := RenderChart(kind, demoRows())
		require.NoError(t, err, kind)
		assert.True(t, bytes.HasPrefix(b, png), kind)

		_, err = RenderChart(kind, nil)
		assert.ErrorIs(t, err, ErrNoData, kind)
	}
}

func TestChartsSinglePoint(t *testing.T) {
	rows := demoRows()[:1]
	for _, kind := range []ChartKind{ChartPie, ChartBar, ChartLine} {
		_, err := RenderChart(kind, rows)
		assert.NoError(t, err, kind)
	}
}

func TestPieChartNeedsPositiveSpend(t *testing.T) {
	rows := []core.Expense{expense(1, "u", core.NewDate(2024, 1, 1), core.Food, "0", "")}
	_, err := RenderChart(ChartPie, rows)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestParseChartKind(t *testing.T) {
	k, ok := ParseChartKind("bar")
	assert.True(t, ok)
	assert.Equal(t, ChartBar, k)
	_, ok = ParseChartKind("radar")
	assert.False(t, ok)
}

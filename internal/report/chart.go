package report

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"expensedash/internal/core"
)

const (
	chartWidth  = 720
	chartHeight = 420
)

// ChartKind names one of the summary charts.
type ChartKind string

const (
	ChartPie  ChartKind = "pie"
	ChartBar  ChartKind = "bar"
	ChartLine ChartKind = "monthly"
)

// ParseChartKind validates a chart name from a URL.
func ParseChartKind(s string) (ChartKind, bool) {
	switch k := ChartKind(s); k {
	case ChartPie, ChartBar, ChartLine:
		return k, true
	}
	return "", false
}

// RenderChart draws the requested chart for rows as PNG.
func RenderChart(kind ChartKind, rows []core.Expense) ([]byte, error) {
	switch kind {
	case ChartPie:
		return PieChart(ByCategory(rows))
	case ChartBar:
		return BarChart(ByCategory(rows))
	case ChartLine:
		return MonthlyLineChart(ByMonth(rows))
	}
	return nil, fmt.Errorf("unknown chart %q", kind)
}

// PieChart shows each category's share of positive spending.
func PieChart(totals []core.CategoryTotal) ([]byte, error) {
	var sum float64
	for _, t := range totals {
		if t.Total.IsPositive() {
			sum += t.Total.InexactFloat64()
		}
	}
	if sum == 0 {
		return nil, ErrNoData
	}

	values := make([]chart.Value, 0, len(totals))
	for _, t := range totals {
		if !t.Total.IsPositive() {
			continue
		}
		v := t.Total.InexactFloat64()
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s %.1f%%", t.Category, v/sum*100),
			Value: v,
		})
	}

	pie := chart.PieChart{
		Title:  "Expenses by Category",
		Width:  chartHeight,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Values: values,
	}
	return render(pie)
}

// BarChart shows category totals largest first.
func BarChart(totals []core.CategoryTotal) ([]byte, error) {
	if len(totals) == 0 {
		return nil, ErrNoData
	}

	bars := make([]chart.Value, len(totals))
	lo, hi := 0.0, 0.0
	for i, t := range totals {
		v := t.Total.InexactFloat64()
		bars[i] = chart.Value{Label: string(t.Category), Value: v}
		lo, hi = min(lo, v), max(hi, v)
	}

	bar := chart.BarChart{
		Title:  "Spending per Category",
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		BarWidth: 60,
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: lo, Max: headroom(hi)},
		},
		Bars: bars,
	}
	return render(bar)
}

// MonthlyLineChart plots month totals in chronological order.
func MonthlyLineChart(totals []core.MonthTotal) ([]byte, error) {
	if len(totals) == 0 {
		return nil, ErrNoData
	}

	xs := make([]time.Time, 0, len(totals))
	ys := make([]float64, 0, len(totals))
	lo, hi := 0.0, 0.0
	for _, t := range totals {
		m, err := time.Parse(core.MonthLayout, t.Month)
		if err != nil {
			return nil, fmt.Errorf("parse month %q: %w", t.Month, err)
		}
		v := t.Total.InexactFloat64()
		xs = append(xs, m)
		ys = append(ys, v)
		lo, hi = min(lo, v), max(hi, v)
	}

	first, last := xs[0].AddDate(0, 0, -15), xs[len(xs)-1].AddDate(0, 0, 15)
	graph := chart.Chart{
		Title:  "Monthly Spending",
		Width:  chartWidth,
		Height: chartHeight,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20},
		},
		XAxis: chart.XAxis{
			Name:           "Month",
			ValueFormatter: chart.TimeValueFormatterWithFormat(core.MonthLayout),
			Range: &chart.ContinuousRange{
				Min: chart.TimeToFloat64(first),
				Max: chart.TimeToFloat64(last),
			},
		},
		YAxis: chart.YAxis{
			Name:  "Total",
			Range: &chart.ContinuousRange{Min: lo, Max: headroom(hi)},
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Total",
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeWidth: 2,
					DotWidth:    4,
				},
			},
		},
	}
	return render(graph)
}

type renderable interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

func render(c renderable) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// headroom leaves space above the tallest value and keeps the range non-empty.
func headroom(top float64) float64 {
	if top <= 0 {
		return 1
	}
	return top * 1.1
}

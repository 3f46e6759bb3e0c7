package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"expensedash/internal/core"
)

const (
	rowHeight   = 7.0
	titleHeight = 12.0
	cellPadding = 2.0
)

var (
	headerFill = [3]int{128, 128, 128}
	headerText = [3]int{245, 245, 245}
	bodyFill   = [3]int{245, 245, 220}
)

// columnWeights share the printable width between columns, in Columns order.
var columnWeights = map[string]float64{
	"id":           0.6,
	"username":     1.4,
	"expense_date": 1.3,
	"category":     1.4,
	"amount":       1.1,
	"description":  3.2,
}

// ToDocument renders rows as a Letter-size PDF table under title: grey
// header band, beige body, black grid. The header repeats on each page.
func ToDocument(rows []core.Expense, title string, withOwner bool) ([]byte, error) {
	return renderDocument(rows, title, withOwner, true)
}

func renderDocument(rows []core.Expense, title string, withOwner, compress bool) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetCompression(compress)
	pdf.SetTitle(title, true)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	header := Columns(withOwner)
	widths := columnWidths(pdf, header)

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, titleHeight, tr(title), "", 1, "C", false, 0, "")
	pdf.Ln(2)
	drawHeader(pdf, header, widths)

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	if bottom == 0 {
		bottom = 10
	}

	pdf.SetFont("Helvetica", "", 9)
	for _, e := range rows {
		if pdf.GetY()+rowHeight > pageHeight-bottom {
			pdf.AddPage()
			drawHeader(pdf, header, widths)
			pdf.SetFont("Helvetica", "", 9)
		}
		pdf.SetFillColor(bodyFill[0], bodyFill[1], bodyFill[2])
		pdf.SetTextColor(0, 0, 0)
		for i, text := range Row(e, withOwner) {
			pdf.CellFormat(widths[i], rowHeight, fit(pdf, tr(text), widths[i]), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(rowHeight)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func drawHeader(pdf *fpdf.Fpdf, header []string, widths []float64) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetFillColor(headerFill[0], headerFill[1], headerFill[2])
	pdf.SetTextColor(headerText[0], headerText[1], headerText[2])
	for i, h := range header {
		pdf.CellFormat(widths[i], rowHeight+1, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(rowHeight + 1)
}

func columnWidths(pdf *fpdf.Fpdf, header []string) []float64 {
	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right

	var total float64
	for _, h := range header {
		total += columnWeights[h]
	}
	widths := make([]float64, len(header))
	for i, h := range header {
		widths[i] = usable * columnWeights[h] / total
	}
	return widths
}

// fit shortens s with an ellipsis until it fits in width. s is already in
// the single-byte font encoding, so trimming by byte is safe.
func fit(pdf *fpdf.Fpdf, s string, width float64) string {
	limit := width - 2*cellPadding
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > limit {
		s = s[:len(s)-1]
	}
	return s + "..."
}

package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"expensedash/internal/core"
)

// SheetName is the single worksheet in spreadsheet exports.
const SheetName = "Expenses"

// ToSpreadsheet writes rows to an xlsx workbook. Empty input still produces
// a workbook with the header row.
func ToSpreadsheet(rows []core.Expense, withOwner bool) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := Columns(withOwner)
	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &headerRow); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return nil, fmt.Errorf("style header: %w", err)
	}

	for i, e := range rows {
		row := []any{e.ID}
		if withOwner {
			row = append(row, e.Username)
		}
		row = append(row, e.Date.String(), string(e.Category), e.Amount.InexactFloat64(), e.Description)

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"expensedash/internal/core"
	"expensedash/internal/log"
	"expensedash/internal/report"
)

// ExportFormat selects the file produced by Export.
type ExportFormat string

const (
	FormatSpreadsheet ExportFormat = "xlsx"
	FormatDocument    ExportFormat = "pdf"
)

var ErrUnknownFormat = errors.New("unknown export format")

// ParseExportFormat accepts "xlsx" and "pdf" in any case.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatSpreadsheet, FormatDocument:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Name        string
	ContentType string
	Body        []byte
}

const (
	contentTypeSpreadsheet = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeDocument    = "application/pdf"
)

// Export renders the caller's visible expenses. The admin export carries the
// owner column. No rows yields a header-only file.
func (s *ExpenseService) Export(ctx context.Context, caller core.Caller, format ExportFormat) (ExportFile, error) {
	rows, err := s.List(ctx, caller)
	if err != nil {
		return ExportFile{}, err
	}

	var f ExportFile
	switch format {
	case FormatSpreadsheet:
		f.Name = report.SpreadsheetName(caller.Username)
		f.ContentType = contentTypeSpreadsheet
		f.Body, err = report.ToSpreadsheet(rows, caller.IsAdmin)
	case FormatDocument:
		f.Name = report.DocumentName(caller.Username)
		f.ContentType = contentTypeDocument
		f.Body, err = report.ToDocument(rows, report.Title(caller.Username, caller.IsAdmin), caller.IsAdmin)
	default:
		return ExportFile{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return ExportFile{}, fmt.Errorf("render %s export: %w", format, err)
	}

	s.logger.InfoContext(ctx, "Export rendered",
		log.FieldOperation, log.OpExport,
		log.FieldUsername, caller.Username,
		log.FieldFormat, string(format),
		log.FieldRows, len(rows))
	return f, nil
}

// Chart renders one of the summary charts for the caller's expenses.
func (s *ExpenseService) Chart(ctx context.Context, caller core.Caller, kind report.ChartKind) ([]byte, error) {
	rows, err := s.List(ctx, caller)
	if err != nil {
		return nil, err
	}
	return report.RenderChart(kind, rows)
}

package backend

import (
	"context"
	"fmt"

	"expensedash/internal/log"
	"expensedash/internal/sheets"
	gsheet "expensedash/internal/sheets/google"
	"expensedash/internal/sheets/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new mirror factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{logger: logger}
}

var _ Factory = (*DefaultFactory)(nil)

// CreateMirror implements Factory.CreateMirror
func (f *DefaultFactory) CreateMirror(ctx context.Context, config Config) (sheets.Mirror, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case GoogleMirror:
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID: config.SpreadsheetID,
			SheetName:     config.SheetName,
			Logger:        f.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize Google Sheets mirror: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized Google Sheets mirror", "sheet", config.SheetName)
		return client, nil
	case MemoryMirror:
		f.logger.WarnContext(ctx, "Using in-memory mirror, sheet contents are not persisted")
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unsupported mirror backend: %s", config.Type)
	}
}

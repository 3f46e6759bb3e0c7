// Package sheets mirrors the expense table into an external spreadsheet.
package sheets

import "context"

// Mirror is an outbound spreadsheet that holds a full copy of the expenses.
type Mirror interface {
	// ReplaceAll overwrites the mirror with header followed by rows.
	ReplaceAll(ctx context.Context, header []string, rows [][]string) error
}

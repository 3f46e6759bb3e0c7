// Package backend selects the spreadsheet mirror the worker writes to.
package backend

import (
	"context"

	"expensedash/internal/sheets"
)

// MirrorType names a mirror implementation.
type MirrorType string

const (
	GoogleMirror MirrorType = "google"
	MemoryMirror MirrorType = "memory"
)

func (t MirrorType) String() string {
	return string(t)
}

// IsValid returns true if the mirror type is known.
func (t MirrorType) IsValid() bool {
	switch t {
	case GoogleMirror, MemoryMirror:
		return true
	default:
		return false
	}
}

// Config holds what is needed to build a mirror.
type Config struct {
	Type MirrorType

	// Google Sheets specific
	SpreadsheetID string
	SheetName     string
}

// Factory creates mirrors based on configuration.
type Factory interface {
	CreateMirror(ctx context.Context, config Config) (sheets.Mirror, error)
}

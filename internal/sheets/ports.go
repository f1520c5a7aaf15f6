// Package sheets publishes rendered tables to a spreadsheet.
package sheets

import (
	"context"
	"errors"
)

// Ports for outbound adapters.
type (
	// TableExporter replaces the contents of a tab with values, header row
	// first, and returns the range written.
	TableExporter interface {
		ExportTable(ctx context.Context, tab string, values [][]string) (rangeRef string, err error)
	}
)

var ErrEmptyTab = errors.New("tab name is empty")

// Package storage persists leads to a tabular row store and reads them
// back for deduplication and lead management.
package storage

import "context"

// RowStore abstracts a spreadsheet-like tabular backend. Ranges use A1
// notation scoped to a named sheet, e.g. "Leads!A1:I1". Values are
// written raw, without backend-side parsing.
type RowStore interface {
	// ReadRange returns the cell values in the given range. Missing
	// trailing cells may be absent from a row.
	ReadRange(ctx context.Context, rng string) ([][]string, error)

	// AppendRows appends rows after the last non-empty row of the range's
	// sheet.
	AppendRows(ctx context.Context, rng string, rows [][]interface{}) error

	// UpdateRange overwrites the cells in the given range.
	UpdateRange(ctx context.Context, rng string, rows [][]interface{}) error

	// ClearRange clears all values in the given range.
	ClearRange(ctx context.Context, rng string) error

	// EnsureSheet creates the named sheet if it does not exist. Reports
	// whether the sheet was created.
	EnsureSheet(ctx context.Context, name string) (bool, error)
}

// PersistResult reports the outcome of a persistence call.
type PersistResult struct {
	// Written is the number of leads appended.
	Written int

	// Skipped is the number of leads dropped as already persisted.
	Skipped int

	// Failed is the number of leads that could not be written.
	Failed int

	// Errors holds one message per failed append chunk.
	Errors []string
}

package ledger

import (
	"context"
	"errors"
)

// ErrWorksheetNotFound is returned when the spreadsheet has no worksheet for the current month.
var ErrWorksheetNotFound = errors.New("worksheet not found")

// Store opens worksheets of a single spreadsheet.
type Store interface {
	OpenSheet(ctx context.Context, name string) (Worksheet, error)
}

// Worksheet is a single tab of the ledger. Rows and columns are 1-based.
type Worksheet interface {
	// ColumnValues returns the column from the first row down to its last non-empty cell.
	ColumnValues(ctx context.Context, col int) ([]string, error)
	UpdateCell(ctx context.Context, row, col int, value any) error
}

package sheets

import (
	"fmt"
	"strings"
)

// ColumnLetter converts a 1-based column index to its A1 letters: 1 -> A, 27 -> AA.
func ColumnLetter(col int) string {
	if col < 1 {
		return ""
	}
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// ColumnRange returns the A1 range of a whole column, e.g. 'Март 2025'!G:G.
func ColumnRange(title string, col int) string {
	l := ColumnLetter(col)
	return fmt.Sprintf("%s!%s:%s", quoteTitle(title), l, l)
}

// CellRange returns the A1 range of a single cell, e.g. 'Март 2025'!G5.
func CellRange(title string, row, col int) string {
	return fmt.Sprintf("%s!%s%d", quoteTitle(title), ColumnLetter(col), row)
}

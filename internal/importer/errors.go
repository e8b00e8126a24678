package importer

import (
	"errors"
	"fmt"
)

var (
	ErrEmptySheet        = errors.New("sheet has no data rows")
	ErrUnsupportedFormat = errors.New("unsupported file format, expected .xlsx or .csv")
	ErrUnreadable        = errors.New("file could not be read")
)

// ValidationError reports a rejected column or cell. Row is the 1-based sheet
// row, or 0 for header problems.
type ValidationError struct {
	Row    int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("row %d, %s: %s", e.Row, e.Field, e.Reason)
}

package parsers

import (
	"fmt"
	"strings"
)

// FileFormatError means the file could not be decoded into rows at all:
// empty, not a recognizable delimited text file, or an unreadable
// spreadsheet. It aborts the upload before any row is produced.
type FileFormatError struct {
	Reason string
}

func (e *FileFormatError) Error() string {
	return fmt.Sprintf("unsupported file format: %s", e.Reason)
}

// ColumnNotFoundError means a mandatory column role could not be resolved
// from the header row. The whole file is rejected with no partial result.
type ColumnNotFoundError struct {
	Missing []string
}

func (e *ColumnNotFoundError) Error() string {
	return fmt.Sprintf("required columns not found in header: %s", strings.Join(e.Missing, ", "))
}

package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrShortRow marks a row with fewer cells than the layout requires.
	// The pipeline skips such rows without counting them.
	ErrShortRow = errors.New("row has too few columns")

	ErrNoDataRows         = errors.New("file contains no data rows")
	ErrUnreadableWorkbook = errors.New("file cannot be read as a spreadsheet")
	ErrForbidden          = errors.New("only admins can upload files")
)

// RowError - one row could not be turned into a transaction. Counted in
// IngestionStats.Errors, never returned from Ingest.
type RowError struct {
	Row    int
	Reason string
	Err    error
}

func (e *RowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("row %d: %s: %v", e.Row, e.Reason, e.Err)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

func (e *RowError) Unwrap() error { return e.Err }

// PersistenceError - the store failed while handling Row. Rows before it
// stay committed.
type PersistenceError struct {
	Row int
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed at row %d: %v", e.Row, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// AbortError - the run stopped before Row because of a row limit, a time
// limit or cancellation. The returned stats cover the rows before it.
type AbortError struct {
	Row    int
	Reason string
	Err    error
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("ingestion stopped at row %d: %s", e.Row, e.Reason)
}

func (e *AbortError) Unwrap() error { return e.Err }

package catalog

import (
	"errors"
	"fmt"
)

// ErrPageNotFound reports that a page-number mapping is available but does
// not contain the requested book page. Recoverable per item.
var ErrPageNotFound = errors.New("book page not found in page-number mapping")

// ErrNoMappingSource reports that no page-number mapping table is present and
// no fetch function was supplied. Distinct from ErrPageNotFound so batch
// callers can tell "this page is unmapped" from "there is nothing to look in".
var ErrNoMappingSource = errors.New("no page-number mapping available")

// ParseError reports malformed or unsupported OCR input. Parsing fails
// closed: when a ParseError is returned no blocks are.
type ParseError struct {
	Format string // "hocr", "plaintext", "djvuxml", "meta", "files", "pagenumbers"
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.Format, e.Msg, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.Format, e.Msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NewParseError builds a ParseError for the given format.
func NewParseError(format, msg string, err error) *ParseError {
	return &ParseError{Format: format, Msg: msg, Err: err}
}

// StorageError reports a persistence failure during a build or rebuild. The
// whole operation is rolled back; no partially written catalog survives.
type StorageError struct {
	Op  string // the stage that failed, e.g. "insert text_blocks"
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("catalog storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// QueryError reports a full-text query the index could not parse. Only
// reachable in raw mode; default-mode escaping cannot produce it for
// ordinary input.
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query %q: %v", e.Query, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

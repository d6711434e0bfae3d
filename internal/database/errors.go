package database

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a single-row lookup matches nothing.
var ErrNotFound = errors.New("record not found")

// ErrInvalidQuery is returned when a RangeQuery cannot be turned into SQL.
var ErrInvalidQuery = errors.New("invalid range query")

// FetchError reports a failed page of a paginated read. No rows from
// earlier pages are returned alongside it.
type FetchError struct {
	Source string
	Page   int
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s page %d: %v", e.Source, e.Page, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

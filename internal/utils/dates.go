package utils

import (
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
)

// ParseDate parses a YYYY-MM-DD request value.
func ParseDate(field, value string) (civil.Date, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return civil.Date{}, NewFieldError(field, "is required")
	}
	d, err := civil.ParseDate(value)
	if err != nil || !d.IsValid() {
		return civil.Date{}, NewFieldError(field, "must be a calendar date in YYYY-MM-DD form, got %q", value)
	}
	return d, nil
}

// ParseDateRange parses an inclusive start/end pair. The pair is returned
// unordered: an end before start is an empty range, not a parse error.
func ParseDateRange(start, end string) (civil.Date, civil.Date, error) {
	s, err := ParseDate("start_date", start)
	if err != nil {
		return civil.Date{}, civil.Date{}, err
	}
	e, err := ParseDate("end_date", end)
	if err != nil {
		return civil.Date{}, civil.Date{}, err
	}
	return s, e, nil
}

// ParsePositiveInt parses an optional positive integer, returning def when
// value is empty.
func ParsePositiveInt(field, value string, def int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, NewFieldError(field, "must be a positive integer, got %q", value)
	}
	return n, nil
}

// OptionalString returns nil for blank values.
func OptionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

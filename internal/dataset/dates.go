package dataset

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrBadDate is returned for a date cell in none of the known layouts.
var ErrBadDate = errors.New("unrecognized date format")

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"2006/01/02",
}

// ParseDate parses a transaction timestamp in any of the layouts seen in
// exports (ISO dates, ISO date-times, RFC3339 and US month/day/year).
// The result is in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q: %w", s, ErrBadDate)
}

// Dates parses every cell of a column. A missing or unparseable cell is an error.
func Dates(values []string, column string) ([]time.Time, error) {
	out := make([]time.Time, len(values))
	for i, v := range values {
		t, err := ParseDate(v)
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", column, i, err)
		}
		out[i] = t
	}
	return out, nil
}

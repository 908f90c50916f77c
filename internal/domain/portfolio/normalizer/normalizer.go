// Package normalizer cleans raw spreadsheet text: column headers, currency-formatted
// amounts and transaction dates.
package normalizer

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidDate = errors.New("invalid date format")
)

// BlankHeaderPrefix is the placeholder stem for columns whose header cell is blank.
const BlankHeaderPrefix = "blank-column-"

// NormalizeHeaders turns a raw header row into unique, non-blank column names,
// positionally aligned with the input.
//
// Headers are trimmed. A blank header at index i becomes "blank-column-<i>". The first
// occurrence of a header is kept as is; later occurrences get "_1", "_2", ... appended.
// A suffixed name that is already taken moves on to the next suffix, so the result
// never contains duplicates.
func NormalizeHeaders(raw []string) []string {
	out := make([]string, len(raw))
	used := make(map[string]bool, len(raw))

	// Placeholders are claimed first so a literal header can never take one.
	for i, h := range raw {
		if strings.TrimSpace(h) == "" {
			out[i] = fmt.Sprintf("%s%d", BlankHeaderPrefix, i)
			used[out[i]] = true
		}
	}

	next := make(map[string]int, len(raw))
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			continue
		}

		candidate := name
		seen, ok := next[name]
		if ok || used[candidate] {
			if seen < 1 {
				seen = 1
			}
			for {
				candidate = fmt.Sprintf("%s_%d", name, seen)
				seen++
				if !used[candidate] {
					break
				}
			}
		}
		next[name] = seen

		used[candidate] = true
		out[i] = candidate
	}

	return out
}

// Common date formats found in fund tabs and typed by users
var dateFormats = []string{
	// ISO (YYYY-MM-DD)
	"2006-01-02",
	"2006/01/02",
	"2006/1/2",
	"2006.01.02",

	// With time
	"2006-01-02 15:04:05",
	"2006/01/02 15:04:05",
	time.RFC3339,
}

// TradeDateLayout is how transaction dates are written to a fund tab.
const TradeDateLayout = "2006-01-02"

// ParseTradeDate parses a user-entered transaction date. Tabs are kept in year-first
// order so only year-first layouts are accepted.
func ParseTradeDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidDate
	}

	for _, format := range dateFormats {
		if t, err := time.ParseInLocation(format, raw, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, ErrInvalidDate
}

// CleanText trims a cell and collapses runs of whitespace
func CleanText(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

package normalize

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ErrFormat marks a value that could not be parsed as the expected type.
var ErrFormat = errors.New("format error")

// FormatError describes an unparsable cell value.
type FormatError struct {
	Kind  string // "balance" or "date"
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s %q: %v", e.Kind, e.Value, e.Err)
	}
	return fmt.Sprintf("invalid %s %q", e.Kind, e.Value)
}

// Is makes errors.Is(err, ErrFormat) true for every *FormatError.
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

func (e *FormatError) Unwrap() error { return e.Err }

// CleanString prepares text for a single-quoted SQL literal: missing becomes
// "", every ' is doubled, and surrounding whitespace is trimmed.
func CleanString(v string) string {
	return strings.TrimSpace(strings.ReplaceAll(v, "'", "''"))
}

// CleanBalance parses a currency amount. Missing is zero; thousands
// separators (',') are stripped before parsing.
func CleanBalance(v string) (decimal.Decimal, error) {
	s := strings.TrimSpace(v)
	if s == "" {
		return decimal.Zero, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &FormatError{Kind: "balance", Value: v, Err: err}
	}
	return d, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"02-Jan-2006",
	"02 Jan 2006",
	"20060102",
}

// ParseDate parses a transaction date. Besides the textual layouts above it
// accepts Excel serial day numbers, which is how workbook date cells arrive
// when read raw. The result is a calendar date in UTC.
func ParseDate(v string) (time.Time, error) {
	s := strings.TrimSpace(v)
	if s == "" {
		return time.Time{}, &FormatError{Kind: "date", Value: v}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), nil
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f < 2958466 {
		t, err := excelize.ExcelDateToTime(f, false)
		if err == nil {
			return truncateDay(t), nil
		}
	}
	return time.Time{}, &FormatError{Kind: "date", Value: v}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CanonicalAccountNumber strips the fractional part a numeric spreadsheet
// cell adds to an account number: "12345.0" and "12345" share one key.
func CanonicalAccountNumber(v string) string {
	s := strings.TrimSpace(v)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	return s
}

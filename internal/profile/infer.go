package profile

import (
	"strconv"
	"strings"
	"time"

	"dmlgen/internal/dataset"
	"dmlgen/internal/identifier"
	"dmlgen/internal/normalize"
)

// Inferred column types, most specific first.
const (
	TypeIdentifier = "identifier" // "<digits> - <name>"
	TypeInteger    = "integer"
	TypeDate       = "date"
	TypeDecimal    = "decimal"
	TypeText       = "text"
)

// inferTypes infers a coarse type per column from the non-empty cells of rows.
// A column with no values is text.
func inferTypes(headers []string, rows []dataset.Row) []string {
	out := make([]string, len(headers))
	for col := range headers {
		var seen bool
		allIdent, allInt, allDate, allDec := true, true, true, true

		for _, r := range rows {
			v := strings.TrimSpace(r.Cell(col))
			if v == "" {
				continue
			}
			seen = true

			if allIdent {
				if _, ok := identifier.Extract(v); !ok {
					allIdent = false
				}
			}
			if allInt {
				if _, err := strconv.ParseInt(v, 10, 64); err != nil {
					allInt = false
				}
			}
			if allDate {
				if _, _, ok := parseDateLoose(v); !ok {
					allDate = false
				}
			}
			if allDec {
				if _, err := normalize.CleanBalance(v); err != nil {
					allDec = false
				}
			}
		}

		switch {
		case !seen:
			out[col] = TypeText
		case allIdent:
			out[col] = TypeIdentifier
		case allInt:
			out[col] = TypeInteger
		case allDate:
			out[col] = TypeDate
		case allDec:
			out[col] = TypeDecimal
		default:
			out[col] = TypeText
		}
	}
	return out
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2006/01/02",
	"02-Jan-2006",
	"02 Jan 2006",
	"2006-01-02 15:04:05",
}

// parseDateLoose reports the first textual layout that parses v. Serial
// numbers are left to the integer and decimal types.
func parseDateLoose(s string) (time.Time, string, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, layout, true
		}
	}
	return time.Time{}, "", false
}

// detectColumnLayouts picks the most common layout per date column. Other
// columns get "".
func detectColumnLayouts(rows []dataset.Row, inferred []string) []string {
	out := make([]string, len(inferred))
	for i := range inferred {
		if inferred[i] != TypeDate {
			continue
		}
		counts := map[string]int{}
		for _, r := range rows {
			if _, layout, ok := parseDateLoose(strings.TrimSpace(r.Cell(i))); ok {
				counts[layout]++
			}
		}
		best, bestN := "", 0
		for _, lay := range dateLayouts {
			if counts[lay] > bestN {
				best, bestN = lay, counts[lay]
			}
		}
		out[i] = best
	}
	return out
}

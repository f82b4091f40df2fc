// Package dataset holds the in-memory tabular form every input file is read into.
//
// All cells are text. A missing cell (one of the read-time sentinels, or a
// short row) is stored as the empty string, so callers test for missing with
// v == "".
package dataset

import "strings"

// Row is one data record. Line is the 1-based physical line (or sheet row) the
// record came from, used in diagnostics and the skip log.
type Row struct {
	Line  int
	Cells []string
}

// Cell returns the value at column index i, or "" when i is out of range
// (including the -1 an unresolved column maps to).
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}

// Dataset is a named table of text rows.
type Dataset struct {
	Name    string
	Headers []string
	Rows    []Row
}

// Len returns the number of data rows.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Rows)
}

// WithHeaders returns a shallow copy of d with its header slice replaced.
// Rows are shared; datasets are treated as read-only after construction.
func (d *Dataset) WithHeaders(h []string) *Dataset {
	return &Dataset{Name: d.Name, Headers: h, Rows: d.Rows}
}

// missingSentinels are the raw cell texts treated as "no value" at read time.
var missingSentinels = map[string]struct{}{
	"":    {},
	"-":   {},
	" - ": {},
}

// IsMissing reports whether raw is one of the read-time missing sentinels.
func IsMissing(raw string) bool {
	_, ok := missingSentinels[raw]
	return ok
}

// Builder accumulates records from a reader and aligns them to the header width.
type Builder struct {
	ds *Dataset
}

// NewBuilder starts a dataset with the given header row. Header cells are kept
// verbatim apart from a leading UTF-8 BOM on the first cell.
func NewBuilder(name string, header []string) *Builder {
	h := make([]string, len(header))
	copy(h, header)
	if len(h) > 0 {
		h[0] = strings.TrimPrefix(h[0], "\uFEFF")
	}
	return &Builder{ds: &Dataset{Name: name, Headers: h}}
}

// Add appends one record. The record is copied, so callers may reuse the
// slice (csv.Reader.ReuseRecord). Short records are padded and long ones
// truncated to the header width. Blank records are dropped and reported false.
func (b *Builder) Add(line int, rec []string) bool {
	width := len(b.ds.Headers)
	cells := make([]string, width)
	blank := true
	for i := 0; i < width && i < len(rec); i++ {
		v := rec[i]
		if IsMissing(v) {
			continue
		}
		cells[i] = v
		if strings.TrimSpace(v) != "" {
			blank = false
		}
	}
	if blank {
		return false
	}
	b.ds.Rows = append(b.ds.Rows, Row{Line: line, Cells: cells})
	return true
}

// Dataset returns the accumulated dataset.
func (b *Builder) Dataset() *Dataset { return b.ds }

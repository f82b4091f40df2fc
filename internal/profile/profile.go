// Package profile inspects one input file before a run: which reader handles
// it, what its columns look like, and which logical fields resolve.
//
// Inspection is best-effort over a bounded sample of rows and never modifies
// the input.
package profile

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"dmlgen/internal/dataset"
	"dmlgen/internal/normalize"
	"dmlgen/internal/parser"
)

// DefaultSampleRows bounds type inference when Options.SampleRows is zero.
const DefaultSampleRows = 1000

// Options controls one inspection.
type Options struct {
	Name   string
	Path   string
	Reader parser.Options

	// Fields are the logical fields to resolve, normally
	// normalize.SourceFields or normalize.BaselineFields.
	Fields  []normalize.Field
	Aliases normalize.Aliases

	SampleRows int
}

// Column describes one physical column.
type Column struct {
	Index      int
	Header     string
	Normalized string
	Type       string
	Layout     string
	NonEmpty   int
	// Field is the logical field that resolved to this column, if any.
	Field string
}

// Report is the result of Inspect.
type Report struct {
	Name    string
	Path    string
	Format  string
	Rows    int
	Sampled int
	Columns []Column
	Missing []normalize.Field
}

// Inspect reads the file at opt.Path with the same reader a run would use
// and summarizes it.
func Inspect(ctx context.Context, opt Options) (*Report, error) {
	format, err := detect(opt.Path, opt.Reader.Format)
	if err != nil {
		return nil, err
	}
	ds, err := parser.ReadFile(ctx, opt.Name, opt.Path, opt.Reader, nil)
	if err != nil {
		return nil, err
	}
	ds = normalize.LowercaseHeaders(ds)

	n := opt.SampleRows
	if n <= 0 {
		n = DefaultSampleRows
	}
	sample := ds.Rows
	if len(sample) > n {
		sample = sample[:n]
	}

	rep := &Report{
		Name:    opt.Name,
		Path:    opt.Path,
		Format:  format.String(),
		Rows:    ds.Len(),
		Sampled: len(sample),
	}

	types := inferTypes(ds.Headers, sample)
	layouts := detectColumnLayouts(sample, types)
	m := normalize.Resolve(ds.Headers, opt.Fields, opt.Aliases)
	byCol := make(map[int]string, len(opt.Fields))
	for _, f := range opt.Fields {
		if i, ok := m.Column(f); ok {
			if _, taken := byCol[i]; !taken {
				byCol[i] = f.String()
			}
		}
	}

	for i, h := range ds.Headers {
		rep.Columns = append(rep.Columns, Column{
			Index:      i,
			Header:     h,
			Normalized: normalizeFieldName(h),
			Type:       types[i],
			Layout:     layouts[i],
			NonEmpty:   nonEmpty(sample, i),
			Field:      byCol[i],
		})
	}
	rep.Missing = m.Missing(opt.Fields...)
	return rep, nil
}

func detect(path, forced string) (parser.Format, error) {
	if forced != "" {
		return parser.ParseFormat(forced)
	}
	f, err := os.Open(path)
	if err != nil {
		return parser.FormatUnknown, err
	}
	defer f.Close()
	head, _ := bufio.NewReader(f).Peek(512)
	return parser.Detect(path, head)
}

func nonEmpty(rows []dataset.Row, col int) int {
	n := 0
	for _, r := range rows {
		if strings.TrimSpace(r.Cell(col)) != "" {
			n++
		}
	}
	return n
}

// Render writes a human-readable summary: a key=value preamble followed by
// one CSV-ish line per column.
func (r *Report) Render(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "input=%s path=%s format=%s rows=%d sampled=%d\n", r.Name, r.Path, r.Format, r.Rows, r.Sampled)
	fmt.Fprintf(&b, "index,header,normalized,type,layout,non_empty,field\n")
	for _, c := range r.Columns {
		fmt.Fprintf(&b, "%d,%s,%s,%s,%s,%d,%s\n", c.Index, c.Header, c.Normalized, c.Type, c.Layout, c.NonEmpty, c.Field)
	}
	for _, f := range r.Missing {
		fmt.Fprintf(&b, "missing=%s\n", f)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// normalizeFieldName converts a header into a lowercase identifier of
// [a-z0-9_], the shape a column would get in a staging table.
func normalizeFieldName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))

	lastUnderscore := false
	for _, r := range s {
		if r == ' ' || r == '-' || r == '.' || r == '/' || r == '\\' || r == ':' || r == ';' {
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
			continue
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
			lastUnderscore = r == '_'
		}
	}
	return strings.Trim(b.String(), "_")
}

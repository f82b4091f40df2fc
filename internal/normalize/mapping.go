package normalize

import (
	"strings"
	"unicode"

	"dmlgen/internal/dataset"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// LowercaseHeaders returns a copy of ds whose headers are trimmed and
// lowercased. Cell values are shared and untouched.
func LowercaseHeaders(ds *dataset.Dataset) *dataset.Dataset {
	h := make([]string, len(ds.Headers))
	for i, v := range ds.Headers {
		h[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return ds.WithHeaders(h)
}

// ResolveColumn finds name among headers. An exact match on the lowercased,
// trimmed name wins; otherwise headers are compared after folding (accents
// removed, case folded, runs of spaces, '_', '-' and '.' collapsed). The first
// matching column is returned.
func ResolveColumn(name string, headers []string) (int, bool) {
	want := strings.ToLower(strings.TrimSpace(name))
	if want == "" {
		return -1, false
	}
	for i, h := range headers {
		if strings.ToLower(strings.TrimSpace(h)) == want {
			return i, true
		}
	}
	fw := Fold(want)
	for i, h := range headers {
		if Fold(h) == fw {
			return i, true
		}
	}
	return -1, false
}

// Fold reduces a header to a comparison key: " No_Rekéning " and
// "no rekening" fold to the same key.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}
	s = cases.Fold().String(s)

	var b strings.Builder
	b.Grow(len(s))
	sep := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r) || r == '_' || r == '-' || r == '.':
			sep = b.Len() > 0
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '/':
			if sep {
				b.WriteByte(' ')
				sep = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Mapping is the resolved column index of each logical field for one dataset.
// It is built once by Resolve and only read afterwards.
type Mapping struct {
	cols   map[Field]int
	header map[Field]string
}

// Resolve maps every field in fields to a column of headers using the
// candidates from aliases. Unresolved fields are absent from the mapping.
func Resolve(headers []string, fields []Field, aliases Aliases) Mapping {
	m := Mapping{cols: make(map[Field]int, len(fields)), header: make(map[Field]string, len(fields))}
	for _, f := range fields {
		for _, cand := range aliases.Candidates(f) {
			if i, ok := ResolveColumn(cand, headers); ok {
				m.cols[f] = i
				m.header[f] = headers[i]
				break
			}
		}
	}
	return m
}

// Column returns the column index for f, or (-1, false) when f was not found.
func (m Mapping) Column(f Field) (int, bool) {
	i, ok := m.cols[f]
	if !ok {
		return -1, false
	}
	return i, true
}

// Index returns the column for f or -1. dataset.Row.Cell(-1) is "", so the
// result can be used directly for optional fields.
func (m Mapping) Index(f Field) int {
	i, _ := m.Column(f)
	return i
}

// Has reports whether every field in fs was resolved.
func (m Mapping) Has(fs ...Field) bool {
	return len(m.Missing(fs...)) == 0
}

// Missing returns the subset of fs that was not resolved, in argument order.
func (m Mapping) Missing(fs ...Field) []Field {
	var out []Field
	for _, f := range fs {
		if _, ok := m.cols[f]; !ok {
			out = append(out, f)
		}
	}
	return out
}

// Header returns the physical header matched for f.
func (m Mapping) Header(f Field) string { return m.header[f] }

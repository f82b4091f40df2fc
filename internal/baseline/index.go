// Package baseline indexes the relationship-manager roster: which manager
// identifiers are valid, which manager owns each account, and manager names.
package baseline

import (
	"strings"

	"dmlgen/internal/dataset"
	"dmlgen/internal/domain"
	"dmlgen/internal/normalize"
)

// Stats counts how roster rows contributed to the index.
type Stats struct {
	Rows           int
	Indexed        int // rows that produced an account mapping
	SkippedRows    int // rows with a missing identifier or account number
	Reassigned     int // account numbers overwritten by a later row
	DistinctIDs    int
	DistinctAccts  int
	MissingColumns []normalize.Field
}

// Index is built once per run and read-only afterwards.
type Index struct {
	ids       []string
	valid     map[string]struct{}
	names     map[string]string
	accountTo map[string]string
	stats     Stats
}

// Build indexes ds using m. Identifiers are trimmed; account numbers are
// canonicalized with normalize.CanonicalAccountNumber. When an account number
// appears more than once the last row wins.
//
// A missing identifier column yields an empty index. A missing account column
// still records identifiers and names.
func Build(ds *dataset.Dataset, m normalize.Mapping) *Index {
	idx := &Index{
		valid:     make(map[string]struct{}),
		names:     make(map[string]string),
		accountTo: make(map[string]string),
	}
	idx.stats.Rows = ds.Len()
	idx.stats.MissingColumns = m.Missing(normalize.BaselineIdentifier, normalize.BaselineName, normalize.BaselineAccount)

	idCol, ok := m.Column(normalize.BaselineIdentifier)
	if !ok {
		idx.stats.SkippedRows = ds.Len()
		return idx
	}
	nameCol := m.Index(normalize.BaselineName)
	acctCol, hasAcct := m.Column(normalize.BaselineAccount)

	for _, row := range ds.Rows {
		id := strings.TrimSpace(row.Cell(idCol))
		if id == "" {
			idx.stats.SkippedRows++
			continue
		}
		if _, seen := idx.valid[id]; !seen {
			idx.valid[id] = struct{}{}
			idx.ids = append(idx.ids, id)
		}
		if name := strings.TrimSpace(row.Cell(nameCol)); name != "" {
			if _, ok := idx.names[id]; !ok {
				idx.names[id] = name
			}
		}

		if !hasAcct {
			continue
		}
		acct := normalize.CanonicalAccountNumber(row.Cell(acctCol))
		if acct == "" {
			idx.stats.SkippedRows++
			continue
		}
		if prev, ok := idx.accountTo[acct]; ok && prev != id {
			idx.stats.Reassigned++
		}
		idx.accountTo[acct] = id
		idx.stats.Indexed++
	}

	idx.stats.DistinctIDs = len(idx.ids)
	idx.stats.DistinctAccts = len(idx.accountTo)
	return idx
}

// Valid reports whether id appears in the roster.
func (x *Index) Valid(id string) bool {
	_, ok := x.valid[id]
	return ok
}

// Identifiers returns the distinct identifiers in first-seen order.
func (x *Index) Identifiers() []string {
	return append([]string(nil), x.ids...)
}

// Lookup returns the identifier mapped to a canonical account number.
func (x *Index) Lookup(account string) (string, bool) {
	id, ok := x.accountTo[account]
	return id, ok
}

// Name returns the first non-empty name recorded for id.
func (x *Index) Name(id string) (string, bool) {
	n, ok := x.names[id]
	return n, ok
}

// Managers returns one manager per identifier in first-seen order. An
// identifier whose rows never carried a name gets an empty name.
func (x *Index) Managers() []domain.Manager {
	out := make([]domain.Manager, 0, len(x.ids))
	for _, id := range x.ids {
		out = append(out, domain.Manager{Identifier: id, Name: x.names[id]})
	}
	return out
}

// Stats returns the counters gathered while building.
func (x *Index) Stats() Stats { return x.stats }

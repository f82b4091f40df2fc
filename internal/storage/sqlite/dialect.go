// Package sqlite renders SQLite statements.
package sqlite

import (
	"strings"
	"time"

	"dmlgen/internal/storage"
)

func init() {
	storage.Register("sqlite", func() storage.Dialect { return Dialect{} })
}

// Dialect implements storage.Dialect for SQLite.
type Dialect struct{}

func (Dialect) Kind() string { return "sqlite" }

// Ident quotes every dotted part with SQLite "quoted identifiers":
// "main.clients" -> "main"."clients".
func (Dialect) Ident(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = `"` + strings.ReplaceAll(strings.TrimSpace(parts[i]), `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

func (Dialect) Literal(s string) string { return "'" + s + "'" }

func (Dialect) Now() string { return "CURRENT_TIMESTAMP" }

func (d Dialect) Date(t time.Time) string { return d.Literal(storage.ISODate(t)) }

// Insert renders INSERT, or INSERT OR IGNORE when ins.Key is set.
func (d Dialect) Insert(ins storage.Insert) string {
	var b strings.Builder
	b.WriteString("INSERT ")
	if len(ins.Key) > 0 {
		b.WriteString("OR IGNORE ")
	}
	b.WriteString("INTO ")
	b.WriteString(d.Ident(ins.Table))
	b.WriteString(" (")
	b.WriteString(storage.JoinIdents(d, ins.Columns))
	b.WriteString(") VALUES (")
	b.WriteString(strings.Join(ins.Values, ", "))
	b.WriteString(");")
	return b.String()
}

// Package mssql renders SQL Server statements.
package mssql

import (
	"strings"
	"time"

	"dmlgen/internal/storage"
)

func init() {
	storage.Register("mssql", func() storage.Dialect { return Dialect{} })
}

// Dialect implements storage.Dialect for SQL Server.
type Dialect struct{}

func (Dialect) Kind() string { return "mssql" }

// Ident bracket-quotes each dotted part: "dbo.clients" -> [dbo].[clients].
func (Dialect) Ident(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = "[" + strings.ReplaceAll(strings.TrimSpace(parts[i]), "]", "]]") + "]"
	}
	return strings.Join(parts, ".")
}

// Literal uses N'' so non-Latin names survive varchar collations.
func (Dialect) Literal(s string) string { return "N'" + s + "'" }

func (Dialect) Now() string { return "GETDATE()" }

func (Dialect) Date(t time.Time) string { return "CAST('" + storage.ISODate(t) + "' AS DATE)" }

// Insert has no INSERT IGNORE equivalent; keyed inserts become
// INSERT ... SELECT ... WHERE NOT EXISTS on the natural key.
func (d Dialect) Insert(ins storage.Insert) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.Ident(ins.Table))
	b.WriteString(" (")
	b.WriteString(storage.JoinIdents(d, ins.Columns))
	b.WriteString(") ")
	if len(ins.Key) == 0 || len(ins.Key) != len(ins.KeyValues) {
		b.WriteString("VALUES (")
		b.WriteString(strings.Join(ins.Values, ", "))
		b.WriteString(");")
		return b.String()
	}
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(ins.Values, ", "))
	b.WriteString(" WHERE NOT EXISTS (SELECT 1 FROM ")
	b.WriteString(d.Ident(ins.Table))
	b.WriteString(" WHERE ")
	for i, k := range ins.Key {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(d.Ident(k))
		b.WriteString(" = ")
		b.WriteString(ins.KeyValues[i])
	}
	b.WriteString(");")
	return b.String()
}

// Package postgres renders PostgreSQL statements.
package postgres

import (
	"strings"
	"time"

	"dmlgen/internal/storage"

	"github.com/jackc/pgx/v5"
)

func init() {
	storage.Register("postgres", func() storage.Dialect { return Dialect{} })
}

// Dialect implements storage.Dialect for PostgreSQL.
type Dialect struct{}

func (Dialect) Kind() string { return "postgres" }

// Ident quotes every dotted part: "public.clients" -> "public"."clients".
func (Dialect) Ident(name string) string {
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return pgx.Identifier(parts).Sanitize()
}

// Literal relies on standard_conforming_strings (on by default since 9.1),
// under which backslashes are ordinary characters.
func (Dialect) Literal(s string) string { return "'" + s + "'" }

func (Dialect) Now() string { return "NOW()" }

func (Dialect) Date(t time.Time) string { return "DATE '" + storage.ISODate(t) + "'" }

// Insert renders INSERT ... ON CONFLICT DO NOTHING when ins.Key is set. No
// conflict target is named, so any unique constraint on the table applies.
func (d Dialect) Insert(ins storage.Insert) string {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(d.Ident(ins.Table))
	b.WriteString(" (")
	b.WriteString(storage.JoinIdents(d, ins.Columns))
	b.WriteString(") VALUES (")
	b.WriteString(strings.Join(ins.Values, ", "))
	b.WriteString(")")
	if len(ins.Key) > 0 {
		b.WriteString(" ON CONFLICT DO NOTHING")
	}
	b.WriteString(";")
	return b.String()
}

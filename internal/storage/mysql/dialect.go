// Package mysql renders MySQL/MariaDB statements. It is the default dialect
// and produces the INSERT IGNORE scripts the migration was built around.
package mysql

import (
	"regexp"
	"strings"
	"time"

	"dmlgen/internal/storage"
)

func init() {
	storage.Register("mysql", func() storage.Dialect { return Dialect{} })
	storage.Register("mariadb", func() storage.Dialect { return Dialect{} })
}

// Dialect implements storage.Dialect for MySQL.
type Dialect struct{}

var bareIdent = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// reserved holds the reserved words a bare identifier must not collide with
// among the names this tool writes or users are likely to configure.
var reserved = map[string]struct{}{
	"add": {}, "all": {}, "and": {}, "as": {}, "by": {}, "case": {}, "check": {}, "column": {},
	"condition": {}, "create": {}, "current_date": {}, "current_time": {}, "current_timestamp": {},
	"database": {}, "default": {}, "delete": {}, "desc": {}, "drop": {}, "from": {}, "group": {},
	"index": {}, "insert": {}, "interval": {}, "key": {}, "keys": {}, "like": {}, "limit": {},
	"match": {}, "not": {}, "null": {}, "or": {}, "order": {}, "rank": {}, "range": {}, "read": {},
	"select": {}, "table": {}, "to": {}, "update": {}, "usage": {}, "use": {}, "values": {}, "where": {},
}

func (Dialect) Kind() string { return "mysql" }

// Ident leaves plain lowercase names bare, matching hand-written scripts, and
// backtick-quotes anything else. Dotted names are quoted per part.
func (d Dialect) Ident(name string) string {
	if strings.Contains(name, ".") {
		parts := strings.Split(name, ".")
		for i := range parts {
			parts[i] = d.Ident(strings.TrimSpace(parts[i]))
		}
		return strings.Join(parts, ".")
	}
	if _, r := reserved[name]; !r && bareIdent.MatchString(name) {
		return name
	}
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// Literal also escapes backslashes, which MySQL treats as an escape
// character inside string literals by default.
func (Dialect) Literal(s string) string {
	return "'" + strings.ReplaceAll(s, `\`, `\\`) + "'"
}

func (Dialect) Now() string { return "NOW()" }

func (d Dialect) Date(t time.Time) string { return d.Literal(storage.ISODate(t)) }

// Insert renders INSERT, or INSERT IGNORE when ins.Key is set.
func (d Dialect) Insert(ins storage.Insert) string {
	var b strings.Builder
	b.WriteString("INSERT ")
	if len(ins.Key) > 0 {
		b.WriteString("IGNORE ")
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

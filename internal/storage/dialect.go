// Package storage renders statements for a target SQL dialect and persists
// the finished script.
//
// Dialects register themselves from init() in their own packages, the same
// way database backends plug into a factory: import
// dmlgen/internal/storage/all to get every built-in dialect.
package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Insert describes one INSERT statement. Values are already-rendered SQL
// expressions (literals, subqueries, the current-time marker).
//
// When Key is non-empty the statement must be idempotent: a row whose Key
// columns already exist is silently ignored. Key lists the natural-key
// columns, and KeyValues their rendered values, in the same order.
type Insert struct {
	Table     string
	Columns   []string
	Values    []string
	Key       []string
	KeyValues []string
}

// Dialect renders SQL text for one database family.
type Dialect interface {
	// Kind is the registry name, e.g. "mysql".
	Kind() string

	// Ident quotes an identifier (table or column name) when needed.
	Ident(name string) string

	// Literal wraps text in a string literal. s must already have every
	// single quote doubled (normalize.CleanString); Literal only adds the
	// escaping specific to the dialect.
	Literal(s string) string

	// Now is the expression for the current timestamp.
	Now() string

	// Date renders a calendar date literal.
	Date(t time.Time) string

	// Insert renders a complete statement terminated by ';'.
	Insert(ins Insert) string
}

// Factory builds a Dialect.
type Factory func() Dialect

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a dialect available under kind.
//
// Panics:
//   - If kind is empty.
//   - If f is nil.
//   - If kind is already registered.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("storage: Register called with empty kind")
	}
	if f == nil {
		panic("storage: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("storage: dialect already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New returns the dialect registered under kind (case-insensitive).
func New(kind string) (Dialect, error) {
	k := strings.ToLower(strings.TrimSpace(kind))
	if k == "" {
		return nil, fmt.Errorf("storage: missing dialect kind")
	}

	mu.RLock()
	f := factories[k]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported dialect=%s (have %s)", kind, strings.Join(Kinds(), "|"))
	}
	return f(), nil
}

// Kinds lists registered dialects in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// JoinIdents quotes each column with d and joins them with ", ".
func JoinIdents(d Dialect, cols []string) string {
	q := make([]string, len(cols))
	for i, c := range cols {
		q[i] = d.Ident(c)
	}
	return strings.Join(q, ", ")
}

// ISODate formats t as YYYY-MM-DD.
func ISODate(t time.Time) string { return t.Format("2006-01-02") }

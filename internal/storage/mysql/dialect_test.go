package mysql

import (
	"testing"
	"time"

	"dmlgen/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdent(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"universal_bankers", "universal_bankers"},
		{"name", "name"},
		{"key", "`key`"},
		{"Account Number", "`Account Number`"},
		{"we`ird", "`we``ird`"},
		{"core.clients", "core.clients"},
		{"core.order", "core.`order`"},
	}
	for _, tc := range tests {
		if got := (Dialect{}).Ident(tc.in); got != tc.want {
			t.Fatalf("Ident(%q)=%q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLiteralEscapesBackslash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `'O''Brien'`, Dialect{}.Literal("O''Brien"))
	assert.Equal(t, `'a\\'' OR 1=1 -- '`, Dialect{}.Literal(`a\'' OR 1=1 -- `))
}

func TestInsert(t *testing.T) {
	t.Parallel()

	d := Dialect{}
	got := d.Insert(storage.Insert{
		Table:     "account_products",
		Columns:   []string{"code", "name", "created_at", "updated_at"},
		Values:    []string{d.Literal("TAB"), d.Literal("Produk TAB"), d.Now(), d.Now()},
		Key:       []string{"code"},
		KeyValues: []string{d.Literal("TAB")},
	})
	assert.Equal(t, "INSERT IGNORE INTO account_products (code, name, created_at, updated_at) VALUES ('TAB', 'Produk TAB', NOW(), NOW());", got)

	got = d.Insert(storage.Insert{Table: "t", Columns: []string{"a"}, Values: []string{"1"}})
	assert.Equal(t, "INSERT INTO t (a) VALUES (1);", got)

	assert.Equal(t, "'2025-04-30'", d.Date(time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)))
}

func TestRegistered(t *testing.T) {
	t.Parallel()

	for _, k := range []string{"mysql", "mariadb"} {
		d, err := storage.New(k)
		require.NoError(t, err)
		assert.Equal(t, "mysql", d.Kind())
	}
}

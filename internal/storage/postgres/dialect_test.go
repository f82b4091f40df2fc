package postgres

import (
	"testing"
	"time"

	"dmlgen/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialect(t *testing.T) {
	t.Parallel()

	d, err := storage.New("postgres")
	require.NoError(t, err)

	assert.Equal(t, `"clients"`, d.Ident("clients"))
	assert.Equal(t, `"core"."clients"`, d.Ident("core.clients"))
	assert.Equal(t, `"we""ird"`, d.Ident(`we"ird`))
	assert.Equal(t, `'a\b'`, d.Literal(`a\b`))
	assert.Equal(t, "DATE '2025-04-30'", d.Date(time.Date(2025, 4, 30, 0, 0, 0, 0, time.UTC)))

	got := d.Insert(storage.Insert{
		Table:   "clients",
		Columns: []string{"cif", "name"},
		Values:  []string{"'C1'", "'Budi'"},
		Key:     []string{"cif"},
	})
	assert.Equal(t, `INSERT INTO "clients" ("cif", "name") VALUES ('C1', 'Budi') ON CONFLICT DO NOTHING;`, got)

	got = d.Insert(storage.Insert{Table: "t", Columns: []string{"a"}, Values: []string{"1"}})
	assert.Equal(t, `INSERT INTO "t" ("a") VALUES (1);`, got)
}

package xlsx

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// workbook builds an in-memory xlsx with the given rows on the named sheet.
func workbook(t *testing.T, sheet string, rows [][]any) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()
	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestRead_FirstSheet(t *testing.T) {
	t.Parallel()

	buf := workbook(t, "Sheet1", [][]any{
		{"PN", "Nama", "Rekening"},
		{"123", "Alice", 500},
		{"", "", ""},
		{"456", "Bob", "501"},
	})

	ds, err := Read(context.Background(), "baseline", buf, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"PN", "Nama", "Rekening"}, ds.Headers)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, []string{"123", "Alice", "500"}, ds.Rows[0].Cells)
	assert.Equal(t, 2, ds.Rows[0].Line)
	assert.Equal(t, 4, ds.Rows[1].Line)
}

func TestRead_NamedSheetAndSkipRows(t *testing.T) {
	t.Parallel()

	buf := workbook(t, "Kelolaan", [][]any{
		{"ALL BASELINE KELOLAAN"},
		{},
		{"PN", "Nama", "Rekening"},
		{"123", "Alice", "500"},
	})

	ds, err := Read(context.Background(), "baseline", buf, Options{Sheet: "Kelolaan", SkipRows: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"PN", "Nama", "Rekening"}, ds.Headers)
	require.Equal(t, 1, ds.Len())
}

func TestRead_Errors(t *testing.T) {
	t.Parallel()

	_, err := Read(context.Background(), "x", bytes.NewReader([]byte("not a zip")), Options{})
	require.Error(t, err)

	buf := workbook(t, "Sheet1", [][]any{{"a"}, {"1"}})
	_, err = Read(context.Background(), "x", buf, Options{Sheet: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `sheet "Missing" not found`)
}

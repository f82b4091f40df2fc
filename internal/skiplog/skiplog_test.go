package skiplog

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

// Create makes missing parent directories and writes the header at once.
func TestCreate_DirAndHeader(t *testing.T) {
	t.Parallel()
	target := filepath.Join(t.TempDir(), "skipped", "rows.csv")

	l, err := Create(target)
	require.NoError(t, err)
	require.NoError(t, l.Close())

	rows := readRows(t, target)
	require.Len(t, rows, 1)
	assert.Equal(t, Header, rows[0])
}

func TestAdd_WritesRowsAndCounts(t *testing.T) {
	t.Parallel()
	target := filepath.Join(t.TempDir(), "skipped.csv")
	l, err := Create(target)
	require.NoError(t, err)

	l.Add("no_manager", 2, "", []string{"-", "1001", "C1"})
	l.Add("unknown_manager", 3, `id "999"`, []string{"999 - X", "1002"})
	l.Add("no_manager", 5, "", nil)
	require.NoError(t, l.Close())

	rows := readRows(t, target)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"no_manager", "2", "", "-,1001,C1"}, rows[1])
	assert.Equal(t, []string{"unknown_manager", "3", `id "999"`, "999 - X,1002"}, rows[2])
	assert.Equal(t, []string{"no_manager", "5", "", ""}, rows[3])

	assert.Equal(t, map[string]int{"no_manager": 2, "unknown_manager": 1}, l.Counts())
}

func TestNew_DoesNotCloseWriter(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	l, err := New(&buf)
	require.NoError(t, err)
	l.Add("row_error", 7, "boom", []string{"a"})
	require.NoError(t, l.Close())

	assert.Equal(t, "reason,line_number,detail,raw_row\nrow_error,7,boom,a\n", buf.String())
}

func TestCreate_BadPath(t *testing.T) {
	t.Parallel()
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := Create(filepath.Join(blocker, "sub", "rows.csv"))
	require.Error(t, err)
}

func TestStage_CommitAndDiscard(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	target := filepath.Join(dir, "out", "skipped.csv")

	l, err := Stage(target)
	require.NoError(t, err)
	l.Add("no_manager", 2, "", []string{"-"})
	require.NoError(t, l.Close())

	_, err = os.Stat(target)
	require.ErrorIs(t, err, os.ErrNotExist, "nothing at the final path before Commit")

	require.NoError(t, l.Commit())
	rows := readRows(t, target)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"no_manager", "2", "", "-"}, rows[1])
	l.Discard()
	_, err = os.Stat(target)
	require.NoError(t, err, "Discard after Commit keeps the file")

	other := filepath.Join(dir, "out", "other.csv")
	l, err = Stage(other)
	require.NoError(t, err)
	require.NoError(t, l.Close())
	l.Discard()
	_, err = os.Stat(other)
	require.ErrorIs(t, err, os.ErrNotExist)
	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary file removed")
}

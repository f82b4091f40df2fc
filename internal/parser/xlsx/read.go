// Package xlsx reads Office Open XML workbooks into a dataset.Dataset.
package xlsx

import (
	"context"
	"fmt"
	"io"
	"strings"

	"dmlgen/internal/dataset"

	"github.com/xuri/excelize/v2"
)

// Options selects what part of the workbook is read.
type Options struct {
	// Sheet names the worksheet to read. Empty means the first sheet.
	Sheet string
	// SkipRows drops this many sheet rows before the header row.
	SkipRows int
}

// Read loads one worksheet of the workbook in r.
//
// Cells are read with their raw stored value, not the display format, so an
// account number cell never picks up thousands separators and date cells keep
// their serial number.
func Read(ctx context.Context, name string, r io.Reader, opt Options) (*dataset.Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%s: open workbook: %w", name, err)
	}
	defer f.Close()

	sheet := strings.TrimSpace(opt.Sheet)
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, fmt.Errorf("%s: workbook has no sheets", name)
	}
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, fmt.Errorf("%s: sheet %q not found (have %v)", name, sheet, f.GetSheetList())
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%s: read sheet %q: %w", name, sheet, err)
	}

	// First non-empty row after SkipRows is the header.
	start := opt.SkipRows
	for start < len(rows) && blank(rows[start]) {
		start++
	}
	if start >= len(rows) {
		return nil, fmt.Errorf("%s: sheet %q has no header row", name, sheet)
	}

	b := dataset.NewBuilder(name, rows[start])
	for i := start + 1; i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b.Add(i+1, rows[i])
	}
	return b.Dataset(), nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

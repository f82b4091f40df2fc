// Package html reads spreadsheet exports that are really HTML tables, the
// format many core-banking systems emit under a ".xls" name.
package html

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"dmlgen/internal/dataset"

	"github.com/PuerkitoBio/goquery"
)

// Options selects the table to read.
type Options struct {
	// Selector picks the table element. Empty means the first "table".
	Selector string
	// SkipRows drops this many table rows before the header row.
	SkipRows int
}

// Read extracts one table from the document in r.
//
// The header is the first row after SkipRows. Cells spanning several columns
// (colspan) are padded with empty cells so data stays aligned with headers.
// Rows of nested tables are ignored.
func Read(ctx context.Context, name string, r io.Reader, opt Options) (*dataset.Dataset, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%s: parse html: %w", name, err)
	}

	sel := strings.TrimSpace(opt.Selector)
	if sel == "" {
		sel = "table"
	}
	tbl := doc.Find(sel).First()
	if tbl.Length() == 0 {
		return nil, fmt.Errorf("%s: no element matches %q", name, sel)
	}

	var rows [][]string
	tbl.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if !tr.Closest("table").IsSelection(tbl) {
			return
		}
		rows = append(rows, rowCells(tr))
	})

	if opt.SkipRows >= len(rows) {
		return nil, fmt.Errorf("%s: table has no header row", name)
	}

	b := dataset.NewBuilder(name, rows[opt.SkipRows])
	for i := opt.SkipRows + 1; i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b.Add(i+1, rows[i])
	}
	return b.Dataset(), nil
}

func rowCells(tr *goquery.Selection) []string {
	var out []string
	tr.ChildrenFiltered("th, td").Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.TrimSpace(c.Text()))
		if span, ok := c.Attr("colspan"); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(span)); err == nil {
				for ; n > 1; n-- {
					out = append(out, "")
				}
			}
		}
	})
	return out
}

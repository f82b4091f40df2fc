package profile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"dmlgen/internal/dataset"
	"dmlgen/internal/normalize"
	"dmlgen/internal/parser"
)

const exportCSV = `PN Relationship Officer / RM Kredit Menangah,Account Number,Short Name,Balance,Date
12345 - ANDI,1001,Budi,"1,234.50",2025-04-30
-,1002,Citra,10,30/04/2025
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

// TestInspectSourceExport verifies column types, resolved fields and the
// missing-field list for a small export.
func TestInspectSourceExport(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "export.csv", exportCSV)
	rep, err := Inspect(context.Background(), Options{
		Name:   "source",
		Path:   path,
		Fields: normalize.SourceFields,
	})
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}

	if rep.Format != "csv" || rep.Rows != 2 || rep.Sampled != 2 {
		t.Fatalf("report header = %s/%d/%d, want csv/2/2", rep.Format, rep.Rows, rep.Sampled)
	}

	want := []Column{
		{Index: 0, Header: "pn relationship officer / rm kredit menangah", Normalized: "pn_relationship_officer_rm_kredit_menangah", Type: TypeIdentifier, NonEmpty: 1, Field: "source.manager"},
		{Index: 1, Header: "account number", Normalized: "account_number", Type: TypeInteger, NonEmpty: 2, Field: "source.account_number"},
		{Index: 2, Header: "short name", Normalized: "short_name", Type: TypeText, NonEmpty: 2, Field: "source.client_name"},
		{Index: 3, Header: "balance", Normalized: "balance", Type: TypeDecimal, NonEmpty: 2, Field: "source.balance"},
		{Index: 4, Header: "date", Normalized: "date", Type: TypeDate, Layout: "2006-01-02", NonEmpty: 2, Field: "source.date"},
	}
	if !reflect.DeepEqual(rep.Columns, want) {
		t.Fatalf("columns mismatch\n got: %#v\nwant: %#v", rep.Columns, want)
	}

	wantMissing := []normalize.Field{
		normalize.SourceCIF, normalize.SourceAvailableBalance,
		normalize.SourceCurrency, normalize.SourceProduct,
	}
	if !reflect.DeepEqual(rep.Missing, wantMissing) {
		t.Fatalf("missing = %v, want %v", rep.Missing, wantMissing)
	}
}

// TestInspectAliasesAndSample verifies that aliases resolve custom headers and
// that SampleRows bounds inference but not the row count.
func TestInspectAliasesAndSample(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "roster.csv", "Kode;Pegawai\n12345;Andi\n67890;Rina\nabc;Tono\n")
	rep, err := Inspect(context.Background(), Options{
		Name:       "baseline",
		Path:       path,
		Reader:     parser.Options{Comma: ';'},
		Fields:     normalize.BaselineFields,
		Aliases:    normalize.Aliases{normalize.BaselineIdentifier: {"kode"}, normalize.BaselineName: {"pegawai"}},
		SampleRows: 2,
	})
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if rep.Rows != 3 || rep.Sampled != 2 {
		t.Fatalf("rows/sampled = %d/%d, want 3/2", rep.Rows, rep.Sampled)
	}
	if got := rep.Columns[0]; got.Field != "baseline.identifier" || got.Type != TypeInteger {
		t.Fatalf("column 0 = %+v", got)
	}
	if got := rep.Columns[1].Field; got != "baseline.name" {
		t.Fatalf("column 1 field = %q", got)
	}
	if !reflect.DeepEqual(rep.Missing, []normalize.Field{normalize.BaselineAccount}) {
		t.Fatalf("missing = %v", rep.Missing)
	}
}

func TestInspectErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	if _, err := Inspect(ctx, Options{Path: filepath.Join(t.TempDir(), "nope.csv")}); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file: err = %v, want ErrNotExist", err)
	}

	path := writeFile(t, "export.json", "{}")
	if _, err := Inspect(ctx, Options{Path: path}); !errors.Is(err, parser.ErrUnsupportedFormat) {
		t.Fatalf("json: err = %v, want ErrUnsupportedFormat", err)
	}

	if _, err := Inspect(ctx, Options{Path: path, Reader: parser.Options{Format: "parquet"}}); !errors.Is(err, parser.ErrUnsupportedFormat) {
		t.Fatalf("forced format: err = %v, want ErrUnsupportedFormat", err)
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	rep := &Report{
		Name: "source", Path: "in.csv", Format: "csv", Rows: 3, Sampled: 3,
		Columns: []Column{
			{Index: 0, Header: "account number", Normalized: "account_number", Type: TypeInteger, NonEmpty: 3, Field: "source.account_number"},
			{Index: 1, Header: "note", Normalized: "note", Type: TypeText, NonEmpty: 1},
		},
		Missing: []normalize.Field{normalize.SourceCIF},
	}

	var b strings.Builder
	if err := rep.Render(&b); err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "input=source path=in.csv format=csv rows=3 sampled=3\n" +
		"index,header,normalized,type,layout,non_empty,field\n" +
		"0,account number,account_number,integer,,3,source.account_number\n" +
		"1,note,note,text,,1,\n" +
		"missing=source.cif\n"
	if b.String() != want {
		t.Fatalf("Render =\n%s\nwant\n%s", b.String(), want)
	}
}

func TestInferTypes(t *testing.T) {
	t.Parallel()

	rows := []dataset.Row{
		{Cells: []string{"1", "1.5", "2025-01-31", "x", "", "00332299 - Rino"}},
		{Cells: []string{"2", "7", "31/01/2025", "1", "", "00332300 - Sari"}},
	}
	got := inferTypes([]string{"a", "b", "c", "d", "e", "f"}, rows)
	want := []string{TypeInteger, TypeDecimal, TypeDate, TypeText, TypeText, TypeIdentifier}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("inferTypes = %v, want %v", got, want)
	}

	layouts := detectColumnLayouts(rows, got)
	if layouts[2] != "2006-01-02" || layouts[0] != "" {
		t.Fatalf("layouts = %v", layouts)
	}
}

func TestNormalizeFieldName(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"Account Number", "account_number"},
		{"  Curr. Code  ", "curr_code"},
		{"PN Relationship Officer / RM", "pn_relationship_officer_rm"},
		{"Saldo (IDR)", "saldo_idr"},
		{"__x__", "x"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := normalizeFieldName(tt.in); got != tt.want {
			t.Errorf("normalizeFieldName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// Package parser picks a reader for an input file and returns its dataset.
//
// Format is chosen by file extension. Extensions that are commonly mislabeled
// (".xls" exports that are really HTML or XLSX) are resolved by sniffing the
// first bytes of the file.
package parser

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dmlgen/internal/dataset"
	"dmlgen/internal/parser/csv"
	"dmlgen/internal/parser/html"
	"dmlgen/internal/parser/xlsx"
)

// ErrUnsupportedFormat is returned when no reader can handle a file.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Format identifies a concrete reader.
type Format int

const (
	FormatUnknown Format = iota
	FormatCSV
	FormatXLSX
	FormatHTML
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatXLSX:
		return "xlsx"
	case FormatHTML:
		return "html"
	default:
		return "unknown"
	}
}

// Options carries the per-input reader settings. Only the fields relevant to
// the detected format are used.
type Options struct {
	Format   string // force "csv", "xlsx" or "html"; empty means detect
	Comma    rune
	Encoding string
	Sheet    string
	Table    string
	SkipRows int
}

var zipMagic = []byte("PK\x03\x04")

// Detect returns the format for path, using head (the first bytes of the
// file) for ambiguous extensions.
func Detect(path string, head []byte) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv", ".txt", ".tsv":
		return FormatCSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".xls", ".htm", ".html":
		return sniff(ext, head)
	default:
		return FormatUnknown, fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
	}
}

func sniff(ext string, head []byte) (Format, error) {
	if bytes.HasPrefix(head, zipMagic) {
		return FormatXLSX, nil
	}
	trim := bytes.TrimSpace(bytes.TrimPrefix(head, []byte("\xef\xbb\xbf")))
	if len(trim) > 0 && trim[0] == '<' {
		return FormatHTML, nil
	}
	if ext == ".xls" {
		return FormatUnknown, fmt.Errorf("%w: legacy binary .xls workbook; re-save as .xlsx or .csv", ErrUnsupportedFormat)
	}
	return FormatUnknown, fmt.Errorf("%w: %s file without markup", ErrUnsupportedFormat, ext)
}

// ParseFormat maps a configured format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	case "html":
		return FormatHTML, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: format %q", ErrUnsupportedFormat, s)
	}
}

// ReadFile opens path and reads it with the matching reader. onErr receives
// recoverable per-record problems (CSV only).
func ReadFile(ctx context.Context, name, path string, opt Options, onErr func(line int, err error)) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()
	return Read(ctx, name, path, f, opt, onErr)
}

// Read is ReadFile over an already open reader; path is only used for format
// detection.
func Read(ctx context.Context, name, path string, r io.Reader, opt Options, onErr func(line int, err error)) (*dataset.Dataset, error) {
	br := bufio.NewReader(r)

	var (
		format Format
		err    error
	)
	if opt.Format != "" {
		format, err = ParseFormat(opt.Format)
	} else {
		head, _ := br.Peek(512)
		format, err = Detect(path, head)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	switch format {
	case FormatCSV:
		return csv.Read(ctx, name, br, csv.Options{
			Comma:    opt.Comma,
			SkipRows: opt.SkipRows,
			Encoding: opt.Encoding,
		}, onErr)
	case FormatXLSX:
		return xlsx.Read(ctx, name, br, xlsx.Options{Sheet: opt.Sheet, SkipRows: opt.SkipRows})
	case FormatHTML:
		return html.Read(ctx, name, br, html.Options{Selector: opt.Table, SkipRows: opt.SkipRows})
	default:
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}
}

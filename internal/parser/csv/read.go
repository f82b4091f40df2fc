// Package csv reads delimited text exports into a dataset.Dataset.
package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"dmlgen/internal/dataset"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Options controls how a delimited file is decoded.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// SkipRows drops this many physical records before the header row.
	SkipRows int
	// Encoding forces a character set: "utf-8", "latin1" or "windows-1252".
	// Empty means UTF-8 with a Windows-1252 fallback when the bytes are not
	// valid UTF-8.
	Encoding string
	// LazyQuotes relaxes quote handling for hand-edited exports.
	LazyQuotes bool
}

// Read parses r into a dataset named name.
//
// Malformed records are reported through onErr (when non-nil) and skipped;
// only a failure to read the header row is returned as an error. The whole
// input is buffered because the encoding decision needs the full byte stream.
func Read(ctx context.Context, name string, r io.Reader, opt Options, onErr func(line int, err error)) (*dataset.Dataset, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	dec, err := pickDecoder(opt.Encoding, raw)
	if err != nil {
		return nil, err
	}
	var src io.Reader = bytes.NewReader(raw)
	if dec != nil {
		src = transform.NewReader(src, dec.NewDecoder())
	}

	cr := csv.NewReader(src)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.ReuseRecord = true
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1

	var line int
	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	for i := 0; i < opt.SkipRows; i++ {
		if _, err := readRec(); err != nil {
			if err == io.EOF {
				return nil, fmt.Errorf("%s: skip_rows=%d exceeds input", name, opt.SkipRows)
			}
			return nil, fmt.Errorf("%s: skip row %d: %w", name, line, err)
		}
	}

	hdr, err := readRec()
	if err != nil {
		if onErr != nil {
			onErr(line, fmt.Errorf("read header: %w", err))
		}
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}
	b := dataset.NewBuilder(name, hdr)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rec, err := readRec()
		if err == io.EOF {
			return b.Dataset(), nil
		}
		if err != nil {
			if onErr != nil {
				onErr(line, fmt.Errorf("csv read: %w", err))
			}
			continue
		}
		b.Add(line, rec)
	}
}

// KnownEncoding reports whether name is an accepted Options.Encoding value.
func KnownEncoding(name string) bool {
	_, err := pickDecoder(name, nil)
	return err == nil
}

// pickDecoder returns nil when the input can be read as UTF-8 unchanged.
func pickDecoder(name string, raw []byte) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "auto":
		if utf8.Valid(raw) {
			return nil, nil
		}
		return charmap.Windows1252, nil
	case "utf-8", "utf8":
		return nil, nil
	case "utf-16", "utf16":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), nil
	case "latin1", "latin-1", "iso-8859-1":
		return charmap.ISO8859_1, nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, nil
	default:
		return nil, fmt.Errorf("csv: unsupported encoding %q", name)
	}
}

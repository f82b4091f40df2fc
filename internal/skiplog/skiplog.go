// Package skiplog records skipped source rows as CSV so they can be reviewed
// and corrected without rerunning with debug logging.
package skiplog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Header is the first record of every skip log.
var Header = []string{"reason", "line_number", "detail", "raw_row"}

// Log appends one CSV record per skipped row and counts reasons. It is safe
// for concurrent use.
type Log struct {
	mu      sync.Mutex
	reasons map[string]int
	w       *csv.Writer
	c       io.Closer

	// staged is the temporary file written by Stage; path is where Commit
	// moves it.
	staged, path string
}

// New writes the header to w and returns a Log over it. Close flushes but
// does not close w.
func New(w io.Writer) (*Log, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return nil, fmt.Errorf("skiplog: write header: %w", err)
	}
	return &Log{reasons: make(map[string]int), w: cw}, nil
}

// Create makes any missing parent directories and truncates path.
func Create(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("skiplog: create dir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("skiplog: open %s: %w", path, err)
	}
	l, err := New(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	l.c = f
	return l, nil
}

// Stage is like Create but writes to a hidden temporary file beside path.
// After Close, Commit moves the file to path and Discard removes it.
func Stage(path string) (*Log, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("skiplog: create dir %s: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("skiplog: create temp in %s: %w", dir, err)
	}
	l, err := New(f)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return nil, err
	}
	l.c, l.staged, l.path = f, f.Name(), path
	return l, nil
}

// Commit renames a staged log to its final path. It is a no-op for logs not
// made by Stage or already committed.
func (l *Log) Commit() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.staged == "" {
		return nil
	}
	if err := os.Rename(l.staged, l.path); err != nil {
		return fmt.Errorf("skiplog: rename %s: %w", l.path, err)
	}
	l.staged = ""
	return nil
}

// Discard closes a staged log and removes its temporary file.
func (l *Log) Discard() {
	_ = l.Close()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.staged != "" {
		_ = os.Remove(l.staged)
		l.staged = ""
	}
}

// Add records one skipped row. raw holds the row's cells as read.
func (l *Log) Add(reason string, line int, detail string, raw []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reasons[reason]++
	_ = l.w.Write([]string{reason, strconv.Itoa(line), detail, strings.Join(raw, ",")})
}

// Counts returns a copy of the per-reason counters.
func (l *Log) Counts() map[string]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]int, len(l.reasons))
	for k, v := range l.reasons {
		out[k] = v
	}
	return out
}

// Close flushes buffered records and closes the file opened by Create.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Flush()
	err := l.w.Error()
	if l.c != nil {
		if cerr := l.c.Close(); err == nil {
			err = cerr
		}
		l.c = nil
	}
	return err
}

package storage

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Sink persists the ordered statement lines of a finished script.
type Sink interface {
	Write(ctx context.Context, lines []string) error
}

// FileSink writes the script to Path atomically: the content goes to a
// temporary file in the same directory which is renamed over Path only after
// it was fully written and synced. A failed write leaves Path untouched and
// no temporary file behind.
type FileSink struct {
	Path string
	Perm os.FileMode // defaults to 0644
}

// Write implements Sink. Lines are joined with "\n" and the file ends with a
// newline.
func (s FileSink) Write(ctx context.Context, lines []string) (err error) {
	if s.Path == "" {
		return fmt.Errorf("sink: empty output path")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	perm := s.Perm
	if perm == 0 {
		perm = 0o644
	}

	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sink: create dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("sink: create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	for _, l := range lines {
		if _, err = w.WriteString(l); err != nil {
			return fmt.Errorf("sink: write: %w", err)
		}
		if err = w.WriteByte('\n'); err != nil {
			return fmt.Errorf("sink: write: %w", err)
		}
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("sink: flush: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sink: sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("sink: close: %w", err)
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("sink: chmod: %w", err)
	}
	if err = ctx.Err(); err != nil {
		return err
	}
	if err = os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("sink: rename: %w", err)
	}
	return nil
}

// MemorySink keeps the lines in memory; used by dry runs and tests.
type MemorySink struct {
	Lines []string
}

// Write implements Sink.
func (m *MemorySink) Write(_ context.Context, lines []string) error {
	m.Lines = append(m.Lines[:0], lines...)
	return nil
}

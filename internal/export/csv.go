// Package export persists frames as comma-separated files with a header row.
//
// Writes are all-or-nothing: the frame is written to a temp file in the
// target directory and renamed over the destination only on success. An
// interrupted run therefore leaves the previous artifact untouched; a later
// consumer must treat it as stale until the next successful run replaces it.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"baac/internal/frame"
)

// WriteCSV writes f to path atomically.
func WriteCSV(path string, f *frame.Frame) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if err := writeAll(tmp, f); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("export %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("export %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("export %s: %w", path, err)
	}
	return nil
}

func writeAll(file *os.File, f *frame.Frame) error {
	w := csv.NewWriter(file)

	if err := w.Write(f.Cols); err != nil {
		return err
	}

	rec := make([]string, len(f.Cols))
	for _, row := range f.Rows {
		for i := range rec {
			if i < len(row) {
				rec[i] = formatCell(row[i])
			} else {
				rec[i] = ""
			}
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// formatCell renders a cell for CSV output. Null becomes the empty field.
func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

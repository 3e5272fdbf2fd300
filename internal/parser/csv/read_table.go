// Package csv reads the raw BAAC extracts into in-memory frames.
//
// The pipeline is a single-pass batch over files that fit comfortably in
// memory (§ hundreds of thousands of rows), so the reader materializes the
// whole table instead of streaming.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"baac/internal/frame"
)

// Options controls how a raw file is parsed.
type Options struct {
	// Comma is the field delimiter. BAAC files are semicolon-separated.
	Comma rune
	// TrimSpace trims edge whitespace on every field, with Unicode semantics:
	// the source files pad some numeric cells with non-breaking spaces.
	TrimSpace bool
	// OnErr is called for every malformed CSV record with the 1-based line
	// number; the record is then padded or truncated to the header width and
	// kept, so row counts survive for audit. May be nil.
	OnErr func(line int, err error)
}

// ReadFile opens path and reads it as a delimited table.
// The first record is the header; a UTF-8 BOM on the first column is stripped.
func ReadFile(path string, opt Options) (*frame.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	fr, err := Read(f, opt)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return fr, nil
}

// Read parses a delimited table from r. Empty fields become nil cells.
func Read(r io.Reader, opt Options) (*frame.Frame, error) {
	comma := opt.Comma
	if comma == 0 {
		comma = ';'
	}

	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.ReuseRecord = true
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	line := 0
	readRec := func() ([]string, error) {
		line++
		return cr.Read()
	}

	hdr, err := readRec()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make([]string, len(hdr))
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		cols[i] = h
	}

	out := frame.New(cols...)

	for {
		rec, err := readRec()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			if opt.OnErr != nil {
				opt.OnErr(line, fmt.Errorf("csv read: %w", err))
			}
			if rec == nil {
				continue
			}
		}

		row := make([]any, len(cols))
		for i := range cols {
			if i >= len(rec) {
				break
			}
			v := rec[i]
			if opt.TrimSpace {
				v = strings.TrimSpace(v)
			}
			if v == "" {
				continue
			}
			row[i] = v
		}
		out.Rows = append(out.Rows, row)
	}
}

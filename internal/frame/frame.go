// Package frame provides the ordered-column tabular carrier used at the
// pipeline boundaries: parser output, column pruning, joining, and CSV export.
//
// A Frame is deliberately dynamic (column names + positional []any rows).
// Typed per-table records live in internal/baac; Frames only appear where the
// column set is open (raw input pass-through columns, merged output).
package frame

import "fmt"

// Frame holds an in-memory table. Rows are positional and aligned to Cols.
// A nil cell means "missing" and is exported as an empty CSV field.
type Frame struct {
	Cols []string
	Rows [][]any
}

// New returns an empty Frame with the given column order.
func New(cols ...string) *Frame {
	return &Frame{Cols: append([]string(nil), cols...)}
}

// ColIndex returns the position of name in Cols, or -1 when absent.
func (f *Frame) ColIndex(name string) int {
	for i, c := range f.Cols {
		if c == name {
			return i
		}
	}
	return -1
}

// Append adds one row. The row must already be aligned to Cols.
func (f *Frame) Append(row []any) error {
	if len(row) != len(f.Cols) {
		return fmt.Errorf("frame: row width %d, want %d", len(row), len(f.Cols))
	}
	f.Rows = append(f.Rows, row)
	return nil
}

// NumRows returns the number of data rows.
func (f *Frame) NumRows() int { return len(f.Rows) }

// Cell returns the value at (row, col name), nil when the column is absent.
func (f *Frame) Cell(row int, name string) any {
	i := f.ColIndex(name)
	if i < 0 {
		return nil
	}
	return f.Rows[row][i]
}

// Clone returns a deep copy (fresh column slice and row slices). Cell values
// are shared; the pipeline treats cell values as immutable.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		Cols: append([]string(nil), f.Cols...),
		Rows: make([][]any, len(f.Rows)),
	}
	for i, r := range f.Rows {
		out.Rows[i] = append([]any(nil), r...)
	}
	return out
}

// AppendColumn adds a column with the given values to a copy of f and returns
// the copy. values must have one entry per row.
func (f *Frame) AppendColumn(name string, values []any) (*Frame, error) {
	if len(values) != len(f.Rows) {
		return nil, fmt.Errorf("frame: column %s has %d values, want %d", name, len(values), len(f.Rows))
	}
	out := f.Clone()
	out.Cols = append(out.Cols, name)
	for i := range out.Rows {
		out.Rows[i] = append(out.Rows[i], values[i])
	}
	return out, nil
}

// Drop returns a copy of f without the named columns. Listed columns that are
// not present are ignored; dropping from a fixed prune list must tolerate
// source files that never had the column.
func (f *Frame) Drop(names ...string) *Frame {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}

	keep := make([]int, 0, len(f.Cols))
	out := &Frame{}
	for i, c := range f.Cols {
		if _, ok := drop[c]; ok {
			continue
		}
		keep = append(keep, i)
		out.Cols = append(out.Cols, c)
	}

	out.Rows = make([][]any, len(f.Rows))
	for ri, r := range f.Rows {
		nr := make([]any, len(keep))
		for j, i := range keep {
			nr[j] = r[i]
		}
		out.Rows[ri] = nr
	}
	return out
}

// Package audit produces the diagnostic summaries printed before and after
// cleaning: row counts, per-column missing values, duplicate keys, and
// out-of-range counts.
//
// Summaries are observational only. Cleaning proceeds whatever they report;
// their job is to make a bad extract visible, not to gate the run.
package audit

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"baac/internal/cleaner"
	"baac/internal/frame"
)

// Logger is the minimal logging seam used by this package. *log.Logger
// satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Summary is the diagnostic snapshot of one table at one point in the run.
type Summary struct {
	Table string
	Phase string // "raw" or "clean"

	Rows int
	Cols int

	// MissingByCol counts nil cells per column.
	MissingByCol map[string]int

	// DuplicateKeys counts rows whose key tuple was already seen.
	DuplicateKeys int

	// OutOfRange counts non-null governed values outside their documented
	// range. After cleaning these must all be zero.
	OutOfRange map[string]int

	// MalformedHrmn counts non-null hrmn cells that do not canonicalize to a
	// valid time of day: unparsable forms ("abc") as well as encoded values
	// outside 0..2359 ("2515"). Only meaningful for caracteristiques.
	MalformedHrmn int

	// CommaDecimals counts string coordinate cells still carrying the French
	// decimal comma, per column. Cleaning converts these to floats, so on the
	// clean phase these must all be zero.
	CommaDecimals map[string]int
}

// coordCols are the columns checked for decimal-comma values.
var coordCols = map[string]struct{}{"lat": {}, "long": {}}

// Describe builds a Summary for f. keyCols is the table's identifying tuple
// (e.g. Num_Acc for caracteristiques, Num_Acc+id_vehicule for vehicules);
// ranges may be nil when the table has no governed columns in f.
func Describe(table, phase string, f *frame.Frame, keyCols []string, ranges map[string]cleaner.Range) Summary {
	s := Summary{
		Table:         table,
		Phase:         phase,
		Rows:          f.NumRows(),
		Cols:          len(f.Cols),
		MissingByCol:  make(map[string]int, len(f.Cols)),
		OutOfRange:    make(map[string]int),
		CommaDecimals: make(map[string]int),
	}

	for ci, col := range f.Cols {
		missing := 0
		for _, row := range f.Rows {
			if ci >= len(row) || row[ci] == nil {
				missing++
			}
		}
		if missing > 0 {
			s.MissingByCol[col] = missing
		}

		if _, coord := coordCols[col]; coord {
			for _, row := range f.Rows {
				if ci >= len(row) {
					continue
				}
				if str, ok := row[ci].(string); ok && strings.Contains(str, ",") {
					s.CommaDecimals[col]++
				}
			}
		}

		r, governed := ranges[col]
		if !governed {
			continue
		}

		// hrmn carries "H:MM" strings that plain integer coercion cannot see;
		// it gets its own malformed counter instead of the generic range one.
		if col == "hrmn" {
			for _, row := range f.Rows {
				if ci >= len(row) || row[ci] == nil {
					continue
				}
				_, enc := cleaner.NormalizeHrmn(row[ci])
				if enc == nil || *enc < r.Min || *enc > r.Max {
					s.MalformedHrmn++
				}
			}
			continue
		}

		for _, row := range f.Rows {
			if ci >= len(row) {
				continue
			}
			n := cleaner.ParseInt(row[ci])
			if n == nil {
				continue
			}
			if *n < r.Min || *n > r.Max {
				s.OutOfRange[col]++
			}
		}
	}

	keyIx := make([]int, 0, len(keyCols))
	for _, k := range keyCols {
		if i := f.ColIndex(k); i >= 0 {
			keyIx = append(keyIx, i)
		}
	}
	if len(keyIx) == len(keyCols) && len(keyIx) > 0 {
		seen := make(map[string]struct{}, f.NumRows())
		for _, row := range f.Rows {
			key := ""
			for _, i := range keyIx {
				if row[i] == nil {
					key += "\x00"
					continue
				}
				key += keyString(row[i]) + "\x00"
			}
			if _, dup := seen[key]; dup {
				s.DuplicateKeys++
			}
			seen[key] = struct{}{}
		}
	}

	return s
}

func keyString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

// Log writes the summary as stage-tagged lines.
func (s Summary) Log(logf Logger) {
	logf.Printf("stage=audit table=%s phase=%s rows=%d cols=%d dup_keys=%d",
		s.Table, s.Phase, s.Rows, s.Cols, s.DuplicateKeys)

	for _, col := range sortedKeys(s.MissingByCol) {
		logf.Printf("stage=audit table=%s phase=%s col=%s missing=%d",
			s.Table, s.Phase, col, s.MissingByCol[col])
	}
	for _, col := range sortedKeys(s.OutOfRange) {
		logf.Printf("stage=audit table=%s phase=%s col=%s out_of_range=%d",
			s.Table, s.Phase, col, s.OutOfRange[col])
	}
	if s.MalformedHrmn > 0 {
		logf.Printf("stage=audit table=%s phase=%s malformed_hrmn=%d",
			s.Table, s.Phase, s.MalformedHrmn)
	}
	for _, col := range sortedKeys(s.CommaDecimals) {
		logf.Printf("stage=audit table=%s phase=%s col=%s comma_decimals=%d",
			s.Table, s.Phase, col, s.CommaDecimals[col])
	}
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

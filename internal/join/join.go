// Package join merges cleaned frames with left-join semantics: every left
// row survives, multiplied by its matching right rows, with null-filled right
// columns when nothing matches.
//
// Key matching is exact on the Go value, type included. A string "12345" on
// one side does not match an int64 12345 on the other; such rows silently
// become left-join misses. That fragility is inherited from the source
// format, so instead of guessing, the joiner counts unmatched left rows in
// Stats for the audit log.
package join

import (
	"fmt"
	"strconv"

	"baac/internal/frame"
)

// Stats reports the outcome of one join stage.
type Stats struct {
	LeftRows  int
	RightRows int
	OutRows   int
	// Unmatched counts left rows that found no right match (including rows
	// whose key is null on either side).
	Unmatched int
}

// On names one key pair: the left column and the right column it must equal.
type On struct {
	Left, Right string
}

// typedKey renders a cell as a type-tagged string so composite keys can be
// map keys without collapsing int64(5) and "5" together.
func typedKey(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return "s:" + t, true
	case int64:
		return "i:" + strconv.FormatInt(t, 10), true
	case float64:
		return "f:" + strconv.FormatFloat(t, 'g', -1, 64), true
	default:
		return "x:" + fmt.Sprint(t), true
	}
}

func compositeKey(row []any, ix []int) (string, bool) {
	key := ""
	for _, i := range ix {
		k, ok := typedKey(row[i])
		if !ok {
			return "", false
		}
		key += k + "\x00"
	}
	return key, true
}

// Left performs left ⟕ right on the given key columns.
//
// Right-side key columns are not repeated in the output. A right column whose
// name collides with a surviving left column is renamed with suffix, so the
// merged header stays unambiguous.
func Left(left, right *frame.Frame, on []On, suffix string) (*frame.Frame, Stats, error) {
	st := Stats{LeftRows: left.NumRows(), RightRows: right.NumRows()}

	leftIx := make([]int, len(on))
	rightIx := make([]int, len(on))
	rightKeyCols := make(map[int]struct{}, len(on))
	for i, o := range on {
		li := left.ColIndex(o.Left)
		if li < 0 {
			return nil, st, fmt.Errorf("join: left column %s not found", o.Left)
		}
		ri := right.ColIndex(o.Right)
		if ri < 0 {
			return nil, st, fmt.Errorf("join: right column %s not found", o.Right)
		}
		leftIx[i] = li
		rightIx[i] = ri
		rightKeyCols[ri] = struct{}{}
	}

	// Right columns carried into the output, renamed on collision.
	leftNames := make(map[string]struct{}, len(left.Cols))
	for _, c := range left.Cols {
		leftNames[c] = struct{}{}
	}
	var carry []int
	outCols := append([]string(nil), left.Cols...)
	for i, c := range right.Cols {
		if _, isKey := rightKeyCols[i]; isKey {
			continue
		}
		carry = append(carry, i)
		if _, clash := leftNames[c]; clash {
			c = c + suffix
		}
		outCols = append(outCols, c)
	}

	// Index right rows by composite key.
	index := make(map[string][]int, right.NumRows())
	for ri, row := range right.Rows {
		k, ok := compositeKey(row, rightIx)
		if !ok {
			continue
		}
		index[k] = append(index[k], ri)
	}

	out := frame.New(outCols...)
	for _, lrow := range left.Rows {
		var matches []int
		if k, ok := compositeKey(lrow, leftIx); ok {
			matches = index[k]
		}

		if len(matches) == 0 {
			st.Unmatched++
			row := make([]any, 0, len(outCols))
			row = append(row, lrow...)
			for range carry {
				row = append(row, nil)
			}
			out.Rows = append(out.Rows, row)
			continue
		}

		for _, ri := range matches {
			row := make([]any, 0, len(outCols))
			row = append(row, lrow...)
			for _, ci := range carry {
				row = append(row, right.Rows[ri][ci])
			}
			out.Rows = append(out.Rows, row)
		}
	}

	st.OutRows = out.NumRows()
	return out, st, nil
}

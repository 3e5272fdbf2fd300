package cleaner

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// idStripper removes every Unicode whitespace rune, including the
// non-breaking space the source files embed inside vehicle identifiers.
var idStripper = runes.Remove(runes.In(unicode.White_Space))

// NormalizeID returns the canonical whitespace-free form of an identifier.
// Returns nil for nil, empty, or whitespace-only input. Already-typed values
// (from a previous cleaning pass) are formatted back to their string form.
func NormalizeID(v any) *string {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = t
	case int64:
		s = strconv.FormatInt(t, 10)
	default:
		s = fmt.Sprint(t)
	}

	out, _, err := transform.String(idStripper, s)
	if err != nil || out == "" {
		return nil
	}
	return &out
}

// ParseInt coerces a cell to an integer. Failures yield nil, never an error:
// the row is kept with the field nulled.
func ParseInt(v any) *int64 {
	switch t := v.(type) {
	case nil:
		return nil
	case int64:
		return &t
	case float64:
		if t != math.Trunc(t) || math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		n := int64(t)
		return &n
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return &n
		}
		// Some extracts carry integer codes with a trailing decimal part.
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f != math.Trunc(f) {
			return nil
		}
		n := int64(f)
		return &n
	default:
		return nil
	}
}

// ParseFloat coerces a cell to a float, fixing the French decimal comma
// first. Failures yield nil.
func ParseFloat(v any) *float64 {
	switch t := v.(type) {
	case nil:
		return nil
	case float64:
		return &t
	case int64:
		f := float64(t)
		return &f
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		s = strings.ReplaceAll(s, ",", ".")
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

// ParseString returns the cell as a trimmed string, nil when empty.
func ParseString(v any) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil
		}
		return &s
	default:
		s := fmt.Sprint(t)
		return &s
	}
}

// NormalizeHrmn canonicalizes a time-of-day cell to zero-padded "HH:MM" and
// returns the encoded HHMM value used for range validation.
//
// The 2023 files carry "H:MM" strings; older vintages carry encoded integers
// (e.g. 715 for 07:15). Both forms are accepted.
func NormalizeHrmn(v any) (canonical *string, encoded *int64) {
	var hh, mm int64

	switch t := v.(type) {
	case nil:
		return nil, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		if h, m, ok := splitClock(s); ok {
			hh, mm = h, m
		} else {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil || n < 0 {
				return nil, nil
			}
			hh, mm = n/100, n%100
		}
	case int64:
		if t < 0 {
			return nil, nil
		}
		hh, mm = t/100, t%100
	default:
		return nil, nil
	}

	enc := hh*100 + mm
	c := fmt.Sprintf("%02d:%02d", hh, mm)
	return &c, &enc
}

func splitClock(s string) (hh, mm int64, ok bool) {
	i := strings.IndexByte(s, ':')
	if i <= 0 || i == len(s)-1 {
		return 0, 0, false
	}
	h, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.ParseInt(s[i+1:], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return h, m, true
}

// isSentinel reports whether a raw cell is one of the table's "unknown"
// placeholder codes. Comparison is numeric so both "99" and 99 match.
func isSentinel(v any, sentinels map[int64]struct{}) bool {
	n := ParseInt(v)
	if n == nil {
		return false
	}
	_, ok := sentinels[*n]
	return ok
}

// Package builtin contains the row transformers used by the split pipeline:
// ColumnFilter, TypeConverter, Validator and Aggregator.
//
// Every transformer works on one records.Record at a time and reports whether
// the row survives. None of them is safe for concurrent use; parallel runs
// build one pipeline per partition.
package builtin

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// asString converts common types to string without incurring the overhead
// of fmt.Sprint; falls back to fmt.Sprint for uncommon types.
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(t)
	}
}

// asNumber reports v as a float64 when it is numeric or a string that parses
// as one. NaN and infinities are not numbers here.
func asNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, finite(t)
	case int64:
		return float64(t), true
	case int:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || !finite(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// toInt64 truncates f, or reports false when it does not fit in an int64.
func toInt64(f float64) (int64, bool) {
	if !finite(f) || f < -(1<<63) || f >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}

// dateLayouts are tried in order when a value is parsed as a date or
// datetime. Layouts without a zone are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02.01.2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	time.RFC1123Z,
	time.RFC1123,
}

// parseAnyDate attempts every layout in dateLayouts.
func parseAnyDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

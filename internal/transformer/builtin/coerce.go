package builtin

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"csvsplit/pkg/records"
)

// Output layouts for the date and datetime kinds.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02T15:04:05.000Z"
)

var truthy = map[string]struct{}{
	"true": {}, "1": {}, "yes": {}, "y": {}, "on": {},
}

// TypeConverter coerces configured columns to a target kind:
//
//	number|float   -> float64 (unparsable -> 0)
//	integer|int    -> int64   (unparsable -> 0)
//	boolean|bool   -> bool    (true,1,yes,y,on; case-insensitive)
//	date           -> "2006-01-02"
//	datetime       -> "2006-01-02T15:04:05.000Z" (UTC)
//	uppercase|lowercase|trim|string|ascii -> string
//
// Missing or empty values are left alone. A failed conversion is reported
// through OnError and leaves the field unchanged; the row is never dropped.
type TypeConverter struct {
	Types   map[string]string
	OnError func(column string, err error)

	upper cases.Caser
	lower cases.Caser
	fold  transform.Transformer
}

// NewTypeConverter builds a converter for the column->kind map.
func NewTypeConverter(types map[string]string) *TypeConverter {
	c := &TypeConverter{Types: types}
	c.init()
	return c
}

// init builds the casers and the diacritic folding chain. They keep internal
// state, so each converter owns its own.
func (c *TypeConverter) init() {
	if c.fold != nil {
		return
	}
	c.upper = cases.Upper(language.Und)
	c.lower = cases.Lower(language.Und)
	c.fold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// Transform converts rec in place and returns it.
func (c *TypeConverter) Transform(rec records.Record, _ []string) (records.Record, bool) {
	c.init()
	for col, kind := range c.Types {
		v, ok := rec[col]
		if !ok || records.IsEmpty(v) {
			continue
		}
		out, err := c.convert(v, strings.ToLower(kind))
		if err != nil {
			if c.OnError != nil {
				c.OnError(col, err)
			}
			continue
		}
		rec[col] = out
	}
	return rec, true
}

func (c *TypeConverter) convert(v any, kind string) (any, error) {
	s := asString(v)
	switch kind {
	case "number", "float":
		f, ok := asNumber(v)
		if !ok {
			return float64(0), nil
		}
		return f, nil
	case "integer", "int":
		if n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return n, nil
		}
		if f, ok := asNumber(v); ok {
			if n, ok := toInt64(f); ok {
				return n, nil
			}
		}
		return int64(0), nil
	case "boolean", "bool":
		if b, ok := v.(bool); ok {
			return b, nil
		}
		_, ok := truthy[strings.ToLower(strings.TrimSpace(s))]
		return ok, nil
	case "date":
		t, ok := parseAnyDate(s)
		if !ok {
			return nil, fmt.Errorf("invalid date %q", s)
		}
		return t.UTC().Format(DateLayout), nil
	case "datetime":
		t, ok := parseAnyDate(s)
		if !ok {
			return nil, fmt.Errorf("invalid datetime %q", s)
		}
		return t.UTC().Format(DateTimeLayout), nil
	case "uppercase":
		return c.upper.String(s), nil
	case "lowercase":
		return c.lower.String(s), nil
	case "trim":
		return strings.TrimSpace(s), nil
	case "string":
		return s, nil
	case "ascii":
		out, _, err := transform.String(c.fold, s)
		if err != nil {
			return nil, fmt.Errorf("fold %q: %w", s, err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown conversion kind %q", kind)
	}
}

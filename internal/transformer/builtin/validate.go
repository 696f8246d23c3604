package builtin

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"csvsplit/internal/schema"
	"csvsplit/pkg/records"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// booleanWords are the spellings accepted by the "boolean" rule type.
var booleanWords = map[string]struct{}{
	"true": {}, "false": {}, "1": {}, "0": {}, "yes": {}, "no": {},
	"y": {}, "n": {}, "on": {}, "off": {},
}

// Validator drops rows that violate any configured rule. A rejected row is
// not an error; OnReject, when set, receives the column and reason.
type Validator struct {
	OnReject func(column, reason string)

	fields []fieldRule
}

// fieldRule captures hot-path data for a single column.
type fieldRule struct {
	name    string
	rule    schema.Rule
	pattern *regexp.Regexp
	enumSet map[string]struct{}
}

// NewValidator precompiles patterns and enum sets. Columns are checked in
// name order so rejection reasons are deterministic.
func NewValidator(rules map[string]schema.Rule) (*Validator, error) {
	names := make([]string, 0, len(rules))
	for n := range rules {
		names = append(names, n)
	}
	sort.Strings(names)

	v := &Validator{fields: make([]fieldRule, 0, len(names))}
	for _, n := range names {
		r := rules[n]
		fr := fieldRule{name: n, rule: r}
		if r.Pattern != "" {
			re, err := regexp.Compile(r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("validation %s: pattern: %w", n, err)
			}
			fr.pattern = re
		}
		if len(r.Enum) > 0 {
			fr.enumSet = make(map[string]struct{}, len(r.Enum))
			for _, e := range r.Enum {
				fr.enumSet[e] = struct{}{}
			}
		}
		v.fields = append(v.fields, fr)
	}
	return v, nil
}

// Transform returns rec unchanged, or false when a rule fails.
func (v *Validator) Transform(rec records.Record, _ []string) (records.Record, bool) {
	for i := range v.fields {
		if reason := v.fields[i].check(rec[v.fields[i].name]); reason != "" {
			if v.OnReject != nil {
				v.OnReject(v.fields[i].name, reason)
			}
			return nil, false
		}
	}
	return rec, true
}

// check returns the first violated rule as a reason, or "".
func (f *fieldRule) check(val any) string {
	r := f.rule
	s := asString(val)
	if strings.TrimSpace(s) == "" {
		if r.Required {
			return "required value missing"
		}
		return ""
	}

	if r.Type != "" && !matchesType(r.Type, val, s) {
		return fmt.Sprintf("%q is not a valid %s", s, r.Type)
	}
	n := utf8.RuneCountInString(s)
	if r.MinLength != nil && n < *r.MinLength {
		return fmt.Sprintf("length %d below minLength %d", n, *r.MinLength)
	}
	if r.MaxLength != nil && n > *r.MaxLength {
		return fmt.Sprintf("length %d above maxLength %d", n, *r.MaxLength)
	}
	if f.pattern != nil && !f.pattern.MatchString(s) {
		return fmt.Sprintf("%q does not match pattern %s", s, r.Pattern)
	}
	if num, ok := asNumber(val); ok {
		if r.Min != nil && num < *r.Min {
			return fmt.Sprintf("%v below min %v", num, *r.Min)
		}
		if r.Max != nil && num > *r.Max {
			return fmt.Sprintf("%v above max %v", num, *r.Max)
		}
	}
	if f.enumSet != nil {
		if _, ok := f.enumSet[s]; !ok {
			return fmt.Sprintf("%q not in enum %v", s, r.Enum)
		}
	}
	return ""
}

// matchesType is a structural check only; values are not converted.
func matchesType(kind string, val any, s string) bool {
	switch kind {
	case "number":
		_, ok := asNumber(val)
		return ok
	case "integer":
		switch t := val.(type) {
		case int64, int:
			return true
		case float64:
			_, fits := toInt64(t)
			return fits && t == math.Trunc(t)
		}
		_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		return err == nil
	case "boolean":
		if _, ok := val.(bool); ok {
			return true
		}
		_, ok := booleanWords[strings.ToLower(strings.TrimSpace(s))]
		return ok
	case "date":
		_, ok := parseAnyDate(s)
		return ok
	case "email":
		return emailRe.MatchString(s)
	case "url":
		u, err := url.ParseRequestURI(s)
		return err == nil && u.Scheme != "" && u.Host != ""
	default:
		return true
	}
}

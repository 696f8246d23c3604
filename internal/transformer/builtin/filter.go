package builtin

import "csvsplit/pkg/records"

// ColumnFilter projects rows onto a subset of columns. When Include is set
// only those columns survive, in Include's order; Exclude is applied after.
type ColumnFilter struct {
	Include []string
	Exclude []string
}

// Transform returns a new record holding only the kept columns. It never
// drops the row.
func (f ColumnFilter) Transform(rec records.Record, _ []string) (records.Record, bool) {
	var out records.Record
	if len(f.Include) > 0 {
		out = make(records.Record, len(f.Include))
		for _, c := range f.Include {
			if v, ok := rec[c]; ok {
				out[c] = v
			}
		}
	} else {
		out = rec.Clone()
	}
	for _, c := range f.Exclude {
		delete(out, c)
	}
	return out, true
}

// MapHeaders applies the same include/exclude logic to a header list. It is
// called once per run to derive the output headers.
func (f ColumnFilter) MapHeaders(headers []string) []string {
	present := make(map[string]struct{}, len(headers))
	for _, h := range headers {
		present[h] = struct{}{}
	}
	excluded := make(map[string]struct{}, len(f.Exclude))
	for _, c := range f.Exclude {
		excluded[c] = struct{}{}
	}

	src := headers
	if len(f.Include) > 0 {
		src = f.Include
	}
	out := make([]string, 0, len(src))
	seen := make(map[string]struct{}, len(src))
	for _, h := range src {
		if _, ok := present[h]; !ok {
			continue
		}
		if _, ok := excluded[h]; ok {
			continue
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

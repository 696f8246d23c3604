// Package records holds the in-memory row model shared by the parser, the
// transformation pipeline, and the format writers.
package records

// Record is one source row keyed by column name. Values start out as strings
// and may become float64, int64, or bool after type conversion.
type Record map[string]any

// FromFields builds a Record by zipping headers with a parsed field slice.
// Missing trailing fields become empty strings; surplus fields are ignored.
func FromFields(headers, fields []string) Record {
	r := make(Record, len(headers))
	for i, h := range headers {
		if i < len(fields) {
			r[h] = fields[i]
		} else {
			r[h] = ""
		}
	}
	return r
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// IsEmpty reports whether v counts as a missing value: nil or the empty string.
func IsEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

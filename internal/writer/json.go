package writer

import (
	"bytes"
	"encoding/json"
	"io"
	"math"

	"csvsplit/internal/config"
	"csvsplit/pkg/records"
)

func init() {
	Register("jsonl", func(config.Options) Writer { return &JSONLines{} })
	Register("json", func(config.Options) Writer { return &JSONArray{} })
}

// appendObject encodes rec as a compact JSON object whose keys follow
// headers. Keys missing from rec encode as null.
func appendObject(buf *bytes.Buffer, rec records.Record, headers []string) error {
	buf.WriteByte('{')
	for i, h := range headers {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(h)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(jsonValue(rec[h]))
		if err != nil {
			return err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return nil
}

// jsonValue maps values encoding/json cannot represent to null.
func jsonValue(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}

// JSONLines writes one object per line with no header or footer.
type JSONLines struct{}

func (*JSONLines) WriteHeader(io.Writer, []string) error { return nil }

func (*JSONLines) WriteRow(w io.Writer, rec records.Record, headers []string) error {
	var buf bytes.Buffer
	if err := appendObject(&buf, rec, headers); err != nil {
		return err
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

func (*JSONLines) WriteFooter(io.Writer) error { return nil }

func (*JSONLines) Extension() string { return ".jsonl" }

// JSONArray writes a single JSON array per file:
//
//	[
//	  {...},
//	  {...}
//	]
type JSONArray struct {
	wrote bool
}

func (j *JSONArray) WriteHeader(w io.Writer, _ []string) error {
	j.wrote = false
	_, err := io.WriteString(w, "[\n")
	return err
}

func (j *JSONArray) WriteRow(w io.Writer, rec records.Record, headers []string) error {
	var buf bytes.Buffer
	if j.wrote {
		buf.WriteString(",\n")
	}
	buf.WriteString("  ")
	if err := appendObject(&buf, rec, headers); err != nil {
		return err
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return err
	}
	j.wrote = true
	return nil
}

func (j *JSONArray) WriteFooter(w io.Writer) error {
	_, err := io.WriteString(w, "\n]\n")
	return err
}

func (*JSONArray) Extension() string { return ".json" }

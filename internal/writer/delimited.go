package writer

import (
	"io"
	"strings"

	"csvsplit/internal/config"
	"csvsplit/pkg/records"
)

func init() {
	Register("csv", func(config.Options) Writer { return NewCSV() })
	Register("tsv", func(config.Options) Writer { return NewTSV() })
}

// Delimited writes one line per row with a fixed separator. Escape renders a
// single value.
type Delimited struct {
	Sep    string
	Ext    string
	Escape func(string) string
}

// NewCSV quotes values containing a comma, quote, or line break and doubles
// embedded quotes.
func NewCSV() *Delimited {
	return &Delimited{Sep: ",", Ext: ".csv", Escape: escapeCSV}
}

// NewTSV backslash-escapes tabs and line breaks.
func NewTSV() *Delimited {
	return &Delimited{Sep: "\t", Ext: ".tsv", Escape: escapeTSV}
}

func escapeCSV(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

var tsvEscaper = strings.NewReplacer("\t", `\t`, "\n", `\n`, "\r", `\r`)

func escapeTSV(s string) string { return tsvEscaper.Replace(s) }

func (d *Delimited) WriteHeader(w io.Writer, headers []string) error {
	return d.writeLine(w, headers)
}

func (d *Delimited) WriteRow(w io.Writer, rec records.Record, headers []string) error {
	vals := make([]string, len(headers))
	for i, h := range headers {
		vals[i] = formatValue(rec[h])
	}
	return d.writeLine(w, vals)
}

func (d *Delimited) writeLine(w io.Writer, vals []string) error {
	var b strings.Builder
	for i, v := range vals {
		if i > 0 {
			b.WriteString(d.Sep)
		}
		b.WriteString(d.Escape(v))
	}
	b.WriteByte('\n')
	_, err := io.WriteString(w, b.String())
	return err
}

func (d *Delimited) WriteFooter(io.Writer) error { return nil }

func (d *Delimited) Extension() string { return d.Ext }

package writer

import (
	"io"
	"strconv"
	"strings"
	"unicode"

	"csvsplit/internal/config"
	"csvsplit/pkg/records"
)

func init() {
	Register("xml", func(o config.Options) Writer {
		return NewXML(o.String("root_element", "data"), o.String("row_element", "row"))
	})
}

var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// XML wraps rows in <Root><Row><col>value</col>...</Row></Root>.
type XML struct {
	Root string
	Row  string

	// element names for the current file's headers, set by WriteHeader
	names []string
}

// NewXML sanitizes the element names; empty names fall back to data/row.
func NewXML(root, row string) *XML {
	if root == "" {
		root = "data"
	}
	if row == "" {
		row = "row"
	}
	return &XML{Root: elementName(root), Row: elementName(row)}
}

// elementName turns an arbitrary column name into a valid XML element name:
// invalid runes become '_' and names that cannot start an element get a '_'
// prefix.
func elementName(s string) string {
	if s == "" {
		return "_"
	}
	var b strings.Builder
	for i, r := range s {
		ok := r == '_' || unicode.IsLetter(r)
		if i > 0 {
			ok = ok || r == '-' || r == '.' || unicode.IsDigit(r)
		}
		if ok {
			b.WriteRune(r)
			continue
		}
		if i == 0 && (unicode.IsDigit(r) || r == '-' || r == '.') {
			b.WriteByte('_')
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	out := b.String()
	if strings.HasPrefix(strings.ToLower(out), "xml") {
		out = "_" + out
	}
	return out
}

// elementNames sanitizes every header and suffixes repeats with _2, _3, ...
// so distinct columns never share an element.
func elementNames(headers []string) []string {
	res := make([]string, len(headers))
	seen := make(map[string]struct{}, len(headers))
	for i, h := range headers {
		base := elementName(h)
		name := base
		for n := 2; ; n++ {
			if _, taken := seen[name]; !taken {
				break
			}
			name = base + "_" + strconv.Itoa(n)
		}
		seen[name] = struct{}{}
		res[i] = name
	}
	return res
}

func (x *XML) WriteHeader(w io.Writer, headers []string) error {
	x.names = elementNames(headers)
	_, err := io.WriteString(w, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<"+x.Root+">\n")
	return err
}

func (x *XML) WriteRow(w io.Writer, rec records.Record, headers []string) error {
	var b strings.Builder
	if len(x.names) != len(headers) {
		x.names = elementNames(headers)
	}
	b.WriteString("  <" + x.Row + ">\n")
	for i, h := range headers {
		name := x.names[i]
		b.WriteString("    <" + name + ">")
		b.WriteString(xmlEscaper.Replace(formatValue(rec[h])))
		b.WriteString("</" + name + ">\n")
	}
	b.WriteString("  </" + x.Row + ">\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func (x *XML) WriteFooter(w io.Writer) error {
	_, err := io.WriteString(w, "</"+x.Root+">\n")
	return err
}

func (*XML) Extension() string { return ".xml" }

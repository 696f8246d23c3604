// Package csv reads delimited text for the split engine: header detection
// from the first record and streaming decoding of the data rows that follow.
// It never buffers the whole input.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"csvsplit/internal/config"
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// ErrNoHeader is returned by DetectHeaders for empty input.
var ErrNoHeader = errors.New("csv: input has no header record")

// Options configures the reader dialect.
type Options struct {
	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing whitespace from each field value.
	TrimSpace bool

	// LazyQuotes tolerates bare quotes inside unquoted fields.
	LazyQuotes bool
}

// OptionsFrom maps the parser section of a run config.
func OptionsFrom(p config.Parser) Options {
	return Options{Comma: p.Comma(), TrimSpace: p.TrimSpace, LazyQuotes: p.LazyQuotes}
}

func newReader(r io.Reader, opt Options) *csv.Reader {
	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	// Width is reconciled against the header when rows are zipped.
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	return cr
}

// DetectHeaders reads only the first record of r and returns the normalized
// header list. The caller closes r right after, ending the preliminary read.
func DetectHeaders(r io.Reader, opt Options) ([]string, error) {
	cr := newReader(r, opt)
	h, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	return NormalizeHeaders(h), nil
}

// NormalizeHeaders produces a unique, ordered header list: the BOM is removed
// from the first cell, names are trimmed and NFC-normalized, empty names
// become col_<i> (1-based) and repeats get a _<n> suffix.
func NormalizeHeaders(h []string) []string {
	res := make([]string, len(h))
	seen := make(map[string]struct{}, len(h))
	for i, col := range h {
		c := col
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		c = norm.NFC.String(strings.TrimSpace(c))
		if c == "" {
			c = "col_" + strconv.Itoa(i+1)
		}
		name := c
		for n := 2; ; n++ {
			if _, taken := seen[name]; !taken {
				break
			}
			name = c + "_" + strconv.Itoa(n)
		}
		seen[name] = struct{}{}
		res[i] = name
	}
	return res
}

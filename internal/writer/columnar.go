package writer

import (
	"bytes"
	"encoding/json"
	"io"

	"csvsplit/internal/config"
	"csvsplit/pkg/records"
)

// DefaultBatchSize is the columnar batch size when options.batch_size is unset.
const DefaultBatchSize = 10_000

func init() {
	f := func(o config.Options) Writer { return NewColumnar(o.Int("batch_size", DefaultBatchSize)) }
	Register("columnar", f)
	Register("parquet", f)
}

// Columnar buffers rows and emits one JSON object per batch:
//
//	{"headers":[...],"rows":[{...},{...}]}
//
// It is a line-delimited stand-in for a real columnar encoding.
type Columnar struct {
	BatchSize int

	headers []string
	buf     bytes.Buffer
	n       int
}

func NewColumnar(batchSize int) *Columnar {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Columnar{BatchSize: batchSize}
}

func (c *Columnar) WriteHeader(_ io.Writer, headers []string) error {
	c.headers = append(c.headers[:0], headers...)
	c.buf.Reset()
	c.n = 0
	return nil
}

func (c *Columnar) WriteRow(w io.Writer, rec records.Record, headers []string) error {
	if c.n > 0 {
		c.buf.WriteByte(',')
	}
	if err := appendObject(&c.buf, rec, headers); err != nil {
		return err
	}
	c.n++
	if c.n >= c.BatchSize {
		return c.flush(w)
	}
	return nil
}

// flush writes the pending batch, if any.
func (c *Columnar) flush(w io.Writer) error {
	if c.n == 0 {
		return nil
	}
	hdr, err := json.Marshal(c.headers)
	if err != nil {
		return err
	}
	var out bytes.Buffer
	out.Grow(c.buf.Len() + len(hdr) + 24)
	out.WriteString(`{"headers":`)
	out.Write(hdr)
	out.WriteString(`,"rows":[`)
	out.Write(c.buf.Bytes())
	out.WriteString("]}\n")

	c.buf.Reset()
	c.n = 0
	_, err = w.Write(out.Bytes())
	return err
}

func (c *Columnar) WriteFooter(w io.Writer) error { return c.flush(w) }

func (*Columnar) Extension() string { return ".columnar.jsonl" }

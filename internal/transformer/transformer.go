// Package transformer composes row transformers into the ordered pipeline the
// split engine runs on every source row.
package transformer

import "csvsplit/pkg/records"

// Transformer maps one row to a row, or reports false to drop it. headers is
// the header list at the transformer's stage of the pipeline.
type Transformer interface {
	Transform(rec records.Record, headers []string) (records.Record, bool)
}

// HeaderMapper is implemented by transformers that change the column set.
type HeaderMapper interface {
	MapHeaders(headers []string) []string
}

// Observer receives every row that survives the pipeline.
type Observer interface {
	Observe(rec records.Record, headers []string)
}

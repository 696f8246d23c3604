// Package datasource defines how the split engine obtains its input bytes.
package datasource

import (
	"context"
	"io"
)

// Source opens a readable stream of delimited text. Implementations must be
// safe to Open from several goroutines; each call returns an independent
// reader.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

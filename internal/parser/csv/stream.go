package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// RowFunc receives one decoded data row. line is the 1-based record number
// within the stream, header excluded. fields is reused between calls; copy
// anything that must outlive the call.
type RowFunc func(line int, fields []string) error

// StreamRecords decodes r record by record and hands each row to emit.
//
// Behavior:
//   - When skipHeader is set the first record is consumed and discarded.
//   - Malformed records are soft errors: they are reported via onError(line, err)
//     and the stream continues.
//   - An error returned by emit, a read failure, or context cancellation stops
//     the stream and is returned.
//
// Returns nil on EOF.
func StreamRecords(
	ctx context.Context,
	r io.Reader,
	opt Options,
	skipHeader bool,
	emit RowFunc,
	onError func(line int, err error),
) error {
	cr := newReader(r, opt)

	if skipHeader {
		if _, err := cr.Read(); err != nil {
			if err == io.EOF {
				return nil
			}
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return fmt.Errorf("read csv header: %w", err)
			}
			if onError != nil {
				onError(0, fmt.Errorf("parse header: %w", err))
			}
		}
	}

	line := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		line++
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return fmt.Errorf("read csv: %w", err)
			}
			if onError != nil {
				onError(line, fmt.Errorf("parse: %w", err))
			}
			continue
		}

		if opt.TrimSpace {
			for i, v := range rec {
				rec[i] = strings.TrimSpace(v)
			}
		}
		if err := emit(line, rec); err != nil {
			return err
		}
	}
}

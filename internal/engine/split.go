// Package engine implements the sequential split engine: it streams a
// delimited-text source row by row through the transformation pipeline and
// routes surviving rows to a format writer, rotating output files at a fixed
// row count.
//
// The same Split type runs the whole file in sequential mode and one byte
// range per worker in parallel mode (see package partition).
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"csvsplit/internal/config"
	"csvsplit/internal/datasource"
	csvparser "csvsplit/internal/parser/csv"
	"csvsplit/internal/transformer"
	"csvsplit/internal/writer"
	"csvsplit/pkg/records"
)

// State is the lifecycle of a Split.
type State int

const (
	StateUninitialized State = iota
	StateStreaming
	StateRotating
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStreaming:
		return "streaming"
	case StateRotating:
		return "rotating"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// progressEvery is the heartbeat interval, in rows read.
const progressEvery = 100_000

// rejectLogLimit bounds how many validation drops are logged per split.
const rejectLogLimit = 3

// Split streams one source into rotated output files. Construct it with the
// headers detected once for the run; a Split runs once and is not safe for
// concurrent use.
type Split struct {
	Config  config.Config
	Headers []string
	Source  datasource.Source

	// SkipHeader discards the first record of Source (the header line).
	SkipHeader bool
	// Partition is the 1-based partition index; 0 selects sequential naming.
	Partition int
	// EmitEmpty opens file #1 before the first row, so a source without data
	// rows still yields one header-only file.
	EmitEmpty bool
	// Date is the <isoDate> part of file names; empty means today (UTC).
	Date string

	state State
}

// State reports where the split is in its lifecycle.
func (s *Split) State() State { return s.state }

func (s *Split) logPrefix() string {
	if s.Partition > 0 {
		return fmt.Sprintf("partition=%d ", s.Partition)
	}
	return ""
}

// Run executes the split. Row-level failures are recorded in the result;
// only source, configuration, cancellation and output I/O failures are
// returned as errors.
func (s *Split) Run(ctx context.Context) (*Result, error) {
	cfg := s.Config
	started := time.Now()
	prefix := s.logPrefix()

	errs := newErrAgg(MaxErrorsKept)
	line := 0
	var rejects int64

	hooks := transformer.Hooks{
		OnConvertError: func(col string, err error) {
			errs.add(&RowError{Line: line, Stage: StageConvert, Column: col, Err: err})
		},
		OnReject: func(col, reason string) {
			rejects++
			if cfg.Quiet {
				return
			}
			if rejects <= rejectLogLimit {
				log.Printf("%svalidate reject: row=%d column=%s reason=%s", prefix, line, col, reason)
			}
			if rejects == rejectLogLimit+1 {
				log.Printf("%s... additional rejections suppressed ...", prefix)
			}
		},
	}
	pipe, agg, err := transformer.FromConfig(cfg.Transformations, cfg.GenerateStats, hooks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigurationInvalid, err)
	}
	outHeaders := pipe.OutputHeaders(s.Headers)

	w, err := writer.New(cfg.Output.Format, cfg.Output.Options)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigurationInvalid, err)
	}

	rc, err := s.Source.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	defer rc.Close()

	date := s.Date
	if date == "" {
		date = isoDate()
	}
	rot := &rotator{
		dir:       cfg.Output.Dir,
		date:      date,
		partition: s.Partition,
		max:       int64(cfg.Output.MaxRowsPerFile),
		w:         w,
		headers:   outHeaders,
		onRotate:  func() { s.state = StateRotating },
	}

	res := &Result{
		Job:           cfg.Job,
		Headers:       append([]string(nil), s.Headers...),
		OutputHeaders: outHeaders,
		Aggregator:    agg,
	}

	s.state = StateStreaming
	if s.EmitEmpty {
		if err := rot.open(); err != nil {
			return nil, err
		}
	}

	emit := func(n int, fields []string) error {
		line = n
		res.RowsRead++

		out, ok, rowErr := s.transform(pipe, records.FromFields(s.Headers, fields))
		if rowErr != nil {
			errs.add(&RowError{Line: n, Stage: StageTransform, Err: rowErr})
			return nil
		}
		if !ok {
			res.RowsDropped++
			return nil
		}

		if err := rot.write(out); err != nil {
			var we *writeRowError
			if !errors.As(err, &we) {
				return err
			}
			errs.add(&RowError{Line: n, Stage: StageWrite, Err: we.err})
			return nil
		}
		s.state = StateStreaming
		res.RowsWritten++

		if !cfg.Quiet && res.RowsRead%progressEvery == 0 {
			log.Printf("%sprogress: read=%d written=%d dropped=%d files=%d elapsed=%s",
				prefix, res.RowsRead, res.RowsWritten, res.RowsDropped, rot.index, time.Since(started).Round(time.Millisecond))
		}
		return nil
	}
	onParseErr := func(n int, err error) {
		errs.add(&RowError{Line: n, Stage: StageParse, Err: err})
	}

	csvOpts := csvparser.OptionsFrom(cfg.Parser)
	if err := csvparser.StreamRecords(ctx, rc, csvOpts, s.SkipHeader, emit, onParseErr); err != nil {
		rot.abort()
		s.state = StateFinished
		return nil, err
	}

	if err := rot.close(); err != nil {
		s.state = StateFinished
		return nil, err
	}
	s.state = StateFinished

	res.Files = rot.files
	res.ErrorCount = errs.count
	res.Errors = errs.first
	res.Elapsed = time.Since(started)
	errs.logPreview(prefix)
	return res, nil
}

// transform runs the pipeline on one row. A panic inside a stage is
// converted into a row error so the stream keeps going.
func (s *Split) transform(p *transformer.Pipeline, rec records.Record) (out records.Record, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, ok, err = nil, false, fmt.Errorf("panic: %v", r)
		}
	}()
	out, ok = p.Transform(rec, s.Headers)
	return out, ok, nil
}

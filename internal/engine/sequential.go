package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"csvsplit/internal/config"
	"csvsplit/internal/datasource/file"
	"csvsplit/internal/metrics"
	csvparser "csvsplit/internal/parser/csv"
)

// now is a test seam for the date embedded in output file names.
var now = time.Now

// isoDate is the YYYY-MM-DD (UTC) stamp used in output file names.
func isoDate() string { return now().UTC().Format("2006-01-02") }

// Input is what a run learns about its source before streaming starts.
type Input struct {
	Path    string
	Size    int64
	Headers []string
	Date    string
}

// Prepare validates that the source is readable, creates the output
// directory, and detects headers by reading only the first record. It is
// shared by the sequential engine and the partition coordinator.
func Prepare(ctx context.Context, cfg config.Config) (*Input, error) {
	started := time.Now()
	in, err := prepare(ctx, cfg)
	metrics.RecordStep(cfg.Job, "detect", err, time.Since(started))
	return in, err
}

func prepare(ctx context.Context, cfg config.Config) (*Input, error) {
	src := file.NewLocal(cfg.Source.Path)
	size, err := src.Size()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	rc, err := src.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	headers, err := csvparser.DetectHeaders(rc, csvparser.OptionsFrom(cfg.Parser))
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, cfg.Source.Path, err)
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", cfg.Output.Dir, err)
	}

	if !cfg.Quiet {
		log.Printf("source: path=%s size=%s columns=%d", cfg.Source.Path, humanize.IBytes(uint64(size)), len(headers))
	}
	return &Input{Path: cfg.Source.Path, Size: size, Headers: headers, Date: isoDate()}, nil
}

// Sequential splits the whole source in one pass. Files are numbered
// 1..n across the run, and file #1 exists even when the source has no rows.
func Sequential(ctx context.Context, cfg config.Config) (*Result, error) {
	started := time.Now()
	in, err := Prepare(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Split{
		Config:     cfg,
		Headers:    in.Headers,
		Source:     file.NewLocal(in.Path),
		SkipHeader: true,
		EmitEmpty:  true,
		Date:       in.Date,
	}
	res, err := s.Run(ctx)
	metrics.RecordStep(cfg.Job, "split", err, time.Since(started))
	if err != nil {
		return nil, err
	}
	res.Mode = ModeSequential
	res.Elapsed = time.Since(started)
	return res, nil
}
